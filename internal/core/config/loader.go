package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML content, expanding environment variables and applying
// defaults.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// An explicit chain_data_ttl of 0 disables the cache, so the default only
	// applies when the key is absent.
	var explicit struct {
		ChainDataTTL *time.Duration `yaml:"chain_data_ttl"`
	}
	if err := yaml.Unmarshal([]byte(expandedData), &explicit); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults(explicit.ChainDataTTL != nil)
	return &cfg, nil
}

func (c *AppConfig) applyDefaults(ttlSet bool) {
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Poll.Interval == 0 {
		c.Poll.Interval = 15 * time.Second
	}
	if c.Poll.Timeout == 0 {
		c.Poll.Timeout = 10 * time.Second
	}
	if c.Poll.HistoryCapacity == 0 {
		c.Poll.HistoryCapacity = 100
	}
	if !ttlSet {
		c.ChainDataTTL = 5 * time.Second
	}
	if c.Breaker.MaxFailures == 0 {
		c.Breaker.MaxFailures = 3
	}
	if c.Breaker.OpenTimeout == 0 {
		c.Breaker.OpenTimeout = 30 * time.Second
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = "nodepulse:samples"
	}

	for i := range c.Nodes {
		if c.Nodes[i].ExcludeDevices == nil {
			c.Nodes[i].ExcludeDevices = append([]string(nil), DefaultExcludeDevices...)
		}
	}
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *AppConfig) Validate() error {
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("%w: poll.interval must be positive", ErrInvalidConfig)
	}
	if c.Poll.Timeout <= 0 {
		return fmt.Errorf("%w: poll.timeout must be positive", ErrInvalidConfig)
	}
	if c.Poll.Timeout > c.Poll.Interval {
		return fmt.Errorf("%w: poll.timeout %s exceeds poll.interval %s",
			ErrInvalidConfig, c.Poll.Timeout, c.Poll.Interval)
	}
	if c.Poll.HistoryCapacity <= 0 {
		return fmt.Errorf("%w: poll.history_capacity must be positive", ErrInvalidConfig)
	}
	if c.ChainDataTTL < 0 {
		return fmt.Errorf("%w: chain_data_ttl must not be negative", ErrInvalidConfig)
	}
	if len(c.Nodes) == 0 {
		return fmt.Errorf("%w: at least one node is required", ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(c.Nodes))
	for i, n := range c.Nodes {
		if n.Name == "" {
			return fmt.Errorf("%w: nodes[%d].name is required", ErrInvalidConfig, i)
		}
		if seen[n.Name] {
			return fmt.Errorf("%w: duplicate node name %q", ErrInvalidConfig, n.Name)
		}
		seen[n.Name] = true
		if n.RPCURL == "" {
			return fmt.Errorf("%w: node %q has no rpc_url", ErrInvalidConfig, n.Name)
		}
		if n.CPUCores < 0 {
			return fmt.Errorf("%w: node %q has negative cpu_cores", ErrInvalidConfig, n.Name)
		}
	}
	return nil
}
