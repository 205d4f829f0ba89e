package config

import (
	"time"

	redisclient "github.com/vietddude/nodepulse/internal/infra/redis"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server       ServerConfig       `yaml:"server"`
	Logging      LoggingConfig      `yaml:"logging"`
	Poll         PollConfig         `yaml:"poll"`
	ChainDataTTL time.Duration      `yaml:"chain_data_ttl"`
	Breaker      BreakerConfig      `yaml:"breaker"`
	Redis        redisclient.Config `yaml:"redis"`
	Nodes        []NodeConfig       `yaml:"nodes"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// PollConfig controls the acquisition cadence shared by every node.
type PollConfig struct {
	Interval        time.Duration `yaml:"interval"`
	Timeout         time.Duration `yaml:"timeout"` // per fetch
	HistoryCapacity int           `yaml:"history_capacity"`
}

// BreakerConfig tunes the circuit breakers guarding node transports.
type BreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures"`
	OpenTimeout time.Duration `yaml:"open_timeout"`
}

// NodeConfig describes one monitored node.
type NodeConfig struct {
	Name           string   `yaml:"name"`
	RPCURL         string   `yaml:"rpc_url"`
	MetricsURL     string   `yaml:"metrics_url"` // empty = sample the local host
	CPUCores       int      `yaml:"cpu_cores"`   // 0 = detect
	ExcludeDevices []string `yaml:"exclude_devices"`
}

// DefaultExcludeDevices lists network device prefixes left out of traffic totals.
var DefaultExcludeDevices = []string{"lo", "docker", "veth", "br-", "virbr"}
