// Package exporter fetches Prometheus exposition text from node_exporter style
// endpoints.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/vietddude/nodepulse/internal/infra/breaker"
)

const maxBodySize = 32 << 20

// ErrCircuitOpen is returned while the endpoint's breaker rejects scrapes.
var ErrCircuitOpen = errors.New("circuit open")

// Scraper returns one exposition payload.
type Scraper interface {
	Scrape(ctx context.Context) ([]byte, error)
}

// HTTPScraper scrapes a metrics URL over HTTP.
type HTTPScraper struct {
	url        string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
}

// NewHTTPScraper creates a scraper for the given metrics URL.
func NewHTTPScraper(name, url string, timeout time.Duration, bs breaker.Settings) *HTTPScraper {
	return &HTTPScraper{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		cb:         breaker.New("exporter:"+name, bs),
	}
}

// Scrape fetches the payload. Transport failures and non-2xx statuses are
// errors; the body is returned unparsed.
func (s *HTTPScraper) Scrape(ctx context.Context) ([]byte, error) {
	out, err := s.cb.Execute(func() (interface{}, error) {
		return s.get(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %s", ErrCircuitOpen, s.url)
		}
		return nil, err
	}
	return out.([]byte), nil
}

func (s *HTTPScraper) get(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scrape: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("scrape: http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// State reports the breaker state.
func (s *HTTPScraper) State() string {
	return s.cb.State().String()
}
