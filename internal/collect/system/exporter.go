package system

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/vietddude/nodepulse/internal/collect/exposition"
	"github.com/vietddude/nodepulse/internal/core/domain"
	"github.com/vietddude/nodepulse/internal/infra/exporter"
)

const (
	metricMemTotal     = "node_memory_MemTotal_bytes"
	metricMemAvailable = "node_memory_MemAvailable_bytes"
	metricCPUSeconds   = "node_cpu_seconds_total"
	metricNetReceive   = "node_network_receive_bytes_total"
	metricNetTransmit  = "node_network_transmit_bytes_total"
	metricLoad1        = "node_load1"
	metricLoad5        = "node_load5"
	metricLoad15       = "node_load15"
)

var exporterMetrics = []string{
	metricMemTotal, metricMemAvailable,
	metricCPUSeconds,
	metricNetReceive, metricNetTransmit,
	metricLoad1, metricLoad5, metricLoad15,
}

// ExporterSource reads a SystemSnapshot from a node_exporter endpoint.
type ExporterSource struct {
	scraper        exporter.Scraper
	parser         *exposition.Parser
	excludeDevices []string
	log            *slog.Logger
}

// NewExporterSource creates a source over the given scraper. Network devices
// whose name starts with one of excludeDevices are left out of traffic totals.
func NewExporterSource(scraper exporter.Scraper, excludeDevices []string) *ExporterSource {
	return &ExporterSource{
		scraper:        scraper,
		parser:         exposition.NewParser(exporterMetrics...),
		excludeDevices: excludeDevices,
		log:            slog.Default(),
	}
}

// Fetch scrapes once and extracts the snapshot. Metrics missing from the
// payload read as zero.
func (s *ExporterSource) Fetch(ctx context.Context) (*domain.SystemSnapshot, error) {
	body, err := s.scraper.Scrape(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMetricsUnavailable, err)
	}

	doc, err := s.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMetricsUnavailable, err)
	}
	if doc.Skipped > 0 {
		s.log.Debug("Skipped malformed exposition lines", "count", doc.Skipped)
	}
	for _, name := range exporterMetrics {
		if !doc.Has(name) {
			s.log.Debug("Metric missing from payload, reading as zero", "metric", name)
		}
	}

	return FromDocument(doc, s.excludeDevices), nil
}

// FromDocument extracts a SystemSnapshot from parsed exposition content.
func FromDocument(doc *exposition.Document, excludeDevices []string) *domain.SystemSnapshot {
	devices := exposition.ExcludePrefixes("device", excludeDevices...)

	return &domain.SystemSnapshot{
		RAMTotalBytes:     doc.Scalar(metricMemTotal),
		RAMAvailableBytes: doc.Scalar(metricMemAvailable),
		CPUUserSeconds:    doc.Sum(metricCPUSeconds, exposition.LabelEquals("mode", "user")),
		CPUSystemSeconds:  doc.Sum(metricCPUSeconds, exposition.LabelEquals("mode", "system")),
		NetReceiveBytes:   doc.Sum(metricNetReceive, devices),
		NetTransmitBytes:  doc.Sum(metricNetTransmit, devices),
		Load1:             doc.Scalar(metricLoad1),
		Load5:             doc.Scalar(metricLoad5),
		Load15:            doc.Scalar(metricLoad15),
		CPUCores:          doc.Distinct(metricCPUSeconds, "cpu", exposition.LabelEquals("mode", "idle")),
	}
}
