// Package exposition extracts a fixed set of metrics from Prometheus text
// exposition payloads such as the one served by node_exporter.
//
// Only a subset of the format is understood, one sample per line:
//
//	# HELP / # TYPE / any comment          ignored
//	metric_name value [timestamp]
//	metric_name{label="v",...} value [timestamp]
//
// A line belongs to a metric when its name token equals the metric name
// exactly. Each candidate line is tokenized on its own, so a malformed line or
// a non-finite value is skipped without affecting the rest of the payload.
// Metrics that do not appear read as zero.
package exposition

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/prometheus/common/model"

	"github.com/vietddude/nodepulse/internal/pipeline/metrics"
)

const maxLineSize = 1 << 20

var errNoSample = errors.New("line holds no sample")

// Labels maps label names to values for one series.
type Labels map[string]string

// Series is a single labelled sample.
type Series struct {
	Labels Labels
	Value  float64
}

// Parser scans exposition text for a set of wanted metric names.
type Parser struct {
	names map[string]struct{}
	log   *slog.Logger
}

// NewParser creates a parser that retains only the named metrics.
// With no names every metric is retained.
func NewParser(names ...string) *Parser {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return &Parser{names: set, log: slog.Default()}
}

// Parse reads the whole payload. Only a read error fails the parse.
func (p *Parser) Parse(r io.Reader) (*Document, error) {
	doc := &Document{series: make(map[string][]Series)}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}

		name := metricName(line)
		if !p.wants(name) {
			continue
		}

		s, err := parseLine(line)
		if err != nil {
			doc.Skipped++
			metrics.ExpositionLinesSkipped.Inc()
			p.log.Debug("Skipping exposition line", "line", lineNo, "metric", name, "error", err)
			continue
		}
		doc.series[name] = append(doc.series[name], s)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read exposition: %w", err)
	}

	return doc, nil
}

func (p *Parser) wants(name string) bool {
	if name == "" {
		return false
	}
	if len(p.names) == 0 {
		return true
	}
	_, ok := p.names[name]
	return ok
}

func metricName(line string) string {
	if i := strings.IndexAny(line, "{ \t"); i >= 0 {
		return line[:i]
	}
	return line
}

func parseLine(line string) (Series, error) {
	tp := expfmt.NewTextParser(model.UTF8Validation)
	families, err := tp.TextToMetricFamilies(strings.NewReader(line + "\n"))
	if err != nil {
		return Series{}, err
	}

	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			return seriesOf(m)
		}
	}

	return Series{}, errNoSample
}

// seriesOf converts one untyped sample. Lines carry no TYPE header, so
// every sample decodes as untyped.
func seriesOf(m *dto.Metric) (Series, error) {
	v := m.GetUntyped().GetValue()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Series{}, fmt.Errorf("non-finite value %v", v)
	}
	labels := make(Labels, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		labels[lp.GetName()] = lp.GetValue()
	}
	return Series{Labels: labels, Value: v}, nil
}
