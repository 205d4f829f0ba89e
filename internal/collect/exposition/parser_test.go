package exposition

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nodeExporterSample = `# HELP node_cpu_seconds_total Seconds the CPUs spent in each mode.
# TYPE node_cpu_seconds_total counter
node_cpu_seconds_total{cpu="0",mode="idle"} 1000.5
node_cpu_seconds_total{cpu="0",mode="system"} 20.25
node_cpu_seconds_total{cpu="0",mode="user"} 50
node_cpu_seconds_total{mode="idle",cpu="1"} 990
node_cpu_seconds_total{cpu="1",mode="system"} 10.75
node_cpu_seconds_total{cpu="1",mode="user"} 40
# HELP node_load1 1m load average.
# TYPE node_load1 gauge
node_load1 0.42
node_load15 0.15
node_load5 0.3
node_memory_MemAvailable_bytes 4.294967296e+09
node_memory_MemTotal_bytes 8.589934592e+09
node_network_receive_bytes_total{device="eth0"} 1000
node_network_receive_bytes_total{device="lo"} 999999
node_network_receive_bytes_total{device="docker0"} 5000
node_network_receive_bytes_total{device="veth12ab"} 7000
node_network_receive_bytes_total{device="wlan0"} 200
`

func parse(t *testing.T, payload string, names ...string) *Document {
	t.Helper()
	doc, err := NewParser(names...).Parse(strings.NewReader(payload))
	require.NoError(t, err)
	return doc
}

func TestParse_Scalars(t *testing.T) {
	doc := parse(t, nodeExporterSample, "node_load1", "node_load5", "node_load15",
		"node_memory_MemTotal_bytes", "node_memory_MemAvailable_bytes")

	assert.Equal(t, 0.42, doc.Scalar("node_load1"))
	assert.Equal(t, 0.3, doc.Scalar("node_load5"))
	assert.Equal(t, 0.15, doc.Scalar("node_load15"))
	assert.Equal(t, 8589934592.0, doc.Scalar("node_memory_MemTotal_bytes"))
	assert.Equal(t, 4294967296.0, doc.Scalar("node_memory_MemAvailable_bytes"))
	assert.Zero(t, doc.Skipped)
}

func TestParse_ExactNameMatch(t *testing.T) {
	doc := parse(t, "node_load15 9\nnode_load1 1\n", "node_load1")

	assert.Equal(t, 1.0, doc.Scalar("node_load1"))
	assert.False(t, doc.Has("node_load15"))
}

func TestParse_MissingMetricIsZero(t *testing.T) {
	doc := parse(t, nodeExporterSample, "node_memory_MemTotal_bytes", "node_does_not_exist")

	assert.False(t, doc.Has("node_does_not_exist"))
	assert.Zero(t, doc.Scalar("node_does_not_exist"))
	assert.Zero(t, doc.Sum("node_does_not_exist", nil))
	assert.Zero(t, doc.Distinct("node_does_not_exist", "cpu", nil))
}

func TestParse_UnwantedMetricsAreDropped(t *testing.T) {
	doc := parse(t, nodeExporterSample, "node_load1")

	assert.False(t, doc.Has("node_load5"))
	assert.Empty(t, doc.Series("node_cpu_seconds_total"))
}

func TestParse_SumByLabel(t *testing.T) {
	doc := parse(t, nodeExporterSample, "node_cpu_seconds_total")

	assert.InDelta(t, 90.0, doc.Sum("node_cpu_seconds_total", LabelEquals("mode", "user")), 1e-9)
	assert.InDelta(t, 31.0, doc.Sum("node_cpu_seconds_total", LabelEquals("mode", "system")), 1e-9)
	assert.Equal(t, 2, doc.Distinct("node_cpu_seconds_total", "cpu", LabelEquals("mode", "idle")))
}

func TestParse_DevicePrefixExclusion(t *testing.T) {
	doc := parse(t, nodeExporterSample, "node_network_receive_bytes_total")

	got := doc.Sum("node_network_receive_bytes_total",
		ExcludePrefixes("device", "lo", "docker", "veth", "br-", "virbr"))
	assert.Equal(t, 1200.0, got)

	all := doc.Sum("node_network_receive_bytes_total", nil)
	assert.Equal(t, 1013199.0, all)
}

func TestParse_MalformedLinesAreSkipped(t *testing.T) {
	payload := strings.Join([]string{
		`node_load1 not-a-number`,
		`node_load5`,
		`node_cpu_seconds_total{cpu="0",mode="user" 12`,
		`node_load15 0.7`,
		`node_cpu_seconds_total{cpu="0",mode="user"} 3`,
		`node_load1 NaN`,
	}, "\n")

	doc := parse(t, payload, "node_load1", "node_load5", "node_load15", "node_cpu_seconds_total")

	assert.Equal(t, 4, doc.Skipped)
	assert.Equal(t, 0.7, doc.Scalar("node_load15"))
	assert.Zero(t, doc.Scalar("node_load1"))
	assert.Equal(t, 3.0, doc.Sum("node_cpu_seconds_total", LabelEquals("mode", "user")))
}

func TestParse_TimestampsAndWhitespace(t *testing.T) {
	doc := parse(t, "\n   node_load1 1.5 1700000000000\n\n# trailing comment\n", "node_load1")
	assert.Equal(t, 1.5, doc.Scalar("node_load1"))
}

func TestParse_NoNamesKeepsEverything(t *testing.T) {
	doc := parse(t, nodeExporterSample)
	assert.True(t, doc.Has("node_load5"))
	assert.True(t, doc.Has("node_cpu_seconds_total"))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestParse_ReaderError(t *testing.T) {
	_, err := NewParser("node_load1").Parse(failingReader{})
	require.Error(t, err)
}

func TestMatchers(t *testing.T) {
	l := Labels{"device": "eth0", "mode": "user"}

	assert.True(t, LabelEquals("mode", "user")(l))
	assert.False(t, LabelEquals("mode", "idle")(l))
	assert.True(t, ExcludePrefixes("device", "lo")(l))
	assert.False(t, ExcludePrefixes("device", "eth")(l))
	assert.True(t, ExcludePrefixes("missing", "eth")(l))
	assert.True(t, And(LabelEquals("mode", "user"), ExcludePrefixes("device", "lo"))(l))
	assert.False(t, And(LabelEquals("mode", "user"), ExcludePrefixes("device", "eth"))(l))
}
