package emulator

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	stats := NewStatistics()
	bus := NewBus(WithStatistics(stats))
	bus.Attach(&recorder{name: "a"})
	bus.Attach(&recorder{name: "b"})

	require.NoError(t, RegisterMetrics(reg, stats, bus))

	stats.LinkFramesIn.Add(3)
	stats.ChecksumErrors.Add(1)

	expected := `
# HELP hapsim_link_frames_in_total Frames received from the host.
# TYPE hapsim_link_frames_in_total counter
hapsim_link_frames_in_total 3
# HELP hapsim_checksum_errors_total Link frames dropped for a bad checksum.
# TYPE hapsim_checksum_errors_total counter
hapsim_checksum_errors_total 1
# HELP hapsim_bus_nodes Nodes attached to the bus.
# TYPE hapsim_bus_nodes gauge
hapsim_bus_nodes 2
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"hapsim_link_frames_in_total", "hapsim_checksum_errors_total", "hapsim_bus_nodes")
	assert.NoError(t, err)

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 11, count)
}

func TestRegisterMetrics_Twice(t *testing.T) {
	reg := prometheus.NewRegistry()
	stats := NewStatistics()

	require.NoError(t, RegisterMetrics(reg, stats, nil))
	assert.Error(t, RegisterMetrics(reg, stats, nil))
}

func TestMetricsHandler(t *testing.T) {
	reg := NewMetricsRegistry()
	stats := NewStatistics()
	require.NoError(t, RegisterMetrics(reg, stats, nil))
	stats.Responses.Add(5)

	srv := httptest.NewServer(MetricsHandler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "hapsim_responses_total 5")
	assert.Contains(t, string(body), "go_goroutines")
}
