package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveBuildDuration("static", time.Second, OutcomeSuccess)
	r.IncBuildOutcome("static", OutcomeFailed)
	r.ObserveFlushDuration(time.Millisecond)
	r.IncRunOutcome(OutcomeSuccess)
	r.ObserveRunDuration(time.Second)
	r.SetRoutes(3)
}

func TestOutcomeFor(t *testing.T) {
	assert.Equal(t, OutcomeSuccess, OutcomeFor(nil))
	assert.Equal(t, OutcomeFailed, OutcomeFor(errors.New("x")))
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	r := NewPrometheusRecorder(reg)

	r.IncBuildOutcome("@vercel/static", OutcomeSuccess)
	r.IncBuildOutcome("@vercel/static", OutcomeSuccess)
	r.IncBuildOutcome("@vercel/node", OutcomeFailed)
	r.IncRunOutcome(OutcomeFailed)
	r.ObserveBuildDuration("@vercel/static", 20*time.Millisecond, OutcomeSuccess)
	r.ObserveFlushDuration(5 * time.Millisecond)
	r.ObserveRunDuration(time.Second)
	r.SetRoutes(4)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.ElementsMatch(t, []string{
		"assembler_build_duration_seconds",
		"assembler_build_outcomes_total",
		"assembler_flush_duration_seconds",
		"assembler_run_outcomes_total",
		"assembler_run_duration_seconds",
		"assembler_routes",
	}, names)

	path := filepath.Join(t.TempDir(), "assembler.prom")
	require.NoError(t, r.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `assembler_build_outcomes_total{builder="@vercel/static",outcome="success"} 2`)
	assert.Contains(t, text, `assembler_build_outcomes_total{builder="@vercel/node",outcome="failed"} 1`)
	assert.Contains(t, text, `assembler_routes 4`)
}

func TestNilPrometheusRecorder(t *testing.T) {
	var r *PrometheusRecorder
	r.IncRunOutcome(OutcomeSuccess)
	r.SetRoutes(1)
	assert.NoError(t, r.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
}

func TestWriteTextfile(t *testing.T) {
	r := NewPrometheusRecorder(nil)
	r.IncRunOutcome(OutcomeSuccess)

	path := filepath.Join(t.TempDir(), "assembler.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `assembler_run_outcomes_total{outcome="success"} 1`))
}
