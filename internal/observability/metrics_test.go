package observability

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"growthops/internal/config"
)

func TestMetrics_Recorders(t *testing.T) {
	m := NewMetrics()
	m.ObserveExecution("partial", 1500*time.Millisecond, 10)
	m.ObserveExecution("success", time.Second, 0)
	m.PluginRun("skipped")
	m.WriteRetry("finalize")
	m.Reaped(3)
	m.Reaped(0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.executions.WithLabelValues("partial")))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.xpEarned))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pluginRuns.WithLabelValues("skipped")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.reaped))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveExecution("success", time.Second, 1)
	m.PluginRun("success")
	m.WriteFailure("create")
	m.Rejected("validation")
	m.ProgressUpdate("ok")
}

func TestInitTracing_DisabledReturnsNoop(t *testing.T) {
	shutdown := InitTracing(context.Background(), nil, config.TracingConfig{}, config.AppConfig{})
	assert.NoError(t, shutdown(context.Background()))
}

func TestClampRatio(t *testing.T) {
	assert.Equal(t, 0.0, clampRatio(-1))
	assert.Equal(t, 1.0, clampRatio(4))
	assert.Equal(t, 0.25, clampRatio(0.25))
}
