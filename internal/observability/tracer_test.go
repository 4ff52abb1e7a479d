package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTracer_DisabledReturnsNil(t *testing.T) {
	tr, err := NewTracer(context.Background(), &TracingConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, tr)

	tr, err = NewTracer(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, tr)
}

func TestNilTracer_MethodsAreSafe(t *testing.T) {
	var tr *Tracer
	assert.NotPanics(t, func() {
		ctx, span := tr.Start(context.Background(), "test")
		assert.NotNil(t, span)
		assert.NotNil(t, ctx)
		tr.RecordError(span, nil)
		_, pubSpan := tr.StartPublish(context.Background(), "agent_start", 1)
		pubSpan.End()
		assert.NoError(t, tr.Shutdown(context.Background()))
	})
}

func TestNewTracer_StdoutExporter(t *testing.T) {
	tr, err := NewTracer(context.Background(), &TracingConfig{Enabled: true, Exporter: "stdout"})
	require.NoError(t, err)
	require.NotNil(t, tr)
	defer tr.Shutdown(context.Background())

	ctx, span := tr.StartIngest(context.Background(), "application/json", 1)
	assert.NotNil(t, ctx)
	span.End()
}

func TestNewTracer_UnsupportedExporter(t *testing.T) {
	_, err := NewTracer(context.Background(), &TracingConfig{Enabled: true, Exporter: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestTracingConfig_SetDefaults(t *testing.T) {
	cfg := &TracingConfig{}
	cfg.SetDefaults()
	assert.Equal(t, "observability-dashboard", cfg.ServiceName)
	assert.Equal(t, "stdout", cfg.Exporter)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, 1.0, cfg.SamplingRate)
}
