package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_DisabledReturnsNil(t *testing.T) {
	m, err := NewMetrics(&MetricsConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = NewMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestNilMetrics_MethodsAreNoOps(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordSpanReceived("application/json", 3)
		m.RecordSpanDropped("unclassified", 1)
		m.RecordEventEmitted("agent_start")
		m.RecordIngestDuration("application/json", time.Millisecond)
		m.RecordPublish("agent_start", 3)
		m.SetSubscribersActive(2)
		m.RecordWSConnection()
		m.RecordWSDisconnect("client_disconnect")
		m.RecordHTTPRequest("GET", "/health", 200, time.Millisecond)
	})
	assert.Nil(t, m.Handler())
}

func TestNewMetrics_EnabledRegistersAndRecords(t *testing.T) {
	m, err := NewMetrics(&MetricsConfig{Enabled: true})
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.NotPanics(t, func() {
		m.RecordSpanReceived("application/x-protobuf", 4)
		m.RecordSpanDropped("missing_identity", 2)
		m.RecordPublish("tool_call_start", 5)
		m.SetSubscribersActive(5)
		m.RecordHTTPRequest("POST", "/v1/traces", 200, 10*time.Millisecond)
	})
	assert.NotNil(t, m.Handler())
}
