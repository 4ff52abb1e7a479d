package httpapi

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"google.golang.org/protobuf/proto"

	collectortracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"

	"github.com/agentic-layer/observability-dashboard/internal/distributor"
	"github.com/agentic-layer/observability-dashboard/internal/observability"
	"github.com/agentic-layer/observability-dashboard/internal/registry"
)

func strAttr(key, value string) *commonpb.KeyValue {
	return &commonpb.KeyValue{Key: key, Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: value}}}
}

func boolAttr(key string, value bool) *commonpb.KeyValue {
	return &commonpb.KeyValue{Key: key, Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_BoolValue{BoolValue: value}}}
}

func sampleRequest() *collectortracepb.ExportTraceServiceRequest {
	return &collectortracepb.ExportTraceServiceRequest{
		ResourceSpans: []*tracepb.ResourceSpans{
			{
				Resource: &resourcepb.Resource{Attributes: []*commonpb.KeyValue{
					strAttr("agentic_layer.workforce", "billing-team"),
				}},
				ScopeSpans: []*tracepb.ScopeSpans{
					{
						Spans: []*tracepb.Span{
							{
								Name:              "before_agent_run",
								StartTimeUnixNano: 1735779845000000000,
								Attributes: []*commonpb.KeyValue{
									boolAttr("agent_communication_dashboard", true),
									strAttr("conversation_id", "conv-1"),
									strAttr("agent_name", "researcher"),
								},
							},
						},
					},
				},
			},
		},
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *distributor.Distributor, *registry.Registry) {
	t.Helper()
	dist := distributor.New()
	reg := registry.New(time.Hour)
	router := NewRouter(Config{Distributor: dist, Registry: reg})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, dist, reg
}

func TestHandleHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandleTraces_UnsupportedMediaType(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp, err := http.Post(srv.URL+"/v1/traces", "text/plain", strings.NewReader("nope"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestHandleTraces_ContentTypeWithCharsetParamAccepted(t *testing.T) {
	srv, _, reg := newTestServer(t)
	body, err := proto.Marshal(sampleRequest())
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/traces", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentTypeProtobuf+"; charset=utf-8")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"conv-1"}, reg.ConversationIDs())
}

func TestHandleTraces_InvalidGzip(t *testing.T) {
	srv, _, _ := newTestServer(t)
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/traces", strings.NewReader("not gzip"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentTypeProtobuf)
	req.Header.Set("Content-Encoding", "gzip")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleTraces_InvalidProtobuf(t *testing.T) {
	srv, _, _ := newTestServer(t)
	// An unterminated varint (every byte has its continuation bit set) is
	// malformed at the wire-format level regardless of message schema.
	malformed := bytes.Repeat([]byte{0xFF}, 16)
	resp, err := http.Post(srv.URL+"/v1/traces", contentTypeProtobuf, bytes.NewReader(malformed))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleTraces_SuccessProtobuf_PopulatesRegistryAndResponds(t *testing.T) {
	srv, _, reg := newTestServer(t)
	body, err := proto.Marshal(sampleRequest())
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/v1/traces", contentTypeProtobuf, bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, contentTypeProtobuf, resp.Header.Get("Content-Type"))

	assert.Equal(t, []string{"conv-1"}, reg.ConversationIDs())
	assert.Equal(t, []string{"billing-team"}, reg.WorkforceNames())
}

func TestHandleTraces_SuccessGzipEncoded(t *testing.T) {
	srv, _, reg := newTestServer(t)
	raw, err := proto.Marshal(sampleRequest())
	require.NoError(t, err)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err = gz.Write(raw)
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/traces", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentTypeProtobuf)
	req.Header.Set("Content-Encoding", "gzip")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"conv-1"}, reg.ConversationIDs())
}

// TestHandleTraces_MetricsCountPerSpanNotPerRequest guards against recording
// spans_received/spans_dropped per export request instead of per span: a
// single request here carries one acceptable span and one span missing the
// dashboard flag, and the scraped counters must reflect 2 received, 1
// dropped - not 1 received for the whole request.
func TestHandleTraces_MetricsCountPerSpanNotPerRequest(t *testing.T) {
	metrics, err := observability.NewMetrics(&observability.MetricsConfig{Enabled: true})
	require.NoError(t, err)
	require.NotNil(t, metrics)

	dist := distributor.New()
	reg := registry.New(time.Hour)
	router := NewRouter(Config{Distributor: dist, Registry: reg, Metrics: metrics})
	srv := httptest.NewServer(router)
	defer srv.Close()

	req := sampleRequest()
	droppedSpan := &tracepb.Span{
		Name:              "before_agent_run",
		StartTimeUnixNano: 1735779845000000000,
		Attributes: []*commonpb.KeyValue{
			strAttr("conversation_id", "conv-1"),
			strAttr("agent_name", "researcher"),
		},
	}
	req.ResourceSpans[0].ScopeSpans[0].Spans = append(req.ResourceSpans[0].ScopeSpans[0].Spans, droppedSpan)

	body, err := proto.Marshal(req)
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/v1/traces", contentTypeProtobuf, bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	scrape, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer scrape.Body.Close()
	data, err := io.ReadAll(scrape.Body)
	require.NoError(t, err)
	scraped := string(data)

	assert.Contains(t, scraped, `dashboard_ingest_spans_received_total{content_type="application/x-protobuf"} 2`)
	assert.Contains(t, scraped, `dashboard_ingest_spans_dropped_total{reason="missing_dashboard_flag"} 1`)
}

func TestHandleFilters_EmptyByDefault(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/filters")
	require.NoError(t, err)
	defer resp.Body.Close()

	var got filtersResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, []string{}, got.ConversationIDs)
	assert.Equal(t, []string{}, got.WorkforceNames)
}

func TestHandleFilterStats(t *testing.T) {
	srv, _, reg := newTestServer(t)
	reg.Register("conv-1", "team-a")

	resp, err := http.Get(srv.URL + "/api/filters/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var got filterStatsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, 1, got.ConversationIDsCount)
	assert.Equal(t, 1, got.WorkforceNamesCount)
}

// TestWebsocket_EndToEnd drives the full ingress -> distribute -> subscriber
// path: a websocket client subscribes with a conversation_id filter, a
// matching OTLP export is POSTed, and the client must receive the welcome
// frame followed by the resulting event frame.
func TestWebsocket_EndToEnd(t *testing.T) {
	srv, _, _ := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?conversation_id=conv-1"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	_, welcome, err := conn.ReadMessage()
	require.NoError(t, err)
	var welcomeMsg map[string]any
	require.NoError(t, json.Unmarshal(welcome, &welcomeMsg))
	assert.Equal(t, "connection_established", welcomeMsg["type"])

	body, err := proto.Marshal(sampleRequest())
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/v1/traces", contentTypeProtobuf, bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, eventFrame, err := conn.ReadMessage()
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(eventFrame, &got))
	assert.Equal(t, "agent_start", got["event_type"])
	assert.Equal(t, "conv-1", got["conversation_id"])
	assert.Equal(t, "billing-team", got["workforce_name"])
}

// TestWebsocket_UpgradeSucceedsWithMetricsMiddlewareInstalled guards against
// a regression where metricsMiddleware's responseWriter wrapper doesn't
// implement http.Hijacker: gorilla/websocket's Upgrade asserts on that
// interface and fails the upgrade with 500 if it's missing. newTestServer's
// other tests run with Metrics nil, which skips the middleware entirely and
// would not catch this.
func TestWebsocket_UpgradeSucceedsWithMetricsMiddlewareInstalled(t *testing.T) {
	metrics, err := observability.NewMetrics(&observability.MetricsConfig{Enabled: true})
	require.NoError(t, err)
	require.NotNil(t, metrics)

	dist := distributor.New()
	reg := registry.New(time.Hour)
	router := NewRouter(Config{Distributor: dist, Registry: reg, Metrics: metrics})
	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?conversation_id=conv-1"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err, "upgrade must succeed even with the metrics middleware installed")
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	_, welcome, err := conn.ReadMessage()
	require.NoError(t, err)
	var welcomeMsg map[string]any
	require.NoError(t, json.Unmarshal(welcome, &welcomeMsg))
	assert.Equal(t, "connection_established", welcomeMsg["type"])
}

func TestWebsocket_NonMatchingFilterReceivesNoEvent(t *testing.T) {
	srv, _, _ := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?conversation_id=some-other-conv"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	_, _, err = conn.ReadMessage() // welcome frame
	require.NoError(t, err)

	body, err := proto.Marshal(sampleRequest())
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/v1/traces", contentTypeProtobuf, bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err) // deadline exceeded: no event delivered
}
