package httpapi

import (
	"compress/gzip"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	collectortracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"

	"github.com/agentic-layer/observability-dashboard/internal/events"
	"github.com/agentic-layer/observability-dashboard/internal/preprocessor"
)

func workforceNameOf(h events.Header) string {
	if h.WorkforceName == nil {
		return ""
	}
	return *h.WorkforceName
}

const (
	contentTypeProtobuf = "application/x-protobuf"
	contentTypeJSON     = "application/json"
)

// handleTraces implements POST /v1/traces: decode an OTLP export request
// (protobuf or JSON, optionally gzip-compressed), run it through the
// preprocessor, publish every resulting event, and respond with an empty
// ExportTraceServiceResponse in the same encoding as the request.
func (h *handlers) handleTraces(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	contentType := r.Header.Get("Content-Type")

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		http.Error(w, "Unsupported media type", http.StatusUnsupportedMediaType)
		return
	}

	var isJSON bool
	switch mediaType {
	case contentTypeProtobuf:
		isJSON = false
	case contentTypeJSON:
		isJSON = true
	default:
		http.Error(w, "Unsupported media type", http.StatusUnsupportedMediaType)
		return
	}

	body, err := readBody(r)
	if err != nil {
		slog.Warn("httpapi: failed to read gzip body", "error", err, "path", r.URL.Path)
		http.Error(w, "Invalid gzip data", http.StatusBadRequest)
		return
	}

	req := &collectortracepb.ExportTraceServiceRequest{}
	if isJSON {
		if err := protojson.Unmarshal(body, req); err != nil {
			slog.Warn("httpapi: failed to parse OTLP JSON body", "error", err)
			http.Error(w, "Invalid protobuf data", http.StatusBadRequest)
			return
		}
	} else {
		if err := proto.Unmarshal(body, req); err != nil {
			slog.Warn("httpapi: failed to parse OTLP protobuf body", "error", err)
			http.Error(w, "Invalid protobuf data", http.StatusBadRequest)
			return
		}
	}

	ctx, span := h.tracer.StartIngest(r.Context(), contentType, len(req.ResourceSpans))
	defer span.End()

	out, stats := preprocessor.Process(req)
	if h.metrics != nil {
		h.metrics.RecordSpanReceived(contentType, stats.SpanCount)
		for reason, count := range stats.DroppedByReason {
			h.metrics.RecordSpanDropped(reason, count)
		}
	}
	for _, ev := range out {
		if h.metrics != nil {
			h.metrics.RecordEventEmitted(ev.GetHeader().EventType)
		}
		n := 0
		if h.distributor != nil {
			if h.registry != nil {
				h.registry.Register(ev.GetHeader().ConversationID, workforceNameOf(ev.GetHeader()))
			}
			h.distributor.Publish(ev)
			n = h.distributor.Count()
		}
		_, pubSpan := h.tracer.StartPublish(ctx, ev.GetHeader().EventType, n)
		pubSpan.End()
		if h.metrics != nil {
			h.metrics.RecordPublish(ev.GetHeader().EventType, n)
		}
	}

	resp := &collectortracepb.ExportTraceServiceResponse{}
	writeResponse(w, resp, isJSON)

	if h.metrics != nil {
		h.metrics.RecordIngestDuration(contentType, time.Since(start))
	}
}

func readBody(r *http.Request) ([]byte, error) {
	body := r.Body
	if r.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(r.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		return io.ReadAll(gz)
	}
	return io.ReadAll(body)
}

func writeResponse(w http.ResponseWriter, resp *collectortracepb.ExportTraceServiceResponse, isJSON bool) {
	if isJSON {
		data, err := protojson.Marshal(resp)
		if err != nil {
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", contentTypeJSON)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	data, err := proto.Marshal(resp)
	if err != nil {
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeProtobuf)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
