// Package preprocessor walks a decoded OTLP ExportTraceServiceRequest and
// turns every recognized span into a communication event, in encounter
// order. It never errors: spans that don't match the communication-event
// shape are dropped silently (with a debug log from the otlp package).
package preprocessor

import (
	collectortracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"

	"github.com/agentic-layer/observability-dashboard/internal/events"
	"github.com/agentic-layer/observability-dashboard/internal/factory"
	"github.com/agentic-layer/observability-dashboard/internal/otlp"
)

// Stats summarizes one Process call for the caller's metrics: the total
// number of spans walked (regardless of outcome) and how many were dropped,
// broken down by the otlp.DropReason* the classifier reported.
type Stats struct {
	SpanCount       int
	DroppedByReason map[string]int
}

// Process extracts every communication event from req, in the order its
// spans were encountered (resource_spans, then scope_spans, then spans).
func Process(req *collectortracepb.ExportTraceServiceRequest) ([]events.Event, Stats) {
	stats := Stats{DroppedByReason: map[string]int{}}
	if req == nil {
		return nil, stats
	}

	var out []events.Event
	for _, rs := range req.ResourceSpans {
		if rs == nil {
			continue
		}
		workforceName := otlp.ResourceWorkforceName(rs)

		for _, ss := range rs.ScopeSpans {
			if ss == nil {
				continue
			}
			for _, span := range ss.Spans {
				if span == nil {
					continue
				}
				stats.SpanCount++
				attrs := otlp.SpanAttributes(span)
				classified, reason, ok := otlp.Classify(span.Name, int64(span.StartTimeUnixNano), attrs)
				if !ok {
					stats.DroppedByReason[reason]++
					continue
				}
				ev := factory.Build(classified, workforceName)
				if ev == nil {
					stats.DroppedByReason["unbuildable"]++
					continue
				}
				out = append(out, ev)
			}
		}
	}
	return out, stats
}
