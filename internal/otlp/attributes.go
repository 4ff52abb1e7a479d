// Package otlp decodes OTLP attribute values and span trees into the
// primitive, string-keyed attribute maps the rest of the pipeline works
// with, and classifies spans into communication-event kinds.
package otlp

import (
	"log/slog"

	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"
)

// DecodeAttributeValue extracts the primitive Go value carried by an OTLP
// AnyValue. Arrays, maps, and byte strings are not supported by this
// pipeline and decode to (nil, false); callers drop such attributes.
func DecodeAttributeValue(v *commonpb.AnyValue) (any, bool) {
	if v == nil {
		return nil, false
	}
	switch val := v.Value.(type) {
	case *commonpb.AnyValue_StringValue:
		return val.StringValue, true
	case *commonpb.AnyValue_IntValue:
		return val.IntValue, true
	case *commonpb.AnyValue_DoubleValue:
		return val.DoubleValue, true
	case *commonpb.AnyValue_BoolValue:
		return val.BoolValue, true
	default:
		slog.Debug("otlp: unsupported attribute value type", "go_type", val)
		return nil, false
	}
}

// FlattenAttributes turns a span's (or resource's) attribute list into a
// string-keyed map of primitives. OTLP forbids duplicate keys, but the
// instrumentation is tolerated as potentially producing them: duplicates
// resolve last-write-wins, matching append-order of the attribute slice.
func FlattenAttributes(attrs []*commonpb.KeyValue) map[string]any {
	out := make(map[string]any, len(attrs))
	for _, attr := range attrs {
		if attr == nil {
			continue
		}
		value, ok := DecodeAttributeValue(attr.Value)
		if !ok {
			continue
		}
		out[attr.Key] = value
	}
	return out
}

// SpanAttributes is a convenience wrapper for flattening a span's own
// attribute list.
func SpanAttributes(span *tracepb.Span) map[string]any {
	if span == nil {
		return map[string]any{}
	}
	return FlattenAttributes(span.Attributes)
}

// ResourceWorkforceName searches a ResourceSpans' resource attributes for
// the agentic_layer.workforce key and returns it, or "" if absent or not a
// string.
func ResourceWorkforceName(rs *tracepb.ResourceSpans) string {
	if rs == nil || rs.Resource == nil {
		return ""
	}
	for _, attr := range rs.Resource.Attributes {
		if attr == nil || attr.Key != "agentic_layer.workforce" {
			continue
		}
		if v, ok := DecodeAttributeValue(attr.Value); ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

// AttrString reads a string attribute, defaulting to "" for anything
// missing or non-string (extractors must be total — no error returns).
func AttrString(attrs map[string]any, key string) string {
	if v, ok := attrs[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// AttrBool reads a bool attribute, treating a missing or non-bool value as
// false.
func AttrBool(attrs map[string]any, key string) bool {
	if v, ok := attrs[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

// AttrInt reads an integer attribute, accepting OTLP's int64 representation
// (and, defensively, float64) and defaulting to 0.
func AttrInt(attrs map[string]any, key string) int {
	v, ok := attrs[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}
