package otlp

import (
	"log/slog"
	"strings"
	"time"

	"github.com/agentic-layer/observability-dashboard/internal/events"
)

// ClassifiedSpan is the output of Classify: enough information for the
// event factory to build a concrete event. When Classify's bool result is
// false the span should be dropped silently.
type ClassifiedSpan struct {
	EventType      string
	ActingAgent    string
	ConversationID string
	Timestamp      string
	Attributes     map[string]any
}

// eventTypeByPrefix maps lower-cased span-name prefixes to event kinds.
// Order matters only in that prefixes are checked longest-match-irrelevant:
// every prefix here is distinct enough that at most one matches a given
// span name (see spec §4.4).
var eventTypeByPrefix = []struct {
	prefix string
	kind   string
}{
	{"before_agent", events.TypeAgentStart},
	{"after_agent", events.TypeAgentEnd},
	{"before_model", events.TypeLLMCallStart},
	{"before_llm", events.TypeLLMCallStart},
	{"after_model", events.TypeLLMCallEnd},
	{"after_llm", events.TypeLLMCallEnd},
	{"on_model_error", events.TypeLLMCallError},
	{"before_tool", events.TypeToolCallStart},
	{"after_tool", events.TypeToolCallEnd},
	{"on_tool_error", events.TypeToolCallError},
}

// eventTypeForSpanName returns the event kind for a span name, or "" if the
// name matches no recognized prefix.
func eventTypeForSpanName(name string) string {
	lower := strings.ToLower(name)
	for _, entry := range eventTypeByPrefix {
		if strings.HasPrefix(lower, entry.prefix) {
			return entry.kind
		}
	}
	return ""
}

// timestampToISO converts a span's start_time_unix_nano to an ISO-8601 UTC
// string with a trailing "Z". Returns ("", false) for negative or
// unrepresentable values (timestamp overflow is treated as span drop).
func timestampToISO(unixNano int64) (string, bool) {
	if unixNano < 0 {
		return "", false
	}
	t := time.Unix(0, unixNano).UTC()
	// time.Unix never errors, but guard against absurd years that would
	// indicate an overflowed/garbage nanosecond value upstream.
	if t.Year() < 1 || t.Year() > 9999 {
		return "", false
	}
	return t.Format("2006-01-02T15:04:05.999999999Z"), true
}

// Drop reasons reported to the caller for the dashboard_spans_dropped_total
// metric; kept distinct from the slog messages below since label values
// should stay low-cardinality and stable across log-message wording changes.
const (
	DropReasonMissingFlag      = "missing_dashboard_flag"
	DropReasonMissingIdentity  = "missing_identity"
	DropReasonUnrecognizedName = "unrecognized_span_name"
	DropReasonInvalidTimestamp = "invalid_timestamp"
)

// Classify applies the span classifier from spec §4.4: the dashboard flag
// and required identity attributes gate every other check, then the span
// name prefix determines the event kind, then the timestamp is converted.
// Any failure returns (ClassifiedSpan{}, reason, false) and the caller drops
// the span silently (with a debug log here, or a warning for an invalid
// timestamp).
func Classify(spanName string, startTimeUnixNano int64, attrs map[string]any) (ClassifiedSpan, string, bool) {
	if !AttrBool(attrs, "agent_communication_dashboard") {
		slog.Debug("otlp: span missing agent_communication_dashboard flag", "span", spanName)
		return ClassifiedSpan{}, DropReasonMissingFlag, false
	}

	conversationID := AttrString(attrs, "conversation_id")
	agentName := AttrString(attrs, "agent_name")
	if conversationID == "" || agentName == "" {
		slog.Debug("otlp: span missing conversation_id or agent_name", "span", spanName)
		return ClassifiedSpan{}, DropReasonMissingIdentity, false
	}

	kind := eventTypeForSpanName(spanName)
	if kind == "" {
		slog.Debug("otlp: span name matched no communication event pattern", "span", spanName)
		return ClassifiedSpan{}, DropReasonUnrecognizedName, false
	}

	ts, ok := timestampToISO(startTimeUnixNano)
	if !ok {
		slog.Warn("otlp: invalid start_time_unix_nano, dropping span", "span", spanName, "unix_nano", startTimeUnixNano)
		return ClassifiedSpan{}, DropReasonInvalidTimestamp, false
	}

	return ClassifiedSpan{
		EventType:      kind,
		ActingAgent:    agentName,
		ConversationID: conversationID,
		Timestamp:      ts,
		Attributes:     attrs,
	}, "", true
}
