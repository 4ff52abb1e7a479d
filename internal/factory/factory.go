// Package factory builds concrete communication events from a classified
// span, applying the agent-invocation heuristic and the tool-response
// JSON-unwrap rule from spec §4.5.
package factory

import (
	"encoding/json"
	"log/slog"

	"github.com/agentic-layer/observability-dashboard/internal/events"
	"github.com/agentic-layer/observability-dashboard/internal/extract"
	"github.com/agentic-layer/observability-dashboard/internal/otlp"
)

func header(c otlp.ClassifiedSpan, workforceName string) events.Header {
	h := events.Header{
		ActingAgent:    c.ActingAgent,
		ConversationID: c.ConversationID,
		Timestamp:      c.Timestamp,
		EventType:      c.EventType,
		InvocationID:   otlp.AttrString(c.Attributes, "invocation_id"),
	}
	if workforceName != "" {
		h.WorkforceName = &workforceName
	}
	return h
}

// isAgentToolCall implements the agent-call heuristic: transfer_to_agent is
// the legacy pattern; a single-argument "args.request" call is the AgentTool
// pattern.
func isAgentToolCall(attrs map[string]any) bool {
	if otlp.AttrString(attrs, "tool_name") == "transfer_to_agent" {
		return true
	}
	args := extract.Arguments(attrs)
	if len(args) == 1 {
		_, ok := args["request"]
		return ok
	}
	return false
}

func invokedAgentName(attrs map[string]any) string {
	if otlp.AttrString(attrs, "tool_name") == "transfer_to_agent" {
		return extract.InvokedAgent(attrs)
	}
	return otlp.AttrString(attrs, "tool_name")
}

// unwrapToolResponseText parses response["text"] as JSON in place when it
// is a string; parse failures leave the string untouched.
func unwrapToolResponseText(response map[string]any) map[string]any {
	raw, ok := response["text"].(string)
	if !ok {
		return response
	}
	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return response
	}
	response["text"] = parsed
	return response
}

// Build dispatches on the classified span's event kind and constructs the
// concrete event, applying the agent-invocation heuristic for tool calls
// and the JSON-unwrap rule for tool_call_end/invoke_agent_end.
func Build(c otlp.ClassifiedSpan, workforceName string) events.Event {
	h := header(c, workforceName)
	attrs := c.Attributes

	switch c.EventType {
	case events.TypeAgentStart, events.TypeAgentEnd:
		return events.AgentEvent{Header: h}

	case events.TypeLLMCallStart:
		return events.LLMCallStartEvent{
			Header:  h,
			Model:   otlp.AttrString(attrs, "model"),
			Content: extract.LlmRequestContent(attrs),
		}

	case events.TypeLLMCallEnd:
		return events.LLMCallEndEvent{
			Header:        h,
			Content:       extract.LlmResponseContent(attrs),
			UsageMetadata: extract.UsageMetadata(attrs),
		}

	case events.TypeLLMCallError:
		return events.LLMCallErrorEvent{
			Header:  h,
			Model:   otlp.AttrString(attrs, "model"),
			Content: extract.LlmRequestContent(attrs),
			Error:   otlp.AttrString(attrs, "error"),
		}

	case events.TypeToolCallStart:
		tc := extract.ToolCall(attrs)
		if isAgentToolCall(attrs) {
			h.EventType = events.TypeInvokeAgentStart
			return events.InvokeAgentStartEvent{
				ToolCallStartEvent: events.ToolCallStartEvent{Header: h, ToolCall: tc},
				InvokedAgent:       invokedAgentName(attrs),
			}
		}
		return events.ToolCallStartEvent{Header: h, ToolCall: tc}

	case events.TypeToolCallEnd:
		tc := extract.ToolCall(attrs)
		response := unwrapToolResponseText(extract.ToolResponse(attrs))
		if isAgentToolCall(attrs) {
			h.EventType = events.TypeInvokeAgentEnd
			return events.InvokeAgentEndEvent{
				ToolCallEndEvent: events.ToolCallEndEvent{Header: h, ToolCall: tc, Response: response},
				InvokedAgent:     invokedAgentName(attrs),
			}
		}
		return events.ToolCallEndEvent{Header: h, ToolCall: tc, Response: response}

	case events.TypeToolCallError:
		return events.ToolCallErrorEvent{
			Header:   h,
			ToolCall: extract.ToolCall(attrs),
			Error:    otlp.AttrString(attrs, "error"),
		}

	default:
		slog.Warn("factory: unknown event type, dropping", "event_type", c.EventType)
		return nil
	}
}
