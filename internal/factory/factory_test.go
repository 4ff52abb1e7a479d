package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-layer/observability-dashboard/internal/events"
	"github.com/agentic-layer/observability-dashboard/internal/otlp"
)

func classified(eventType string, attrs map[string]any) otlp.ClassifiedSpan {
	return otlp.ClassifiedSpan{
		EventType:      eventType,
		ActingAgent:    "researcher",
		ConversationID: "conv-1",
		Timestamp:      "2026-01-02T03:04:05Z",
		Attributes:     attrs,
	}
}

func TestBuild_AgentStart(t *testing.T) {
	ev := Build(classified(events.TypeAgentStart, map[string]any{}), "billing-team")
	require.NotNil(t, ev)
	h := ev.GetHeader()
	assert.Equal(t, events.TypeAgentStart, h.EventType)
	require.NotNil(t, h.WorkforceName)
	assert.Equal(t, "billing-team", *h.WorkforceName)
}

func TestBuild_NoWorkforce(t *testing.T) {
	ev := Build(classified(events.TypeAgentStart, map[string]any{}), "")
	h := ev.GetHeader()
	assert.Nil(t, h.WorkforceName)
}

func TestBuild_ToolCallStart_PlainTool(t *testing.T) {
	attrs := map[string]any{"tool_name": "get_weather", "args.city": "berlin"}
	ev := Build(classified(events.TypeToolCallStart, attrs), "")
	tc, ok := ev.(events.ToolCallStartEvent)
	require.True(t, ok)
	assert.Equal(t, "get_weather", tc.ToolCall.ToolName)
	assert.Equal(t, events.TypeToolCallStart, tc.Header.EventType)
}

func TestBuild_ToolCallStart_LegacyTransferToAgent(t *testing.T) {
	attrs := map[string]any{"tool_name": "transfer_to_agent", "args.agent_name": "billing-agent"}
	ev := Build(classified(events.TypeToolCallStart, attrs), "")
	iv, ok := ev.(events.InvokeAgentStartEvent)
	require.True(t, ok)
	assert.Equal(t, events.TypeInvokeAgentStart, iv.Header.EventType)
	assert.Equal(t, "billing-agent", iv.InvokedAgent)
}

func TestBuild_ToolCallStart_AgentToolPattern(t *testing.T) {
	attrs := map[string]any{"tool_name": "billing-agent", "args.request": "please refund"}
	ev := Build(classified(events.TypeToolCallStart, attrs), "")
	iv, ok := ev.(events.InvokeAgentStartEvent)
	require.True(t, ok)
	assert.Equal(t, "billing-agent", iv.InvokedAgent)
}

func TestBuild_ToolCallStart_MultiArgNotAgentCall(t *testing.T) {
	attrs := map[string]any{"tool_name": "billing-agent", "args.request": "x", "args.extra": "y"}
	ev := Build(classified(events.TypeToolCallStart, attrs), "")
	_, ok := ev.(events.ToolCallStartEvent)
	assert.True(t, ok)
}

func TestBuild_ToolCallEnd_JSONUnwrap(t *testing.T) {
	attrs := map[string]any{
		"tool_name":                  "get_weather",
		"tool_response.text":         `{"temp":25}`,
		"tool_response.unrelated_ok": "plain string",
	}
	ev := Build(classified(events.TypeToolCallEnd, attrs), "")
	te, ok := ev.(events.ToolCallEndEvent)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"temp": float64(25)}, te.Response["text"])
	assert.Equal(t, "plain string", te.Response["unrelated_ok"])
}

func TestBuild_ToolCallEnd_NonJSONTextLeftAlone(t *testing.T) {
	attrs := map[string]any{"tool_name": "get_weather", "tool_response.text": "not json"}
	ev := Build(classified(events.TypeToolCallEnd, attrs), "")
	te, ok := ev.(events.ToolCallEndEvent)
	require.True(t, ok)
	assert.Equal(t, "not json", te.Response["text"])
}

func TestBuild_ToolCallError(t *testing.T) {
	attrs := map[string]any{"tool_name": "get_weather", "error": "timeout"}
	ev := Build(classified(events.TypeToolCallError, attrs), "")
	te, ok := ev.(events.ToolCallErrorEvent)
	require.True(t, ok)
	assert.Equal(t, "timeout", te.Error)
}

func TestBuild_UnknownEventType(t *testing.T) {
	ev := Build(classified("something_else", map[string]any{}), "")
	assert.Nil(t, ev)
}
