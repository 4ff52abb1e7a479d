package events

// Fixed set of event_type discriminator strings. Every event produced by
// the preprocessor carries exactly one of these.
const (
	TypeAgentStart      = "agent_start"
	TypeAgentEnd        = "agent_end"
	TypeLLMCallStart    = "llm_call_start"
	TypeLLMCallEnd      = "llm_call_end"
	TypeLLMCallError    = "llm_call_error"
	TypeToolCallStart   = "tool_call_start"
	TypeToolCallEnd     = "tool_call_end"
	TypeToolCallError   = "tool_call_error"
	TypeInvokeAgentStart = "invoke_agent_start"
	TypeInvokeAgentEnd   = "invoke_agent_end"
)

// Header carries the fields common to every communication event. It is
// embedded (anonymously) in every event kind below so that encoding/json
// flattens it into sibling fields of the enclosing struct rather than
// nesting it under a "header" key.
type Header struct {
	ActingAgent    string  `json:"acting_agent"`
	ConversationID string  `json:"conversation_id"`
	Timestamp      string  `json:"timestamp"`
	EventType      string  `json:"event_type"`
	InvocationID   string  `json:"invocation_id"`
	WorkforceName  *string `json:"workforce_name"`
}

// GetHeader returns the event's header. Every event kind embeds Header
// (directly or transitively), so this method is promoted onto all of them,
// giving filter predicates and the distributor a single way to read the
// fields they match on without a type switch.
func (h Header) GetHeader() Header { return h }

// Event is implemented by every communication event kind.
type Event interface {
	GetHeader() Header
}

// AgentEvent is fired for agent lifecycle transitions. It carries no
// payload beyond the header; event_type distinguishes agent_start from
// agent_end.
type AgentEvent struct {
	Header
}

// LLMCallStartEvent is fired when an LLM call begins.
type LLMCallStartEvent struct {
	Header
	Model   string            `json:"model"`
	Content LlmRequestContent `json:"content"`
}

// LLMCallEndEvent is fired when an LLM call completes successfully.
type LLMCallEndEvent struct {
	Header
	Content       LlmResponseContent `json:"content"`
	UsageMetadata UsageMetadata      `json:"usage_metadata"`
}

// LLMCallErrorEvent is fired when an LLM call fails.
type LLMCallErrorEvent struct {
	Header
	Model   string            `json:"model"`
	Content LlmRequestContent `json:"content"`
	Error   string            `json:"error"`
}

// ToolCallStartEvent is fired when a tool invocation begins.
type ToolCallStartEvent struct {
	Header
	ToolCall ToolCall `json:"tool_call"`
}

// ToolCallEndEvent is fired when a tool invocation completes successfully.
type ToolCallEndEvent struct {
	Header
	ToolCall ToolCall       `json:"tool_call"`
	Response map[string]any `json:"response"`
}

// ToolCallErrorEvent is fired when a tool invocation fails.
type ToolCallErrorEvent struct {
	Header
	ToolCall ToolCall `json:"tool_call"`
	Error    string   `json:"error"`
}

// InvokeAgentStartEvent extends ToolCallStartEvent for the case where the
// tool call is actually an agent-to-agent invocation (see the agent-call
// heuristic in the factory package).
type InvokeAgentStartEvent struct {
	ToolCallStartEvent
	InvokedAgent string `json:"invoked_agent"`
}

// InvokeAgentEndEvent extends ToolCallEndEvent symmetrically.
type InvokeAgentEndEvent struct {
	ToolCallEndEvent
	InvokedAgent string `json:"invoked_agent"`
}

var (
	_ Event = AgentEvent{}
	_ Event = LLMCallStartEvent{}
	_ Event = LLMCallEndEvent{}
	_ Event = LLMCallErrorEvent{}
	_ Event = ToolCallStartEvent{}
	_ Event = ToolCallEndEvent{}
	_ Event = ToolCallErrorEvent{}
	_ Event = InvokeAgentStartEvent{}
	_ Event = InvokeAgentEndEvent{}
)
