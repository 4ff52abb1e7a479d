// Package events defines the communication-event data model: the
// discriminated union of event kinds and the payload sub-structures
// reconstructed from flattened OTLP span attributes.
package events

import "encoding/json"

// ToolCall describes one tool invocation: the tool's name and the
// arguments it was called with.
type ToolCall struct {
	ToolName  string                 `json:"tool_name"`
	Arguments map[string]any         `json:"arguments"`
}

// ToolResponse describes the result of a tool invocation embedded inside
// an LLM request (the model is being told what a prior tool call returned).
type ToolResponse struct {
	ToolName string         `json:"tool_name"`
	Response map[string]any `json:"response"`
}

// TextContent is a plain text part of an LLM request or response, possibly
// marked as a "thought" (model reasoning, not user-facing output).
type TextContent struct {
	Text    string `json:"text"`
	Thought bool   `json:"thought"`
}

// RequestPart is either a TextContent or a ToolResponse. No "kind" tag is
// emitted; a consumer distinguishes the two structurally by the presence of
// a tool_name field, matching the source system's dataclass-asdict shape.
type RequestPart interface {
	isRequestPart()
}

func (TextContent) isRequestPart()  {}
func (ToolResponse) isRequestPart() {}

// ResponsePart is either a TextContent or a ToolCall.
type ResponsePart interface {
	isResponsePart()
}

func (TextContent) isResponsePart() {}
func (ToolCall) isResponsePart()    {}

// LlmRequestContent is the reconstructed content of an LLM request: a role
// and an ordered list of text/tool-response parts.
type LlmRequestContent struct {
	Role    string        `json:"role"`
	Content []RequestPart `json:"content"`
}

// NewLlmRequestContent returns an LlmRequestContent with the default role
// ("user") and an empty, non-nil part list so JSON serialization emits `[]`
// rather than `null`.
func NewLlmRequestContent() LlmRequestContent {
	return LlmRequestContent{Role: "user", Content: []RequestPart{}}
}

// LlmResponseContent is the reconstructed content of an LLM response: a
// role and an ordered list of text/tool-call parts.
type LlmResponseContent struct {
	Role  string         `json:"role"`
	Parts []ResponsePart `json:"parts"`
}

// NewLlmResponseContent returns an LlmResponseContent with the default role
// ("model") and an empty, non-nil part list.
func NewLlmResponseContent() LlmResponseContent {
	return LlmResponseContent{Role: "model", Parts: []ResponsePart{}}
}

// UsageMetadata is a verbatim copy of the six token-count attributes found
// under llm_response.usage_metadata.*; missing attributes default to 0.
type UsageMetadata struct {
	TotalTokens           int `json:"total_tokens"`
	PromptTokens          int `json:"prompt_tokens"`
	CandidateTokens       int `json:"candidate_tokens"`
	ThoughtsTokens        int `json:"thoughts_tokens"`
	ToolUsePromptTokens   int `json:"tool_use_prompt_tokens"`
	CachedContentTokens   int `json:"cached_content_tokens"`
}

var (
	_ json.Marshaler = ToolCall{}
)

// MarshalJSON ensures a nil Arguments map serializes as {} rather than null,
// since the factory always intends an (possibly empty) object here.
func (t ToolCall) MarshalJSON() ([]byte, error) {
	type alias ToolCall
	a := alias(t)
	if a.Arguments == nil {
		a.Arguments = map[string]any{}
	}
	return json.Marshal(a)
}

// MarshalJSON ensures a nil Response map serializes as {} rather than null.
func (t ToolResponse) MarshalJSON() ([]byte, error) {
	type alias ToolResponse
	a := alias(t)
	if a.Response == nil {
		a.Response = map[string]any{}
	}
	return json.Marshal(a)
}
