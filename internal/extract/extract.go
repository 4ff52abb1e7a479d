// Package extract reconstructs the structured content sub-types
// (LlmRequestContent, LlmResponseContent, ToolCall, ToolResponse,
// UsageMetadata) from the flat, dotted attribute keyspace the
// instrumentation emits (e.g. llm_request.content.parts.3.function_call.args.city).
package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/agentic-layer/observability-dashboard/internal/events"
)

var (
	textRequestPattern  = regexp.MustCompile(`^llm_request\.content\.parts\.(\d+)\.text$`)
	funcResponsePattern = regexp.MustCompile(`^llm_request\.content\.parts\.(\d+)\.function_response\.name$`)
	textResponsePattern = regexp.MustCompile(`^llm_response\.content\.parts\.(\d+)\.text$`)
	funcCallPattern     = regexp.MustCompile(`^llm_response\.content\.parts\.(\d+)\.function_call\.name$`)
)

// Arguments implements the "args.<k> = v" pattern: every key with prefix
// "args." contributes its stripped suffix to the returned map.
func Arguments(attrs map[string]any) map[string]any {
	out := map[string]any{}
	for key, value := range attrs {
		suffix, ok := strings.CutPrefix(key, "args.")
		if ok && suffix != "" {
			out[suffix] = value
		}
	}
	return out
}

// ToolCall builds a ToolCall from a tool span's tool_name and args.* keys.
func ToolCall(attrs map[string]any) events.ToolCall {
	name, _ := attrs["tool_name"].(string)
	return events.ToolCall{ToolName: name, Arguments: Arguments(attrs)}
}

// ToolResponse implements the "tool_response.<path> = v" pattern: only the
// last dotted segment of the key is kept, collapsing any nested structure
// beyond one level. This is an intentional, lossy flattening (see spec
// §4.2) and is last-write-wins when two keys share a last segment: matching
// keys are applied in lexicographic order, so the lexicographically last
// key wins.
func ToolResponse(attrs map[string]any) map[string]any {
	// Iterate keys in sorted order so "last write wins" is a well-defined
	// (if arbitrary) choice rather than dependent on map iteration order.
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		if strings.HasPrefix(k, "tool_response.") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := map[string]any{}
	for _, key := range keys {
		parts := strings.Split(key, ".")
		if len(parts) <= 1 {
			continue
		}
		newKey := parts[len(parts)-1]
		if newKey == "" {
			continue
		}
		out[newKey] = attrs[key]
	}
	return out
}

// UsageMetadata reads the six usage_metadata.* attributes, defaulting
// missing ones to 0.
func UsageMetadata(attrs map[string]any) events.UsageMetadata {
	get := func(key string) int {
		v, ok := attrs["llm_response.usage_metadata."+key]
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
	return events.UsageMetadata{
		TotalTokens:         get("total_token_count"),
		PromptTokens:        get("prompt_token_count"),
		CandidateTokens:     get("candidates_token_count"),
		ThoughtsTokens:      get("thoughts_token_count"),
		ToolUsePromptTokens: get("tool_use_prompt_token_count"),
		CachedContentTokens: get("cached_content_token_count"),
	}
}

// LlmRequestContent reconstructs the request content: text parts are
// emitted in ascending part-index order; function-response parts are collected into an
// index -> ToolResponse map first (so their nested .response.* attributes
// can be gathered), then emitted in ascending part-index order after all
// text parts, per the two-pass ordering policy in spec §4.2.
func LlmRequestContent(attrs map[string]any) events.LlmRequestContent {
	content := events.NewLlmRequestContent()

	type indexedText struct {
		index int
		text  events.TextContent
	}
	type indexedResponse struct {
		index int
		tr    events.ToolResponse
	}
	texts := map[int]indexedText{}
	responses := map[int]*indexedResponse{}

	for key, value := range attrs {
		if !strings.HasPrefix(key, "llm_request.content.") {
			continue
		}
		if strings.HasSuffix(key, ".role") {
			if s, ok := value.(string); ok && s != "" {
				content.Role = s
			}
			continue
		}
		if m := textRequestPattern.FindStringSubmatch(key); m != nil {
			idx, _ := strconv.Atoi(m[1])
			text, _ := value.(string)
			texts[idx] = indexedText{index: idx, text: events.TextContent{Text: text}}
			continue
		}
		if m := funcResponsePattern.FindStringSubmatch(key); m != nil {
			idx, _ := strconv.Atoi(m[1])
			name, _ := value.(string)
			responses[idx] = &indexedResponse{index: idx, tr: events.ToolResponse{ToolName: name, Response: map[string]any{}}}
		}
	}

	textIndices := make([]int, 0, len(texts))
	for idx := range texts {
		textIndices = append(textIndices, idx)
	}
	sort.Ints(textIndices)
	for _, idx := range textIndices {
		content.Content = append(content.Content, texts[idx].text)
	}

	indices := make([]int, 0, len(responses))
	for idx := range responses {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	for _, idx := range indices {
		entry := responses[idx]
		prefix := "llm_request.content.parts." + strconv.Itoa(idx) + ".function_response.response."
		for key, value := range attrs {
			suffix, ok := strings.CutPrefix(key, prefix)
			if ok && suffix != "" {
				entry.tr.Response[suffix] = value
			}
		}
		content.Content = append(content.Content, entry.tr)
	}

	return content
}

// LlmResponseContent reconstructs the response content symmetrically to
// LlmRequestContent: text parts (with their .thought flag) first, then
// function-call parts (with their .args.* arguments) in ascending index
// order.
func LlmResponseContent(attrs map[string]any) events.LlmResponseContent {
	content := events.NewLlmResponseContent()

	type indexedText struct {
		index int
		text  events.TextContent
	}
	type indexedCall struct {
		index int
		tc    events.ToolCall
	}
	texts := map[int]indexedText{}
	calls := map[int]*indexedCall{}

	for key, value := range attrs {
		if !strings.HasPrefix(key, "llm_response.content.") {
			continue
		}
		if strings.HasSuffix(key, ".role") {
			if s, ok := value.(string); ok && s != "" {
				content.Role = s
			}
			continue
		}
		if m := textResponsePattern.FindStringSubmatch(key); m != nil {
			idx, _ := strconv.Atoi(m[1])
			text, _ := value.(string)
			thoughtKey := strings.Replace(key, ".text", ".thought", 1)
			thought, _ := attrs[thoughtKey].(bool)
			texts[idx] = indexedText{index: idx, text: events.TextContent{Text: text, Thought: thought}}
			continue
		}
		if m := funcCallPattern.FindStringSubmatch(key); m != nil {
			idx, _ := strconv.Atoi(m[1])
			name, _ := value.(string)
			calls[idx] = &indexedCall{index: idx, tc: events.ToolCall{ToolName: name, Arguments: map[string]any{}}}
		}
	}

	textIndices := make([]int, 0, len(texts))
	for idx := range texts {
		textIndices = append(textIndices, idx)
	}
	sort.Ints(textIndices)
	for _, idx := range textIndices {
		content.Parts = append(content.Parts, texts[idx].text)
	}

	indices := make([]int, 0, len(calls))
	for idx := range calls {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	for _, idx := range indices {
		entry := calls[idx]
		prefix := "llm_response.content.parts." + strconv.Itoa(idx) + ".function_call.args."
		for key, value := range attrs {
			suffix, ok := strings.CutPrefix(key, prefix)
			if ok && suffix != "" {
				entry.tc.Arguments[suffix] = value
			}
		}
		content.Parts = append(content.Parts, entry.tc)
	}

	return content
}

// InvokedAgent reads the legacy transfer_to_agent invocation target.
func InvokedAgent(attrs map[string]any) string {
	s, _ := attrs["args.agent_name"].(string)
	return s
}
