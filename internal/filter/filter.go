// Package filter implements the subscriber-side matching predicate: each
// websocket subscriber registers a FilterCriteria and only events matching
// it are delivered to that subscriber.
package filter

import "github.com/agentic-layer/observability-dashboard/internal/events"

// Criteria selects which events a subscriber receives. A nil field means
// "don't filter on this dimension"; a non-nil field must equal the event's
// corresponding header value exactly.
type Criteria struct {
	ConversationID *string
	Workforce      *string
}

// IsEmpty reports whether c matches every event (no criteria set).
func (c Criteria) IsEmpty() bool {
	return c.ConversationID == nil && c.Workforce == nil
}

// Matches reports whether ev satisfies every set field of c.
func (c Criteria) Matches(ev events.Event) bool {
	h := ev.GetHeader()

	if c.ConversationID != nil && h.ConversationID != *c.ConversationID {
		return false
	}

	if c.Workforce != nil {
		if h.WorkforceName == nil || *h.WorkforceName != *c.Workforce {
			return false
		}
	}

	return true
}

// FromQueryParams builds a Criteria from the subset of query parameters
// recognized by the websocket endpoint. Empty or absent
// values leave the corresponding field unset.
func FromQueryParams(params map[string]string) Criteria {
	var c Criteria
	if v, ok := params["conversation_id"]; ok && v != "" {
		c.ConversationID = &v
	}
	if v, ok := params["workforce"]; ok && v != "" {
		c.Workforce = &v
	}
	return c
}
