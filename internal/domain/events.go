package domain

// EventType names an event in a streamed intelligent search.
type EventType string

const (
	// EventQueryUnderstanding carries the LLM-expanded search terms.
	EventQueryUnderstanding EventType = "queryUnderstanding"
	// EventSearchResults carries the deduplicated similarity results.
	EventSearchResults EventType = "searchResults"
	// EventChorusReason carries a per-result generated rationale.
	EventChorusReason EventType = "chorusReason"
	// EventAIAnalysis carries the overall generated summary.
	EventAIAnalysis EventType = "aiAnalysis"
	// EventComplete is the terminal marker; no events follow it.
	EventComplete EventType = "complete"
	// EventError is a terminal failure; no events follow it.
	EventError EventType = "error"
)

// StreamEvent is one push-only event of a streamed intelligent search.
// Exactly the fields relevant to the event type are populated.
type StreamEvent struct {
	Type               EventType      `json:"type"`
	QueryUnderstanding string         `json:"queryUnderstanding,omitempty"`
	SearchResults      []SearchResult `json:"searchResults,omitempty"`
	ChorusID           string         `json:"chorusId,omitempty"`
	Reason             string         `json:"reason,omitempty"`
	Analysis           string         `json:"analysis,omitempty"`
	Status             string         `json:"status,omitempty"`
	Error              string         `json:"error,omitempty"`
}

// Terminal reports whether no further events may follow this one.
func (e StreamEvent) Terminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}
