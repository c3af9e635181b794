package analytics

import "time"

type EventType string

const (
	EventStringCreated EventType = "string_created"
	EventStringDeleted EventType = "string_deleted"
	EventListQuery     EventType = "list_query"
	EventNLQuery       EventType = "nl_query"
)

// Outcome classifies how a request ended.
type Outcome string

const (
	OutcomeOK              Outcome = "ok"
	OutcomeNotFound        Outcome = "not_found"
	OutcomeConflict        Outcome = "conflict"
	OutcomeExists          Outcome = "exists"
	OutcomeUninterpretable Outcome = "uninterpretable"
	OutcomeInvalid         Outcome = "invalid"
	OutcomeError           Outcome = "error"
)

// Event is one tracked request. Query is set for natural-language queries,
// Filters for list and natural-language queries.
type Event struct {
	Type        EventType `json:"type"`
	Outcome     Outcome   `json:"outcome"`
	Query       string    `json:"query,omitempty"`
	Filters     string    `json:"filters,omitempty"`
	ResultCount int       `json:"result_count"`
	LatencyMs   int64     `json:"latency_ms"`
	CacheHit    bool      `json:"cache_hit"`
	Timestamp   time.Time `json:"timestamp"`
	RequestID   string    `json:"request_id,omitempty"`
}

// Tracker accepts events without blocking the caller.
type Tracker interface {
	Track(event Event)
}
