package storage

import "time"

// Interaction records one handled event: which chat sent what, and the
// state transition the flow took for it. Records are appended in
// chronological order; the journal is an audit trail, never an input
// to the flow itself.
type Interaction struct {
	Timestamp time.Time `json:"timestamp"`
	ChatID    int64     `json:"chat_id"`
	Payload   string    `json:"payload"`
	FromState string    `json:"from_state"`
	ToState   string    `json:"to_state"`
}

// Recorder abstracts persistence of interaction records.
// Implementations can be file-based, database, etc.
// LoadInteractions should return records in chronological order.
// AppendInteraction should atomically append a new record.
// Implementations must be safe for concurrent use.
type Recorder interface {
	AppendInteraction(rec Interaction) error
	LoadInteractions() ([]Interaction, error)
}
