package events

import (
	"encoding/json"
	"time"
)

// Event types published by pipeline runs.
const (
	TypeRunStarted  = "run_started"
	TypeRunFinished = "run_finished"
	TypeJobAdded    = "job_added"
)

// Event is the envelope sent over the SSE stream. Data carries the
// event-specific payload as raw JSON.
type Event struct {
	Type      string          `json:"type"`
	Version   int             `json:"v"`
	At        time.Time       `json:"at"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// MakeEvent serializes one event envelope, stamping the current time.
func MakeEvent(reqID, typ string, v int, data any) string {
	e := Event{
		Type:      typ,
		Version:   v,
		At:        time.Now().UTC(),
		RequestID: reqID,
	}
	if data != nil {
		b, _ := json.Marshal(data)
		e.Data = b
	}
	b, _ := json.Marshal(e)
	return string(b)
}
