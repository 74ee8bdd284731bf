package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"chitieu/internal/core"
)

// Op is the mutation that produced a record event.
type Op string

const (
	OpCreated Op = "created"
	OpUpdated Op = "updated"
	OpDeleted Op = "deleted"
)

// RecordEvent announces that one record of an owner changed. It carries only
// identifiers; consumers fetch the current state from the store.
type RecordEvent struct {
	Owner     string    `json:"owner"`
	Kind      core.Kind `json:"kind"`
	ID        string    `json:"id"`
	Op        Op        `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRecordEvent creates an event stamped with the current time.
func NewRecordEvent(owner string, kind core.Kind, id string, op Op) *RecordEvent {
	return &RecordEvent{
		Owner:     owner,
		Kind:      kind,
		ID:        id,
		Op:        op,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *RecordEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// RecordEventFromJSON decodes and validates an event.
func RecordEventFromJSON(data []byte) (*RecordEvent, error) {
	var ev RecordEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if ev.Owner == "" {
		return nil, fmt.Errorf("record event without owner")
	}
	if !ev.Kind.IsValid() {
		return nil, fmt.Errorf("record event with unknown kind %q", ev.Kind)
	}
	return &ev, nil
}
