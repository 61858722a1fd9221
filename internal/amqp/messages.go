package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventKind says what happened to a ledger row.
type EventKind string

const (
	EventUpsert EventKind = "upsert"
	EventDelete EventKind = "delete"
)

// LedgerEvent announces a change to one transaction. It carries only the
// id and version; consumers read the current row from storage.
type LedgerEvent struct {
	MessageID string    `json:"message_id"`
	Kind      EventKind `json:"kind"`
	ID        int64     `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewUpsertEvent(id, version int64) *LedgerEvent {
	return newEvent(EventUpsert, id, version)
}

func NewDeleteEvent(id int64) *LedgerEvent {
	return newEvent(EventDelete, id, 0)
}

func newEvent(kind EventKind, id, version int64) *LedgerEvent {
	return &LedgerEvent{
		MessageID: uuid.NewString(),
		Kind:      kind,
		ID:        id,
		Version:   version,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes and checks a message body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Kind {
	case EventUpsert, EventDelete:
	default:
		return nil, fmt.Errorf("unknown event kind %q", msg.Kind)
	}
	if msg.ID <= 0 {
		return nil, fmt.Errorf("invalid transaction id %d", msg.ID)
	}
	return &msg, nil
}
