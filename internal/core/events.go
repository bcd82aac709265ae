package core

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventPendingGenerated     EventType = "pending.generated"
	EventTransactionConfirmed EventType = "transaction.confirmed"
	EventTransactionRejected  EventType = "transaction.rejected"
)

// LedgerEvent is published after a mutating operation has returned.
type LedgerEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	PendingID   int64     `json:"pending_id,omitempty"`
	CommittedID int64     `json:"committed_id,omitempty"`
	TemplateID  int64     `json:"template_id,omitempty"`
	Count       int       `json:"count,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewLedgerEvent stamps a new event with a random id and the current time.
func NewLedgerEvent(t EventType) LedgerEvent {
	return LedgerEvent{
		ID:        uuid.NewString(),
		Type:      t,
		Timestamp: time.Now().UTC(),
	}
}
