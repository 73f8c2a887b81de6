package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventExpenseCreated  EventType = "expense.created"
	EventExpenseDeleted  EventType = "expense.deleted"
	EventMonthClosed     EventType = "month.closed"
	EventGoalContributed EventType = "goal.contributed"
)

// LedgerEvent is a lightweight notification about a committed ledger mutation.
// Consumers fetch full records from the database by EntityID when they need them.
type LedgerEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	OwnerID   int64     `json:"owner_id"`
	EntityID  int64     `json:"entity_id,omitempty"`
	Amount    string    `json:"amount,omitempty"`
	Period    string    `json:"period,omitempty"`
	Count     int       `json:"count,omitempty"`
	Source    string    `json:"source,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEvent creates an event with a fresh id and timestamp.
func NewLedgerEvent(typ EventType, owner, entityID int64) *LedgerEvent {
	return &LedgerEvent{
		ID:        uuid.NewString(),
		Type:      typ,
		OwnerID:   owner,
		EntityID:  entityID,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes an event and rejects payloads without a type.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var ev LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if ev.Type == "" {
		return nil, fmt.Errorf("event %q has no type", ev.ID)
	}
	return &ev, nil
}
