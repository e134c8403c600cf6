package outbox

import (
	"encoding/json"
	"fmt"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

// Event is one outbox row. AggregateID is used as the Kafka message key so
// events of one aggregate keep their relative order.
type Event struct {
	ID            int64
	AggregateType string
	AggregateID   string
	Type          string
	Payload       []byte
	Headers       map[string]string
	Traceparent   string
	CreatedAt     time.Time
	Status        Status
	RelayID       string
	RetryCount    int
	LastError     *string
}

// NewEvent marshals payload as the event body.
func NewEvent(aggregateType string, aggregateID int64, eventType string, payload any) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s: %w", eventType, err)
	}
	return Event{
		AggregateType: aggregateType,
		AggregateID:   fmt.Sprint(aggregateID),
		Type:          eventType,
		Payload:       body,
		Headers:       map[string]string{"source": "inventory-service"},
		Status:        StatusPending,
	}, nil
}
