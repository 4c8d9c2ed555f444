package v1

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var ErrInvalidEnvelope = errors.New("invalid event envelope")

// Envelope is the versioned event envelope shared by the outbox, the event bus
// and the reward transfer requests. Fields are append-only.
type Envelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

// Validate checks the fields every consumer relies on.
func (e Envelope) Validate() error {
	switch {
	case strings.TrimSpace(e.EventID) == "",
		strings.TrimSpace(e.EventType) == "",
		strings.TrimSpace(e.SourceService) == "",
		strings.TrimSpace(e.PartitionKey) == "",
		e.OccurredAt.IsZero(),
		e.SchemaVersion < 1:
		return ErrInvalidEnvelope
	}
	if len(e.Data) > 0 && !json.Valid(e.Data) {
		return ErrInvalidEnvelope
	}
	return nil
}
