package v1

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	valid := Envelope{
		EventID:       "evt-1",
		EventType:     "election.created",
		OccurredAt:    time.Unix(1700000000, 0).UTC(),
		SourceService: "election-registry",
		SchemaVersion: 1,
		PartitionKey:  "0",
		Data:          json.RawMessage(`{"election_id":0}`),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid envelope, got %v", err)
	}

	cases := map[string]func(*Envelope){
		"missing event id":    func(e *Envelope) { e.EventID = " " },
		"missing event type":  func(e *Envelope) { e.EventType = "" },
		"missing source":      func(e *Envelope) { e.SourceService = "" },
		"missing partition":   func(e *Envelope) { e.PartitionKey = "" },
		"zero occurred at":    func(e *Envelope) { e.OccurredAt = time.Time{} },
		"zero schema version": func(e *Envelope) { e.SchemaVersion = 0 },
		"invalid data":        func(e *Envelope) { e.Data = json.RawMessage(`{"broken"`) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			event := valid
			mutate(&event)
			if err := event.Validate(); !errors.Is(err, ErrInvalidEnvelope) {
				t.Fatalf("expected ErrInvalidEnvelope, got %v", err)
			}
		})
	}
}
