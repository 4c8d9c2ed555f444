package commands

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"electionledger/contexts/governance/election-registry/ports"
)

const (
	eventRegistryInitialized = "registry.initialized"
	eventElectionCreated     = "election.created"
	eventElectionClosed      = "election.closed"
	eventCandidateAdded      = "candidate.added"
	eventVoterAuthorized     = "voter.authorized"
	eventVoteCast            = "vote.cast"
)

func newRegistryEnvelope(
	eventID string,
	eventType string,
	partitionKeyPath string,
	partitionKey string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "election-registry",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: partitionKeyPath,
		PartitionKey:     partitionKey,
		Data:             payload,
	}, nil
}

// electionEvent builds an envelope partitioned by election so consumers see a
// single election's events in commit order.
func electionEvent(
	ctx context.Context,
	idGen ports.IDGenerator,
	eventType string,
	electionID int64,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	eventID, err := idGen.NewID(ctx)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	if data == nil {
		data = map[string]any{}
	}
	data["election_id"] = electionID
	data["occurred_at"] = occurredAt.UTC().Format(time.RFC3339)
	return newRegistryEnvelope(eventID, eventType, "election_id", strconv.FormatInt(electionID, 10), occurredAt, data)
}
