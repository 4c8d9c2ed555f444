package payout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	domainerrors "electionledger/contexts/governance/election-registry/domain/errors"
	"electionledger/contexts/governance/election-registry/ports"
	contractsv1 "electionledger/contracts/gen/events/v1"
)

const (
	TopicTransferRequested = "reward.transfer_requested"
	referencePrefix        = "bus:"
)

// EventBusPayer hands a transfer to the token facility by publishing a
// transfer request. The reward id doubles as the event id so a retried
// settlement publishes the same request. A request no consumer accepted is
// reported as ErrPayerUnavailable and the reward stays pending.
type EventBusPayer struct {
	Publisher ports.DeliveryPublisher
	Clock     ports.Clock
}

func (p EventBusPayer) Transfer(ctx context.Context, transfer ports.RewardTransfer) (string, error) {
	if p.Publisher == nil {
		return "", errors.New("reward payer has no publisher")
	}
	recipient := strings.TrimSpace(transfer.Recipient)
	if recipient == "" {
		return "", domainerrors.ErrInvalidPrincipal
	}
	if transfer.Amount == nil || transfer.Amount.Sign() <= 0 {
		return "", domainerrors.ErrInvalidRewardAmount
	}

	now := time.Now().UTC()
	if p.Clock != nil {
		now = p.Clock.Now().UTC()
	}
	payload, err := json.Marshal(map[string]any{
		"reward_id":   transfer.RewardID,
		"election_id": transfer.ElectionID,
		"recipient":   recipient,
		"amount":      transfer.Amount.String(),
	})
	if err != nil {
		return "", err
	}
	envelope := contractsv1.Envelope{
		EventID:          transfer.RewardID,
		EventType:        TopicTransferRequested,
		OccurredAt:       now,
		SourceService:    "election-registry",
		TraceID:          transfer.RewardID,
		SchemaVersion:    1,
		PartitionKeyPath: "recipient",
		PartitionKey:     recipient,
		Data:             payload,
	}
	if err := envelope.Validate(); err != nil {
		return "", err
	}
	delivered, err := p.Publisher.Deliver(ctx, TopicTransferRequested, envelope)
	if err != nil {
		return "", err
	}
	if delivered == 0 {
		return "", fmt.Errorf("no consumer accepted %s for reward %s: %w",
			TopicTransferRequested, transfer.RewardID, domainerrors.ErrPayerUnavailable)
	}
	return referencePrefix + transfer.RewardID, nil
}
