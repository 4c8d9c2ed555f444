package ports

import (
	"context"
	"math/big"
	"time"

	"electionledger/contexts/governance/election-registry/domain/entities"
	contractsv1 "electionledger/contracts/gen/events/v1"
)

// Effects are written in the same atomic transition as the state change that
// produced them.
type Effects struct {
	Events      []EventEnvelope
	Rewards     []entities.RewardEntry
	Idempotency *IdempotencyClaim
}

// IdempotencyClaim records the replay key in the same transition that
// creates the resource. A record for the key that is still live at Now
// rejects the whole transition with ErrIdempotencyKeyClaimed.
type IdempotencyClaim struct {
	Record IdempotencyRecord
	Now    time.Time
}

// ElectionBuilder receives the id reserved for the new election.
type ElectionBuilder func(electionID int64) (entities.Election, Effects, error)

// ElectionMutation runs against a fully loaded election (voters included)
// while the implementation holds that election exclusively. Returning an
// error discards every change.
type ElectionMutation func(election *entities.Election) (Effects, error)

type RegistryRepository interface {
	InitializeRegistry(ctx context.Context, registry entities.Registry, effects Effects) error
	GetRegistry(ctx context.Context) (entities.Registry, error)
	CreateElection(ctx context.Context, build ElectionBuilder) (entities.Election, error)
	UpdateElection(ctx context.Context, electionID int64, mutate ElectionMutation) (entities.Election, error)
	GetElection(ctx context.Context, electionID int64) (entities.Election, error)
	ListElections(ctx context.Context) ([]entities.Election, error)
	GetVoter(ctx context.Context, electionID int64, principal string) (entities.Voter, bool, error)
}

type RewardLedger interface {
	ListPendingRewards(ctx context.Context, limit int) ([]entities.RewardEntry, error)
	ListRewardsByElection(ctx context.Context, electionID int64) ([]entities.RewardEntry, error)
	MarkRewardSettled(ctx context.Context, rewardID string, reference string, settledAt time.Time) error
	// MarkRewardAttemptFailed records a failed payout; exhausted moves the
	// entry to failed so it is no longer listed as pending.
	MarkRewardAttemptFailed(ctx context.Context, rewardID string, reason string, exhausted bool, at time.Time) error
}

type RewardTransfer struct {
	RewardID   string
	ElectionID int64
	Recipient  string
	Amount     *big.Int
}

// RewardPayer is the external token-transfer facility.
type RewardPayer interface {
	Transfer(ctx context.Context, transfer RewardTransfer) (string, error)
}

type IdempotencyRecord struct {
	Key         string
	RequestHash string
	ResourceID  string
	ExpiresAt   time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string, now time.Time) (IdempotencyRecord, bool, error)
	Put(ctx context.Context, record IdempotencyRecord) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventEnvelope = contractsv1.Envelope

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

// DeliveryPublisher reports how many consumers accepted an event.
type DeliveryPublisher interface {
	Deliver(ctx context.Context, topic string, event EventEnvelope) (int, error)
}

// Locker serializes transitions that share a key across goroutines or
// processes.
type Locker interface {
	Lock(ctx context.Context, key string) (func(context.Context) error, error)
}
