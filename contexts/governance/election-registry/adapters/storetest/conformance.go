// Package storetest holds the behavioural suite every registry storage
// adapter must pass.
package storetest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"electionledger/contexts/governance/election-registry/domain/entities"
	domainerrors "electionledger/contexts/governance/election-registry/domain/errors"
	"electionledger/contexts/governance/election-registry/ports"

	"github.com/stretchr/testify/require"
)

// Backend is the full port surface a storage adapter implements.
type Backend interface {
	ports.RegistryRepository
	ports.RewardLedger
	ports.OutboxRepository
	ports.IdempotencyStore
}

var epoch = time.Date(2025, time.May, 4, 10, 0, 0, 0, time.UTC)

// Run exercises backend against the shared storage contract. newBackend must
// return an empty store on every call.
func Run(t *testing.T, newBackend func(t *testing.T) Backend) {
	t.Run("registry lifecycle", func(t *testing.T) { testRegistryLifecycle(t, newBackend(t)) })
	t.Run("sequential election ids", func(t *testing.T) { testSequentialIDs(t, newBackend(t)) })
	t.Run("failed mutation leaves no trace", func(t *testing.T) { testFailedMutation(t, newBackend(t)) })
	t.Run("voters round trip", func(t *testing.T) { testVoters(t, newBackend(t)) })
	t.Run("vote effects commit together", func(t *testing.T) { testVoteEffects(t, newBackend(t)) })
	t.Run("reward settlement", func(t *testing.T) { testRewardSettlement(t, newBackend(t)) })
	t.Run("outbox ordering", func(t *testing.T) { testOutboxOrdering(t, newBackend(t)) })
	t.Run("idempotency records", func(t *testing.T) { testIdempotency(t, newBackend(t)) })
	t.Run("idempotency claim commits with the transition", func(t *testing.T) { testIdempotencyClaim(t, newBackend(t)) })
	t.Run("concurrent claims of one key", func(t *testing.T) { testConcurrentClaims(t, newBackend(t)) })
	t.Run("concurrent votes", func(t *testing.T) { testConcurrentVotes(t, newBackend(t)) })
}

func envelope(eventID string, eventType string, electionID int64, at time.Time) ports.EventEnvelope {
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       at,
		SourceService:    "election-registry",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "election_id",
		PartitionKey:     fmt.Sprintf("%d", electionID),
		Data:             json.RawMessage(fmt.Sprintf(`{"election_id":%d}`, electionID)),
	}
}

func initialize(t *testing.T, backend Backend, reward int64) {
	t.Helper()
	registry, err := entities.NewRegistry("owner", big.NewInt(reward), epoch)
	require.NoError(t, err)
	require.NoError(t, backend.InitializeRegistry(context.Background(), registry, ports.Effects{}))
}

func createElection(t *testing.T, backend Backend, name string, at time.Time) entities.Election {
	t.Helper()
	election, err := backend.CreateElection(context.Background(), func(electionID int64) (entities.Election, ports.Effects, error) {
		election, err := entities.NewElection(electionID, name, "official", 3600, at)
		if err != nil {
			return entities.Election{}, ports.Effects{}, err
		}
		return election, ports.Effects{Events: []ports.EventEnvelope{
			envelope(fmt.Sprintf("created-%d", electionID), "election.created", electionID, at),
		}}, nil
	})
	require.NoError(t, err)
	return election
}

func seedBallot(t *testing.T, backend Backend, electionID int64, voters ...string) {
	t.Helper()
	_, err := backend.UpdateElection(context.Background(), electionID, func(election *entities.Election) (ports.Effects, error) {
		if _, err := election.AddCandidate("official", "Alice"); err != nil {
			return ports.Effects{}, err
		}
		if _, err := election.AddCandidate("official", "Bob"); err != nil {
			return ports.Effects{}, err
		}
		for _, voter := range voters {
			if _, _, err := election.AuthorizeVoter("official", voter, epoch); err != nil {
				return ports.Effects{}, err
			}
		}
		return ports.Effects{}, nil
	})
	require.NoError(t, err)
}

func vote(backend Backend, electionID int64, voter string, candidateID int64, rewardID string, at time.Time) error {
	_, err := backend.UpdateElection(context.Background(), electionID, func(election *entities.Election) (ports.Effects, error) {
		candidate, stored, err := election.CastVote(voter, candidateID, at)
		if err != nil {
			return ports.Effects{}, err
		}
		effects := ports.Effects{Events: []ports.EventEnvelope{envelope("vote-"+rewardID, "vote.cast", electionID, at)}}
		effects.Rewards = append(effects.Rewards,
			entities.NewRewardEntry(rewardID, electionID, stored.Principal, candidate.CandidateID, big.NewInt(10), at))
		return effects, nil
	})
	return err
}

func testRegistryLifecycle(t *testing.T, backend Backend) {
	ctx := context.Background()
	_, err := backend.GetRegistry(ctx)
	require.ErrorIs(t, err, domainerrors.ErrRegistryNotInitialized)

	reward, ok := new(big.Int).SetString("10000000000000000000", 10)
	require.True(t, ok)
	registry, err := entities.NewRegistry("owner", reward, epoch)
	require.NoError(t, err)
	require.NoError(t, backend.InitializeRegistry(ctx, registry, ports.Effects{}))

	second, err := entities.NewRegistry("other", big.NewInt(1), epoch)
	require.NoError(t, err)
	require.ErrorIs(t, backend.InitializeRegistry(ctx, second, ports.Effects{}), domainerrors.ErrAlreadyInitialized)

	stored, err := backend.GetRegistry(ctx)
	require.NoError(t, err)
	require.Equal(t, "owner", stored.PlatformOwner)
	require.Equal(t, 0, stored.TokenReward.Cmp(reward), "reward %s", stored.TokenReward)
}

func testSequentialIDs(t *testing.T, backend Backend) {
	ctx := context.Background()
	initialize(t, backend, 0)

	first := createElection(t, backend, "First", epoch)
	require.Equal(t, int64(0), first.ElectionID)

	rejected := errors.New("builder rejected")
	_, err := backend.CreateElection(ctx, func(int64) (entities.Election, ports.Effects, error) {
		return entities.Election{}, ports.Effects{}, rejected
	})
	require.ErrorIs(t, err, rejected)

	second := createElection(t, backend, "Second", epoch.Add(time.Second))
	require.Equal(t, int64(1), second.ElectionID)

	items, err := backend.ListElections(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "First", items[0].Name)
	require.Equal(t, "Second", items[1].Name)

	_, err = backend.GetElection(ctx, 2)
	require.ErrorIs(t, err, domainerrors.ErrElectionNotFound)
	_, err = backend.UpdateElection(ctx, 7, func(*entities.Election) (ports.Effects, error) {
		return ports.Effects{}, nil
	})
	require.ErrorIs(t, err, domainerrors.ErrElectionNotFound)
}

func testFailedMutation(t *testing.T, backend Backend) {
	ctx := context.Background()
	initialize(t, backend, 0)
	createElection(t, backend, "Stable", epoch)

	_, err := backend.UpdateElection(ctx, 0, func(election *entities.Election) (ports.Effects, error) {
		if _, err := election.AddCandidate("official", "Ghost"); err != nil {
			return ports.Effects{}, err
		}
		return ports.Effects{}, domainerrors.ErrNotElectionOfficial
	})
	require.ErrorIs(t, err, domainerrors.ErrNotElectionOfficial)

	election, err := backend.GetElection(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, election.Candidates)
	require.True(t, election.IsActive)
}

func testVoters(t *testing.T, backend Backend) {
	ctx := context.Background()
	initialize(t, backend, 0)
	createElection(t, backend, "Voters", epoch)
	seedBallot(t, backend, 0, "v1", "v2")

	voter, found, err := backend.GetVoter(ctx, 0, "v1")
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, voter.IsAuthorized)
	require.False(t, voter.HasVoted)

	_, found, err = backend.GetVoter(ctx, 0, "stranger")
	require.NoError(t, err)
	require.False(t, found)

	_, _, err = backend.GetVoter(ctx, 5, "v1")
	require.ErrorIs(t, err, domainerrors.ErrElectionNotFound)

	election, err := backend.GetElection(ctx, 0)
	require.NoError(t, err)
	require.Len(t, election.Candidates, 2)
	require.Equal(t, "Bob", election.Candidates[1].Name)
	require.Equal(t, int64(1), election.Candidates[1].CandidateID)

	// The mutation path must see voters written by an earlier transition.
	_, err = backend.UpdateElection(ctx, 0, func(election *entities.Election) (ports.Effects, error) {
		require.Len(t, election.Voters, 2)
		return ports.Effects{}, nil
	})
	require.NoError(t, err)
}

func testVoteEffects(t *testing.T, backend Backend) {
	ctx := context.Background()
	initialize(t, backend, 10)
	createElection(t, backend, "Effects", epoch)
	seedBallot(t, backend, 0, "v1")

	require.NoError(t, vote(backend, 0, "v1", 1, "reward-1", epoch.Add(time.Minute)))
	require.ErrorIs(t, vote(backend, 0, "v1", 0, "reward-2", epoch.Add(2*time.Minute)), domainerrors.ErrAlreadyVoted)

	election, err := backend.GetElection(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, int64(0), election.Candidates[0].VoteCount)
	require.Equal(t, int64(1), election.Candidates[1].VoteCount)

	voter, found, err := backend.GetVoter(ctx, 0, "v1")
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, voter.HasVoted)

	rewards, err := backend.ListRewardsByElection(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rewards, 1)
	require.Equal(t, "reward-1", rewards[0].RewardID)
	require.Equal(t, "v1", rewards[0].Voter)
	require.Equal(t, int64(1), rewards[0].CandidateID)
	require.Equal(t, "10", rewards[0].Amount.String())
	require.Equal(t, entities.RewardStatusPending, rewards[0].Status)

	pending, err := backend.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, "election.created", pending[0].EventType)
	require.Equal(t, "vote.cast", pending[1].EventType)

	var decoded ports.EventEnvelope
	require.NoError(t, json.Unmarshal(pending[1].Payload, &decoded))
	require.Equal(t, "vote-reward-1", decoded.EventID)
	require.NoError(t, decoded.Validate())
}

func testRewardSettlement(t *testing.T, backend Backend) {
	ctx := context.Background()
	initialize(t, backend, 10)
	createElection(t, backend, "Payouts", epoch)
	seedBallot(t, backend, 0, "v1", "v2", "v3")

	require.NoError(t, vote(backend, 0, "v1", 0, "r1", epoch.Add(1*time.Second)))
	require.NoError(t, vote(backend, 0, "v2", 0, "r2", epoch.Add(2*time.Second)))
	require.NoError(t, vote(backend, 0, "v3", 1, "r3", epoch.Add(3*time.Second)))

	pending, err := backend.ListPendingRewards(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, []string{"r1", "r2", "r3"}, rewardIDs(pending))

	limited, err := backend.ListPendingRewards(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)

	at := epoch.Add(time.Hour)
	require.NoError(t, backend.MarkRewardSettled(ctx, "r1", "ref-1", at))
	require.NoError(t, backend.MarkRewardSettled(ctx, "r1", "ref-ignored", at))
	require.NoError(t, backend.MarkRewardAttemptFailed(ctx, "r2", "transfer timeout", false, at))
	require.NoError(t, backend.MarkRewardAttemptFailed(ctx, "r3", "recipient rejected", true, at))

	pending, err = backend.ListPendingRewards(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, []string{"r2"}, rewardIDs(pending))
	require.Equal(t, 1, pending[0].Attempts)
	require.Equal(t, "transfer timeout", pending[0].LastError)

	all, err := backend.ListRewardsByElection(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	byID := map[string]entities.RewardEntry{}
	for _, entry := range all {
		byID[entry.RewardID] = entry
	}
	require.Equal(t, entities.RewardStatusSettled, byID["r1"].Status)
	require.Equal(t, "ref-1", byID["r1"].SettlementRef)
	require.Equal(t, 1, byID["r1"].Attempts)
	require.NotNil(t, byID["r1"].SettledAt)
	require.Equal(t, entities.RewardStatusFailed, byID["r3"].Status)

	require.ErrorIs(t, backend.MarkRewardSettled(ctx, "missing", "ref", at), domainerrors.ErrRewardNotFound)
	require.ErrorIs(t, backend.MarkRewardAttemptFailed(ctx, "missing", "x", false, at), domainerrors.ErrRewardNotFound)

	other, err := backend.ListRewardsByElection(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, other)
}

func testOutboxOrdering(t *testing.T, backend Backend) {
	ctx := context.Background()
	initialize(t, backend, 0)
	for i := 0; i < 3; i++ {
		createElection(t, backend, fmt.Sprintf("Election %d", i), epoch.Add(time.Duration(i)*time.Second))
	}

	pending, err := backend.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	for i, message := range pending {
		require.Equal(t, "election.created", message.EventType)
		require.Equal(t, fmt.Sprintf("%d", i), message.PartitionKey)
	}

	require.NoError(t, backend.MarkOutboxPublished(ctx, pending[0].OutboxID, epoch.Add(time.Hour)))
	remaining, err := backend.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	require.Equal(t, pending[1].OutboxID, remaining[0].OutboxID)

	limited, err := backend.ListPendingOutbox(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)

	require.ErrorIs(t, backend.MarkOutboxPublished(ctx, "unknown", epoch), domainerrors.ErrConflict)
}

func testIdempotency(t *testing.T, backend Backend) {
	ctx := context.Background()
	now := time.Now().UTC()

	_, found, err := backend.Get(ctx, "key-1", now)
	require.NoError(t, err)
	require.False(t, found)

	record := ports.IdempotencyRecord{
		Key:         "key-1",
		RequestHash: "hash-a",
		ResourceID:  "0",
		ExpiresAt:   now.Add(time.Hour),
	}
	require.NoError(t, backend.Put(ctx, record))
	require.NoError(t, backend.Put(ctx, record))

	stored, found, err := backend.Get(ctx, "key-1", now)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "hash-a", stored.RequestHash)
	require.Equal(t, "0", stored.ResourceID)

	conflicting := record
	conflicting.RequestHash = "hash-b"
	require.ErrorIs(t, backend.Put(ctx, conflicting), domainerrors.ErrIdempotencyConflict)

	_, found, err = backend.Get(ctx, "key-1", now.Add(2*time.Hour))
	require.NoError(t, err)
	require.False(t, found)
}

func claimFor(key string, resourceID string, now time.Time) *ports.IdempotencyClaim {
	return &ports.IdempotencyClaim{
		Record: ports.IdempotencyRecord{
			Key:         key,
			RequestHash: "hash-" + key,
			ResourceID:  resourceID,
			ExpiresAt:   now.Add(time.Hour),
		},
		Now: now,
	}
}

func createWithClaim(backend Backend, key string, now time.Time) (entities.Election, error) {
	return backend.CreateElection(context.Background(), func(electionID int64) (entities.Election, ports.Effects, error) {
		election, err := entities.NewElection(electionID, "Claimed", "official", 3600, now)
		if err != nil {
			return entities.Election{}, ports.Effects{}, err
		}
		return election, ports.Effects{
			Events:      []ports.EventEnvelope{envelope(fmt.Sprintf("claimed-%d-%d", electionID, now.UnixNano()), "election.created", electionID, now)},
			Idempotency: claimFor(key, fmt.Sprintf("%d", electionID), now),
		}, nil
	})
}

func testIdempotencyClaim(t *testing.T, backend Backend) {
	ctx := context.Background()
	initialize(t, backend, 0)

	created, err := createWithClaim(backend, "create-key", epoch)
	require.NoError(t, err)
	require.Equal(t, int64(0), created.ElectionID)

	stored, found, err := backend.Get(ctx, "create-key", epoch)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "0", stored.ResourceID)
	require.Equal(t, "hash-create-key", stored.RequestHash)

	_, err = createWithClaim(backend, "create-key", epoch.Add(time.Minute))
	require.ErrorIs(t, err, domainerrors.ErrIdempotencyKeyClaimed)

	elections, err := backend.ListElections(ctx)
	require.NoError(t, err)
	require.Len(t, elections, 1)
	pending, err := backend.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	// A rejected claim does not consume an id.
	next := createElection(t, backend, "Unclaimed", epoch.Add(2*time.Minute))
	require.Equal(t, int64(1), next.ElectionID)

	_, err = backend.UpdateElection(ctx, 1, func(election *entities.Election) (ports.Effects, error) {
		candidate, err := election.AddCandidate("official", "Alice")
		if err != nil {
			return ports.Effects{}, err
		}
		return ports.Effects{Idempotency: claimFor("create-key", fmt.Sprintf("%d", candidate.CandidateID), epoch.Add(3*time.Minute))}, nil
	})
	require.ErrorIs(t, err, domainerrors.ErrIdempotencyKeyClaimed)
	unchanged, err := backend.GetElection(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, unchanged.Candidates)

	later := epoch.Add(2 * time.Hour)
	reclaimed, err := createWithClaim(backend, "create-key", later)
	require.NoError(t, err)
	require.Equal(t, int64(2), reclaimed.ElectionID)
	stored, found, err = backend.Get(ctx, "create-key", later)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "2", stored.ResourceID)
}

func testConcurrentClaims(t *testing.T, backend Backend) {
	ctx := context.Background()
	initialize(t, backend, 0)

	const callers = 8
	start := make(chan struct{})
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := createWithClaim(backend, "shared-key", epoch)
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	created := 0
	for err := range errs {
		if err == nil {
			created++
			continue
		}
		require.ErrorIs(t, err, domainerrors.ErrIdempotencyKeyClaimed)
	}
	require.Equal(t, 1, created)

	elections, err := backend.ListElections(ctx)
	require.NoError(t, err)
	require.Len(t, elections, 1)
}

func testConcurrentVotes(t *testing.T, backend Backend) {
	ctx := context.Background()
	initialize(t, backend, 10)
	createElection(t, backend, "Contended", epoch)

	voters := make([]string, 12)
	for i := range voters {
		voters[i] = fmt.Sprintf("voter-%02d", i)
	}
	seedBallot(t, backend, 0, voters...)

	var wg sync.WaitGroup
	errs := make(chan error, len(voters)*2)
	for i, voter := range voters {
		for attempt := 0; attempt < 2; attempt++ {
			wg.Add(1)
			go func(voter string, candidateID int64, rewardID string) {
				defer wg.Done()
				errs <- vote(backend, 0, voter, candidateID, rewardID, epoch.Add(time.Minute))
			}(voter, int64(i%2), fmt.Sprintf("%s-%d", voter, attempt))
		}
	}
	wg.Wait()
	close(errs)

	accepted := 0
	for err := range errs {
		if err == nil {
			accepted++
			continue
		}
		require.ErrorIs(t, err, domainerrors.ErrAlreadyVoted)
	}
	require.Equal(t, len(voters), accepted)

	election, err := backend.GetElection(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, int64(len(voters)), election.TotalVotes())

	rewards, err := backend.ListRewardsByElection(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rewards, len(voters))
}

func rewardIDs(entries []entities.RewardEntry) []string {
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.RewardID)
	}
	return ids
}
