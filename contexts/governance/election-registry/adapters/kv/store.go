package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"electionledger/contexts/governance/election-registry/domain/entities"
	domainerrors "electionledger/contexts/governance/election-registry/domain/errors"
	"electionledger/contexts/governance/election-registry/ports"

	"github.com/google/uuid"
)

const (
	keyRegistry          = "registry"
	prefixElection       = "elections/"
	prefixReward         = "rewards/"
	prefixRewardPending  = "rewards_pending/"
	prefixRewardElection = "rewards_by_election/"
	prefixOutbox         = "outbox/"
	prefixOutboxPending  = "outbox_pending/"
	prefixIdempotency    = "idempotency/"

	lockRegistry = "registry"
)

// Store persists the registry as borsh records in a key-value Driver. Every
// transition takes a Locker key, reads what it needs and writes all of its
// keys in one batch.
type Store struct {
	driver Driver
	locker ports.Locker
	logger *slog.Logger
}

func NewStore(driver Driver, locker ports.Locker, logger *slog.Logger) *Store {
	if locker == nil {
		locker = NewMutexLocker()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{driver: driver, locker: locker, logger: logger}
}

func electionKey(electionID int64) string {
	return fmt.Sprintf("%s%020d", prefixElection, electionID)
}

func electionLock(electionID int64) string {
	return "election/" + strconv.FormatInt(electionID, 10)
}

// Ordered keys embed the creation time so a prefix scan returns entries in
// write order.
func orderedSuffix(at time.Time, id string) string {
	return fmt.Sprintf("%020d-%s", toNanos(at), id)
}

func (s *Store) withLock(ctx context.Context, key string, fn func() error) error {
	unlock, err := s.locker.Lock(ctx, key)
	if err != nil {
		s.logError(ctx, "election_registry_kv_lock_failed", err, "lock_key", key)
		return err
	}
	defer func() {
		if unlockErr := unlock(context.WithoutCancel(ctx)); unlockErr != nil {
			s.logError(ctx, "election_registry_kv_unlock_failed", unlockErr, "lock_key", key)
		}
	}()
	return fn()
}

func (s *Store) InitializeRegistry(ctx context.Context, registry entities.Registry, effects ports.Effects) error {
	return s.withLock(ctx, lockRegistry, func() error {
		if _, err := s.driver.GetKey(ctx, keyRegistry); err == nil {
			return domainerrors.ErrAlreadyInitialized
		} else if !errors.Is(err, ErrKeyNotFound) {
			return err
		}
		batch := map[string][]byte{}
		payload, err := encode(registryRecord{
			PlatformOwner: registry.PlatformOwner,
			TokenReward:   registry.RewardAmount().String(),
			InitializedAt: toNanos(registry.InitializedAt),
		})
		if err != nil {
			return err
		}
		batch[keyRegistry] = payload
		if err := s.stageEffects(ctx, batch, effects); err != nil {
			return err
		}
		return s.writeBatch(ctx, "election_registry_kv_initialize_failed", batch)
	})
}

func (s *Store) GetRegistry(ctx context.Context) (entities.Registry, error) {
	record, err := s.loadRegistry(ctx)
	if err != nil {
		return entities.Registry{}, err
	}
	return entities.Registry{
		PlatformOwner: record.PlatformOwner,
		TokenReward:   parseAmount(record.TokenReward),
		InitializedAt: fromNanos(record.InitializedAt),
	}, nil
}

func (s *Store) loadRegistry(ctx context.Context) (registryRecord, error) {
	payload, err := s.driver.GetKey(ctx, keyRegistry)
	if errors.Is(err, ErrKeyNotFound) {
		return registryRecord{}, domainerrors.ErrRegistryNotInitialized
	}
	if err != nil {
		s.logError(ctx, "election_registry_kv_get_registry_failed", err)
		return registryRecord{}, err
	}
	var record registryRecord
	if err := decode(payload, &record); err != nil {
		return registryRecord{}, err
	}
	return record, nil
}

// CreateElection reserves the next id from the registry counter under the
// registry lock.
func (s *Store) CreateElection(ctx context.Context, build ports.ElectionBuilder) (entities.Election, error) {
	var created entities.Election
	err := s.withLock(ctx, lockRegistry, func() error {
		registry, err := s.loadRegistry(ctx)
		if err != nil {
			return err
		}
		electionID := registry.ElectionCount
		election, effects, err := build(electionID)
		if err != nil {
			return err
		}
		if election.ElectionID != electionID {
			return domainerrors.ErrConflict
		}
		registry.ElectionCount++

		batch := map[string][]byte{}
		if batch[keyRegistry], err = encode(registry); err != nil {
			return err
		}
		if batch[electionKey(electionID)], err = encode(electionToRecord(election)); err != nil {
			return err
		}
		if err := s.commit(ctx, "election_registry_kv_create_election_failed", batch, effects); err != nil {
			return err
		}
		created = election.Summary()
		return nil
	})
	if err != nil {
		return entities.Election{}, err
	}
	return created, nil
}

func (s *Store) UpdateElection(ctx context.Context, electionID int64, mutate ports.ElectionMutation) (entities.Election, error) {
	var updated entities.Election
	err := s.withLock(ctx, electionLock(electionID), func() error {
		record, err := s.loadElection(ctx, electionID)
		if err != nil {
			return err
		}
		working := record.toEntity()
		effects, err := mutate(&working)
		if err != nil {
			return err
		}
		if working.ElectionID != electionID {
			return domainerrors.ErrConflict
		}
		batch := map[string][]byte{}
		if batch[electionKey(electionID)], err = encode(electionToRecord(working)); err != nil {
			return err
		}
		if err := s.commit(ctx, "election_registry_kv_update_election_failed", batch, effects); err != nil {
			return err
		}
		updated = working.Summary()
		return nil
	})
	if err != nil {
		return entities.Election{}, err
	}
	return updated, nil
}

func (s *Store) loadElection(ctx context.Context, electionID int64) (electionRecord, error) {
	if electionID < 0 {
		return electionRecord{}, domainerrors.ErrElectionNotFound
	}
	payload, err := s.driver.GetKey(ctx, electionKey(electionID))
	if errors.Is(err, ErrKeyNotFound) {
		return electionRecord{}, domainerrors.ErrElectionNotFound
	}
	if err != nil {
		s.logError(ctx, "election_registry_kv_get_election_failed", err, "election_id", electionID)
		return electionRecord{}, err
	}
	var record electionRecord
	if err := decode(payload, &record); err != nil {
		return electionRecord{}, err
	}
	return record, nil
}

func (s *Store) GetElection(ctx context.Context, electionID int64) (entities.Election, error) {
	record, err := s.loadElection(ctx, electionID)
	if err != nil {
		return entities.Election{}, err
	}
	return record.toEntity().Summary(), nil
}

func (s *Store) ListElections(ctx context.Context) ([]entities.Election, error) {
	keys, err := s.driver.ScanPrefix(ctx, prefixElection)
	if err != nil {
		s.logError(ctx, "election_registry_kv_list_elections_failed", err)
		return nil, err
	}
	items := make([]entities.Election, 0, len(keys))
	for _, key := range keys {
		payload, err := s.driver.GetKey(ctx, key)
		if err != nil {
			return nil, err
		}
		var record electionRecord
		if err := decode(payload, &record); err != nil {
			return nil, err
		}
		items = append(items, record.toEntity().Summary())
	}
	return items, nil
}

func (s *Store) GetVoter(ctx context.Context, electionID int64, principal string) (entities.Voter, bool, error) {
	record, err := s.loadElection(ctx, electionID)
	if err != nil {
		return entities.Voter{}, false, err
	}
	principal = strings.TrimSpace(principal)
	for _, voter := range record.Voters {
		if voter.Principal == principal {
			return entities.Voter{
				Principal:    voter.Principal,
				IsAuthorized: voter.IsAuthorized,
				HasVoted:     voter.HasVoted,
				AuthorizedAt: fromNanos(voter.AuthorizedAt),
				VotedAt:      fromNanos(voter.VotedAt),
			}, true, nil
		}
	}
	return entities.Voter{}, false, nil
}

func (s *Store) ListPendingRewards(ctx context.Context, limit int) ([]entities.RewardEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	keys, err := s.driver.ScanPrefix(ctx, prefixRewardPending)
	if err != nil {
		s.logError(ctx, "election_registry_kv_list_pending_rewards_failed", err)
		return nil, err
	}
	if len(keys) > limit {
		keys = keys[:limit]
	}
	items := make([]entities.RewardEntry, 0, len(keys))
	for _, key := range keys {
		record, err := s.loadReward(ctx, rewardIDFromIndex(key))
		if err != nil {
			return nil, err
		}
		items = append(items, record.toEntity())
	}
	return items, nil
}

func (s *Store) ListRewardsByElection(ctx context.Context, electionID int64) ([]entities.RewardEntry, error) {
	keys, err := s.driver.ScanPrefix(ctx, fmt.Sprintf("%s%020d/", prefixRewardElection, electionID))
	if err != nil {
		s.logError(ctx, "election_registry_kv_list_rewards_failed", err, "election_id", electionID)
		return nil, err
	}
	items := make([]entities.RewardEntry, 0, len(keys))
	for _, key := range keys {
		record, err := s.loadReward(ctx, rewardIDFromIndex(key))
		if err != nil {
			return nil, err
		}
		items = append(items, record.toEntity())
	}
	return items, nil
}

func (s *Store) MarkRewardSettled(ctx context.Context, rewardID string, reference string, settledAt time.Time) error {
	rewardID = strings.TrimSpace(rewardID)
	return s.withLock(ctx, "reward/"+rewardID, func() error {
		record, err := s.loadReward(ctx, rewardID)
		if err != nil {
			return err
		}
		if record.Status == string(entities.RewardStatusSettled) {
			return nil
		}
		record.Status = string(entities.RewardStatusSettled)
		record.Attempts++
		record.SettlementRef = strings.TrimSpace(reference)
		record.LastError = ""
		record.SettledAt = toNanos(settledAt)
		record.UpdatedAt = toNanos(settledAt)
		return s.saveReward(ctx, record, true)
	})
}

func (s *Store) MarkRewardAttemptFailed(ctx context.Context, rewardID string, reason string, exhausted bool, at time.Time) error {
	rewardID = strings.TrimSpace(rewardID)
	return s.withLock(ctx, "reward/"+rewardID, func() error {
		record, err := s.loadReward(ctx, rewardID)
		if err != nil {
			return err
		}
		record.Attempts++
		record.LastError = strings.TrimSpace(reason)
		record.UpdatedAt = toNanos(at)
		if exhausted {
			record.Status = string(entities.RewardStatusFailed)
		}
		return s.saveReward(ctx, record, exhausted)
	})
}

func (s *Store) loadReward(ctx context.Context, rewardID string) (rewardRecord, error) {
	payload, err := s.driver.GetKey(ctx, prefixReward+rewardID)
	if errors.Is(err, ErrKeyNotFound) {
		return rewardRecord{}, domainerrors.ErrRewardNotFound
	}
	if err != nil {
		s.logError(ctx, "election_registry_kv_get_reward_failed", err, "reward_id", rewardID)
		return rewardRecord{}, err
	}
	var record rewardRecord
	if err := decode(payload, &record); err != nil {
		return rewardRecord{}, err
	}
	return record, nil
}

func (s *Store) saveReward(ctx context.Context, record rewardRecord, leavePending bool) error {
	payload, err := encode(record)
	if err != nil {
		return err
	}
	batch := map[string][]byte{prefixReward + record.RewardID: payload}
	if leavePending {
		batch[prefixRewardPending+orderedSuffix(fromNanos(record.CreatedAt), record.RewardID)] = nil
	}
	return s.writeBatch(ctx, "election_registry_kv_save_reward_failed", batch)
}

func rewardIDFromIndex(key string) string {
	index := strings.LastIndex(key, "/")
	suffix := key[index+1:]
	if dash := strings.Index(suffix, "-"); dash >= 0 {
		return suffix[dash+1:]
	}
	return suffix
}

func (s *Store) Get(ctx context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	key = strings.TrimSpace(key)
	payload, err := s.driver.GetKey(ctx, prefixIdempotency+key)
	if errors.Is(err, ErrKeyNotFound) {
		return ports.IdempotencyRecord{}, false, nil
	}
	if err != nil {
		s.logError(ctx, "election_registry_kv_get_idempotency_failed", err, "idempotency_key", key)
		return ports.IdempotencyRecord{}, false, err
	}
	var record idempotencyRecord
	if err := decode(payload, &record); err != nil {
		return ports.IdempotencyRecord{}, false, err
	}
	expiresAt := fromNanos(record.ExpiresAt)
	if !expiresAt.After(now.UTC()) {
		return ports.IdempotencyRecord{}, false, nil
	}
	return ports.IdempotencyRecord{
		Key:         record.Key,
		RequestHash: record.RequestHash,
		ResourceID:  record.ResourceID,
		ExpiresAt:   expiresAt,
	}, true, nil
}

func (s *Store) Put(ctx context.Context, record ports.IdempotencyRecord) error {
	key := strings.TrimSpace(record.Key)
	return s.withLock(ctx, "idempotency/"+key, func() error {
		existing, found, err := s.Get(ctx, key, time.Now().UTC())
		if err != nil {
			return err
		}
		if found {
			if existing.RequestHash != record.RequestHash || existing.ResourceID != record.ResourceID {
				return domainerrors.ErrIdempotencyConflict
			}
			return nil
		}
		payload, err := encode(idempotencyRecord{
			Key:         key,
			RequestHash: strings.TrimSpace(record.RequestHash),
			ResourceID:  strings.TrimSpace(record.ResourceID),
			ExpiresAt:   toNanos(record.ExpiresAt),
		})
		if err != nil {
			return err
		}
		return s.writeBatch(ctx, "election_registry_kv_put_idempotency_failed", map[string][]byte{prefixIdempotency + key: payload})
	})
}

func (s *Store) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	keys, err := s.driver.ScanPrefix(ctx, prefixOutboxPending)
	if err != nil {
		s.logError(ctx, "election_registry_kv_list_outbox_failed", err)
		return nil, err
	}
	if len(keys) > limit {
		keys = keys[:limit]
	}
	items := make([]ports.OutboxMessage, 0, len(keys))
	for _, key := range keys {
		record, err := s.loadOutbox(ctx, strings.TrimPrefix(key, prefixOutboxPending))
		if err != nil {
			return nil, err
		}
		items = append(items, record.toMessage())
	}
	return items, nil
}

// MarkOutboxPublished takes the ordered outbox id handed out by
// ListPendingOutbox.
func (s *Store) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	outboxID = strings.TrimSpace(outboxID)
	return s.withLock(ctx, "outbox/"+outboxID, func() error {
		record, err := s.loadOutbox(ctx, outboxID)
		if err != nil {
			return err
		}
		if record.Published {
			return nil
		}
		record.Published = true
		record.PublishedAt = toNanos(publishedAt)
		payload, err := encode(record)
		if err != nil {
			return err
		}
		return s.writeBatch(ctx, "election_registry_kv_mark_outbox_failed", map[string][]byte{
			prefixOutbox + outboxID:        payload,
			prefixOutboxPending + outboxID: nil,
		})
	})
}

func (s *Store) loadOutbox(ctx context.Context, outboxID string) (outboxRecord, error) {
	payload, err := s.driver.GetKey(ctx, prefixOutbox+outboxID)
	if errors.Is(err, ErrKeyNotFound) {
		return outboxRecord{}, domainerrors.ErrConflict
	}
	if err != nil {
		return outboxRecord{}, err
	}
	var record outboxRecord
	if err := decode(payload, &record); err != nil {
		return outboxRecord{}, err
	}
	return record, nil
}

// commit stages effects into batch and writes it. A claimed idempotency key
// is checked and written under its own lock, always taken after the
// transition's lock.
func (s *Store) commit(ctx context.Context, event string, batch map[string][]byte, effects ports.Effects) error {
	write := func() error {
		if err := s.stageEffects(ctx, batch, effects); err != nil {
			return err
		}
		return s.writeBatch(ctx, event, batch)
	}
	claim := effects.Idempotency
	if claim == nil {
		return write()
	}
	key := strings.TrimSpace(claim.Record.Key)
	return s.withLock(ctx, "idempotency/"+key, func() error {
		if _, found, err := s.Get(ctx, key, claim.Now); err != nil {
			return err
		} else if found {
			return domainerrors.ErrIdempotencyKeyClaimed
		}
		return write()
	})
}

// stageEffects adds outbox rows and reward entries to a pending batch. Reward
// ids must be new.
func (s *Store) stageEffects(ctx context.Context, batch map[string][]byte, effects ports.Effects) error {
	for _, envelope := range effects.Events {
		payload, err := json.Marshal(envelope)
		if err != nil {
			return err
		}
		createdAt := envelope.OccurredAt.UTC()
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		eventID := strings.TrimSpace(envelope.EventID)
		if eventID == "" {
			eventID = uuid.NewString()
		}
		outboxID := orderedSuffix(createdAt, eventID)
		record, err := encode(outboxRecord{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    toNanos(createdAt),
		})
		if err != nil {
			return err
		}
		batch[prefixOutbox+outboxID] = record
		batch[prefixOutboxPending+outboxID] = []byte(eventID)
	}
	for _, reward := range effects.Rewards {
		rewardID := strings.TrimSpace(reward.RewardID)
		if _, err := s.driver.GetKey(ctx, prefixReward+rewardID); err == nil {
			return domainerrors.ErrConflict
		} else if !errors.Is(err, ErrKeyNotFound) {
			return err
		}
		reward.RewardID = rewardID
		record, err := encode(rewardToRecord(reward))
		if err != nil {
			return err
		}
		suffix := orderedSuffix(reward.CreatedAt, rewardID)
		batch[prefixReward+rewardID] = record
		batch[fmt.Sprintf("%s%020d/%s", prefixRewardElection, reward.ElectionID, suffix)] = []byte(rewardID)
		if reward.Status == "" || reward.Status == entities.RewardStatusPending {
			batch[prefixRewardPending+suffix] = []byte(rewardID)
		}
	}
	if claim := effects.Idempotency; claim != nil {
		key := strings.TrimSpace(claim.Record.Key)
		record, err := encode(idempotencyRecord{
			Key:         key,
			RequestHash: strings.TrimSpace(claim.Record.RequestHash),
			ResourceID:  strings.TrimSpace(claim.Record.ResourceID),
			ExpiresAt:   toNanos(claim.Record.ExpiresAt),
		})
		if err != nil {
			return err
		}
		batch[prefixIdempotency+key] = record
	}
	return nil
}

func (s *Store) writeBatch(ctx context.Context, event string, batch map[string][]byte) error {
	if err := s.driver.WriteBatch(ctx, batch); err != nil {
		s.logError(ctx, event, err, "keys", len(batch))
		return err
	}
	return nil
}

func (s *Store) logError(ctx context.Context, event string, err error, attrs ...any) {
	base := []any{
		"event", event,
		"module", "governance/election-registry",
		"layer", "adapter",
		"backend", "kv",
		"error", err.Error(),
	}
	s.logger.ErrorContext(ctx, "election registry kv operation failed", append(base, attrs...)...)
}
