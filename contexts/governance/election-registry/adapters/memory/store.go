package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"electionledger/contexts/governance/election-registry/domain/entities"
	domainerrors "electionledger/contexts/governance/election-registry/domain/errors"
	"electionledger/contexts/governance/election-registry/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	sequence  int64
	published bool
}

// Store keeps the whole registry in process memory. One RWMutex serializes
// every transition; reads share the read lock.
type Store struct {
	mu sync.RWMutex

	registry    *entities.Registry
	elections   []entities.Election
	rewards     map[string]entities.RewardEntry
	rewardOrder []string
	idempotency map[string]ports.IdempotencyRecord
	outbox      map[string]outboxRecord
	sequence    int64
	balances    map[string]*big.Int
	clock       func() time.Time
}

func NewStore() *Store {
	return &Store{
		elections:   []entities.Election{},
		rewards:     make(map[string]entities.RewardEntry),
		idempotency: make(map[string]ports.IdempotencyRecord),
		outbox:      make(map[string]outboxRecord),
		balances:    make(map[string]*big.Int),
	}
}

// SetClock overrides Now for tests that need to move past an election window.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = now
}

func (s *Store) InitializeRegistry(_ context.Context, registry entities.Registry, effects ports.Effects) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registry != nil {
		return domainerrors.ErrAlreadyInitialized
	}
	if err := s.checkEffectsLocked(effects); err != nil {
		return err
	}
	stored := registry
	stored.TokenReward = registry.RewardAmount()
	s.registry = &stored
	s.applyEffectsLocked(effects)
	return nil
}

func (s *Store) GetRegistry(_ context.Context) (entities.Registry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.registry == nil {
		return entities.Registry{}, domainerrors.ErrRegistryNotInitialized
	}
	registry := *s.registry
	registry.TokenReward = s.registry.RewardAmount()
	return registry, nil
}

func (s *Store) CreateElection(_ context.Context, build ports.ElectionBuilder) (entities.Election, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	electionID := int64(len(s.elections))
	election, effects, err := build(electionID)
	if err != nil {
		return entities.Election{}, err
	}
	if election.ElectionID != electionID {
		return entities.Election{}, domainerrors.ErrConflict
	}
	if err := s.checkEffectsLocked(effects); err != nil {
		return entities.Election{}, err
	}
	if election.Voters == nil {
		election.Voters = map[string]entities.Voter{}
	}
	s.elections = append(s.elections, election.Clone())
	s.applyEffectsLocked(effects)
	return election.Summary(), nil
}

// UpdateElection hands the mutation a private copy and only swaps it in when
// the mutation and its effects succeed, so a rejected transition leaves no
// trace.
func (s *Store) UpdateElection(_ context.Context, electionID int64, mutate ports.ElectionMutation) (entities.Election, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if electionID < 0 || electionID >= int64(len(s.elections)) {
		return entities.Election{}, domainerrors.ErrElectionNotFound
	}
	working := s.elections[electionID].Clone()
	effects, err := mutate(&working)
	if err != nil {
		return entities.Election{}, err
	}
	if working.ElectionID != electionID {
		return entities.Election{}, domainerrors.ErrConflict
	}
	if err := s.checkEffectsLocked(effects); err != nil {
		return entities.Election{}, err
	}
	s.elections[electionID] = working
	s.applyEffectsLocked(effects)
	return working.Summary(), nil
}

func (s *Store) GetElection(_ context.Context, electionID int64) (entities.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if electionID < 0 || electionID >= int64(len(s.elections)) {
		return entities.Election{}, domainerrors.ErrElectionNotFound
	}
	return s.elections[electionID].Summary(), nil
}

func (s *Store) ListElections(_ context.Context) ([]entities.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Election, 0, len(s.elections))
	for _, election := range s.elections {
		items = append(items, election.Summary())
	}
	return items, nil
}

func (s *Store) GetVoter(_ context.Context, electionID int64, principal string) (entities.Voter, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if electionID < 0 || electionID >= int64(len(s.elections)) {
		return entities.Voter{}, false, domainerrors.ErrElectionNotFound
	}
	voter, ok := s.elections[electionID].Voters[strings.TrimSpace(principal)]
	return voter, ok, nil
}

// Snapshot returns a full copy of an election, voters included. Tests use it
// to check tally invariants.
func (s *Store) Snapshot(electionID int64) (entities.Election, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if electionID < 0 || electionID >= int64(len(s.elections)) {
		return entities.Election{}, false
	}
	return s.elections[electionID].Clone(), true
}

func (s *Store) ListPendingRewards(_ context.Context, limit int) ([]entities.RewardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	items := make([]entities.RewardEntry, 0)
	for _, rewardID := range s.rewardOrder {
		entry := s.rewards[rewardID]
		if entry.Status != entities.RewardStatusPending {
			continue
		}
		items = append(items, cloneReward(entry))
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

func (s *Store) ListRewardsByElection(_ context.Context, electionID int64) ([]entities.RewardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.RewardEntry, 0)
	for _, rewardID := range s.rewardOrder {
		entry := s.rewards[rewardID]
		if entry.ElectionID == electionID {
			items = append(items, cloneReward(entry))
		}
	}
	return items, nil
}

func (s *Store) MarkRewardSettled(_ context.Context, rewardID string, reference string, settledAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.rewards[strings.TrimSpace(rewardID)]
	if !ok {
		return domainerrors.ErrRewardNotFound
	}
	if entry.Status == entities.RewardStatusSettled {
		return nil
	}
	at := settledAt.UTC()
	entry.Status = entities.RewardStatusSettled
	entry.Attempts++
	entry.SettlementRef = strings.TrimSpace(reference)
	entry.LastError = ""
	entry.SettledAt = &at
	entry.UpdatedAt = at
	s.rewards[entry.RewardID] = entry
	return nil
}

func (s *Store) MarkRewardAttemptFailed(_ context.Context, rewardID string, reason string, exhausted bool, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.rewards[strings.TrimSpace(rewardID)]
	if !ok {
		return domainerrors.ErrRewardNotFound
	}
	entry.Attempts++
	entry.LastError = strings.TrimSpace(reason)
	entry.UpdatedAt = at.UTC()
	if exhausted {
		entry.Status = entities.RewardStatusFailed
	}
	s.rewards[entry.RewardID] = entry
	return nil
}

// Transfer credits an in-process balance. It stands in for the token
// facility in tests and single-process deployments.
func (s *Store) Transfer(_ context.Context, transfer ports.RewardTransfer) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recipient := strings.TrimSpace(transfer.Recipient)
	if recipient == "" {
		return "", domainerrors.ErrInvalidPrincipal
	}
	balance, ok := s.balances[recipient]
	if !ok {
		balance = new(big.Int)
		s.balances[recipient] = balance
	}
	if transfer.Amount != nil {
		balance.Add(balance, transfer.Amount)
	}
	return "memory:" + transfer.RewardID, nil
}

func (s *Store) Balance(principal string) *big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	balance, ok := s.balances[strings.TrimSpace(principal)]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(balance)
}

func (s *Store) Get(_ context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key = strings.TrimSpace(key)
	record, exists := s.idempotency[key]
	if !exists {
		return ports.IdempotencyRecord{}, false, nil
	}
	if !record.ExpiresAt.After(now.UTC()) {
		delete(s.idempotency, key)
		return ports.IdempotencyRecord{}, false, nil
	}
	return record, true, nil
}

func (s *Store) Put(_ context.Context, record ports.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(record.Key)
	if existing, exists := s.idempotency[key]; exists {
		if existing.RequestHash != record.RequestHash || existing.ResourceID != record.ResourceID {
			return domainerrors.ErrIdempotencyConflict
		}
		return nil
	}
	s.idempotency[key] = ports.IdempotencyRecord{
		Key:         key,
		RequestHash: strings.TrimSpace(record.RequestHash),
		ResourceID:  strings.TrimSpace(record.ResourceID),
		ExpiresAt:   record.ExpiresAt.UTC(),
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows := make([]outboxRecord, 0, len(s.outbox))
	for _, row := range s.outbox {
		if !row.published {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].sequence < rows[j].sequence
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.message)
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) Now() time.Time {
	s.mu.RLock()
	clock := s.clock
	s.mu.RUnlock()
	if clock != nil {
		return clock().UTC()
	}
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

// checkEffectsLocked rejects effects that would collide with stored rows
// before anything is written.
func (s *Store) checkEffectsLocked(effects ports.Effects) error {
	for _, envelope := range effects.Events {
		if existing, ok := s.outbox[outboxIDFor(envelope)]; ok {
			payload, err := json.Marshal(envelope)
			if err != nil {
				return err
			}
			if !bytes.Equal(existing.message.Payload, payload) {
				return domainerrors.ErrConflict
			}
		}
	}
	for _, reward := range effects.Rewards {
		if _, ok := s.rewards[strings.TrimSpace(reward.RewardID)]; ok {
			return domainerrors.ErrConflict
		}
	}
	if claim := effects.Idempotency; claim != nil {
		existing, ok := s.idempotency[strings.TrimSpace(claim.Record.Key)]
		if ok && existing.ExpiresAt.After(claim.Now.UTC()) {
			return domainerrors.ErrIdempotencyKeyClaimed
		}
	}
	return nil
}

func (s *Store) applyEffectsLocked(effects ports.Effects) {
	for _, envelope := range effects.Events {
		outboxID := outboxIDFor(envelope)
		if _, ok := s.outbox[outboxID]; ok {
			continue
		}
		payload, _ := json.Marshal(envelope)
		createdAt := envelope.OccurredAt.UTC()
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		s.sequence++
		s.outbox[outboxID] = outboxRecord{
			message: ports.OutboxMessage{
				OutboxID:     outboxID,
				EventType:    strings.TrimSpace(envelope.EventType),
				PartitionKey: strings.TrimSpace(envelope.PartitionKey),
				Payload:      payload,
				CreatedAt:    createdAt,
			},
			sequence: s.sequence,
		}
	}
	for _, reward := range effects.Rewards {
		stored := cloneReward(reward)
		stored.RewardID = strings.TrimSpace(stored.RewardID)
		s.rewards[stored.RewardID] = stored
		s.rewardOrder = append(s.rewardOrder, stored.RewardID)
	}
	if claim := effects.Idempotency; claim != nil {
		key := strings.TrimSpace(claim.Record.Key)
		s.idempotency[key] = ports.IdempotencyRecord{
			Key:         key,
			RequestHash: strings.TrimSpace(claim.Record.RequestHash),
			ResourceID:  strings.TrimSpace(claim.Record.ResourceID),
			ExpiresAt:   claim.Record.ExpiresAt.UTC(),
		}
	}
}

func outboxIDFor(envelope ports.EventEnvelope) string {
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	return outboxID
}

func cloneReward(entry entities.RewardEntry) entities.RewardEntry {
	out := entry
	out.Amount = new(big.Int)
	if entry.Amount != nil {
		out.Amount.Set(entry.Amount)
	}
	if entry.SettledAt != nil {
		settledAt := *entry.SettledAt
		out.SettledAt = &settledAt
	}
	return out
}
