package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"electionledger/contexts/governance/election-registry/domain/entities"
	domainerrors "electionledger/contexts/governance/election-registry/domain/errors"
	"electionledger/contexts/governance/election-registry/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

// Repository persists the registry with gorm. Every transition runs in one
// database transaction that row-locks the registry (creation) or the election
// (everything else), so concurrent API replicas serialize per election.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Migrate creates or updates the registry tables.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(
		&registryModel{},
		&electionModel{},
		&candidateModel{},
		&voterModel{},
		&rewardModel{},
		&idempotencyModel{},
		&outboxModel{},
	); err != nil {
		return r.logError("registry_repo_migrate_failed", err)
	}
	return nil
}

func (r *Repository) InitializeRegistry(ctx context.Context, registry entities.Registry, effects ports.Effects) error {
	row := registryModel{
		ID:            registrySingletonID,
		PlatformOwner: strings.TrimSpace(registry.PlatformOwner),
		TokenReward:   registry.RewardAmount().String(),
		InitializedAt: registry.InitializedAt.UTC(),
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		create := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).Create(&row)
		if create.Error != nil {
			return create.Error
		}
		if create.RowsAffected == 0 {
			return domainerrors.ErrAlreadyInitialized
		}
		return writeEffects(tx, effects)
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyInitialized) {
			return err
		}
		if isUniqueViolation(err) {
			return domainerrors.ErrAlreadyInitialized
		}
		return r.logError("registry_repo_initialize_failed", err, "platform_owner", row.PlatformOwner)
	}
	return nil
}

func (r *Repository) GetRegistry(ctx context.Context) (entities.Registry, error) {
	var row registryModel
	err := r.db.WithContext(ctx).
		Where("id = ?", registrySingletonID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || isUndefinedTable(err) {
			return entities.Registry{}, domainerrors.ErrRegistryNotInitialized
		}
		return entities.Registry{}, r.logError("registry_repo_get_registry_failed", err)
	}
	return row.toEntity(), nil
}

// CreateElection reserves the next positional id under the registry row lock,
// so ids stay dense and are never reused even across replicas.
func (r *Repository) CreateElection(ctx context.Context, build ports.ElectionBuilder) (entities.Election, error) {
	var created entities.Election
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var registry registryModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", registrySingletonID).
			First(&registry).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrRegistryNotInitialized
			}
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

		row := electionModelFromEntity(election, election.StartTime)
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		if err := tx.Model(&registryModel{}).
			Where("id = ?", registrySingletonID).
			Update("election_count", electionID+1).
			Error; err != nil {
			return err
		}
		if err := writeEffects(tx, effects); err != nil {
			return err
		}
		created = election.Summary()
		return nil
	})
	if err != nil {
		return entities.Election{}, r.translate("registry_repo_create_election_failed", err)
	}
	return created, nil
}

// UpdateElection loads the election with all candidates and voters under
// SELECT ... FOR UPDATE, applies the mutation, and writes only rows that
// changed plus the mutation's effects.
func (r *Repository) UpdateElection(ctx context.Context, electionID int64, mutate ports.ElectionMutation) (entities.Election, error) {
	var updated entities.Election
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row electionModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("election_id = ?", electionID).
			First(&row).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrElectionNotFound
			}
			return err
		}
		candidates, err := loadCandidates(tx, electionID)
		if err != nil {
			return err
		}
		var voters []voterModel
		if err := tx.Where("election_id = ?", electionID).Find(&voters).Error; err != nil {
			return err
		}
		if voters == nil {
			voters = []voterModel{}
		}

		before := row.toEntity(candidates, voters)
		working := before.Clone()
		effects, err := mutate(&working)
		if err != nil {
			return err
		}
		if working.ElectionID != electionID {
			return domainerrors.ErrConflict
		}
		if err := persistElectionDiff(tx, before, working); err != nil {
			return err
		}
		if err := writeEffects(tx, effects); err != nil {
			return err
		}
		updated = working.Summary()
		return nil
	})
	if err != nil {
		return entities.Election{}, r.translate("registry_repo_update_election_failed", err, "election_id", electionID)
	}
	return updated, nil
}

func (r *Repository) GetElection(ctx context.Context, electionID int64) (entities.Election, error) {
	var row electionModel
	err := r.db.WithContext(ctx).
		Where("election_id = ?", electionID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Election{}, domainerrors.ErrElectionNotFound
		}
		return entities.Election{}, r.logError("registry_repo_get_election_failed", err, "election_id", electionID)
	}
	candidates, err := loadCandidates(r.db.WithContext(ctx), electionID)
	if err != nil {
		return entities.Election{}, r.logError("registry_repo_get_candidates_failed", err, "election_id", electionID)
	}
	return row.toEntity(candidates, nil), nil
}

func (r *Repository) ListElections(ctx context.Context) ([]entities.Election, error) {
	var rows []electionModel
	if err := r.db.WithContext(ctx).
		Order("election_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("registry_repo_list_elections_failed", err)
	}
	var candidateRows []candidateModel
	if err := r.db.WithContext(ctx).
		Order("election_id ASC, candidate_id ASC").
		Find(&candidateRows).Error; err != nil {
		return nil, r.logError("registry_repo_list_candidates_failed", err)
	}
	byElection := make(map[int64][]candidateModel, len(rows))
	for _, candidate := range candidateRows {
		byElection[candidate.ElectionID] = append(byElection[candidate.ElectionID], candidate)
	}
	items := make([]entities.Election, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity(byElection[row.ElectionID], nil))
	}
	return items, nil
}

func (r *Repository) GetVoter(ctx context.Context, electionID int64, principal string) (entities.Voter, bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&electionModel{}).
		Where("election_id = ?", electionID).
		Count(&count).Error; err != nil {
		return entities.Voter{}, false, r.logError("registry_repo_count_election_failed", err, "election_id", electionID)
	}
	if count == 0 {
		return entities.Voter{}, false, domainerrors.ErrElectionNotFound
	}

	var row voterModel
	err := r.db.WithContext(ctx).
		Where("election_id = ?", electionID).
		Where("principal = ?", strings.TrimSpace(principal)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Voter{}, false, nil
		}
		return entities.Voter{}, false, r.logError("registry_repo_get_voter_failed", err,
			"election_id", electionID,
			"principal", strings.TrimSpace(principal),
		)
	}
	return row.toEntity(), true, nil
}

func loadCandidates(tx *gorm.DB, electionID int64) ([]candidateModel, error) {
	var rows []candidateModel
	if err := tx.Where("election_id = ?", electionID).
		Order("candidate_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func persistElectionDiff(tx *gorm.DB, before entities.Election, after entities.Election) error {
	if before.IsActive != after.IsActive || !sameOptionalTime(before.ClosedAt, after.ClosedAt) {
		if err := tx.Model(&electionModel{}).
			Where("election_id = ?", after.ElectionID).
			Updates(map[string]any{
				"is_active":  after.IsActive,
				"closed_at":  normalizeOptionalTime(after.ClosedAt),
				"updated_at": time.Now().UTC(),
			}).Error; err != nil {
			return err
		}
	}

	if len(after.Candidates) < len(before.Candidates) {
		return fmt.Errorf("candidate list shrank from %d to %d: %w", len(before.Candidates), len(after.Candidates), domainerrors.ErrConflict)
	}
	for i, candidate := range after.Candidates {
		if i >= len(before.Candidates) {
			row := candidateModel{
				ElectionID:  after.ElectionID,
				CandidateID: candidate.CandidateID,
				Name:        candidate.Name,
				VoteCount:   candidate.VoteCount,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			continue
		}
		if candidate.VoteCount == before.Candidates[i].VoteCount {
			continue
		}
		if candidate.VoteCount < before.Candidates[i].VoteCount {
			return fmt.Errorf("vote count decreased for candidate %d: %w", candidate.CandidateID, domainerrors.ErrConflict)
		}
		if err := tx.Model(&candidateModel{}).
			Where("election_id = ? AND candidate_id = ?", after.ElectionID, candidate.CandidateID).
			Update("vote_count", candidate.VoteCount).Error; err != nil {
			return err
		}
	}

	for principal, voter := range after.Voters {
		previous, existed := before.Voters[principal]
		if existed && previous == voter {
			continue
		}
		row := voterModelFromEntity(after.ElectionID, voter)
		if !existed {
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			continue
		}
		if err := tx.Model(&voterModel{}).
			Where("election_id = ? AND principal = ?", after.ElectionID, principal).
			Updates(map[string]any{
				"is_authorized": row.IsAuthorized,
				"has_voted":     row.HasVoted,
				"authorized_at": row.AuthorizedAt,
				"voted_at":      row.VotedAt,
			}).Error; err != nil {
			return err
		}
	}
	return nil
}

func writeEffects(tx *gorm.DB, effects ports.Effects) error {
	for _, envelope := range effects.Events {
		payload, err := json.Marshal(envelope)
		if err != nil {
			return err
		}
		row := outboxModel{
			OutboxID:     strings.TrimSpace(envelope.EventID),
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			Status:       outboxStatusPending,
			CreatedAt:    envelope.OccurredAt.UTC(),
		}
		if row.OutboxID == "" {
			row.OutboxID = uuid.NewString()
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = time.Now().UTC()
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}
	for _, reward := range effects.Rewards {
		row := rewardModelFromEntity(reward)
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}
	if effects.Idempotency != nil {
		return claimIdempotency(tx, *effects.Idempotency)
	}
	return nil
}

// claimIdempotency inserts the replay record in the transition's transaction.
// A live row for the key, or a concurrent insert of it, rejects the transition.
func claimIdempotency(tx *gorm.DB, claim ports.IdempotencyClaim) error {
	key := strings.TrimSpace(claim.Record.Key)
	var existing idempotencyModel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("key = ?", key).
		First(&existing).
		Error
	switch {
	case err == nil:
		if existing.ExpiresAt.IsZero() || !claim.Now.UTC().After(existing.ExpiresAt.UTC()) {
			return domainerrors.ErrIdempotencyKeyClaimed
		}
		if err := tx.Where("key = ?", key).Delete(&idempotencyModel{}).Error; err != nil {
			return err
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}

	row := idempotencyModel{
		Key:         key,
		RequestHash: strings.TrimSpace(claim.Record.RequestHash),
		ResourceID:  strings.TrimSpace(claim.Record.ResourceID),
		ExpiresAt:   claim.Record.ExpiresAt.UTC(),
	}
	if err := tx.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrIdempotencyKeyClaimed
		}
		return err
	}
	return nil
}

// translate keeps domain errors as-is and logs everything else once.
func (r *Repository) translate(event string, err error, attrs ...any) error {
	var domainErr bool
	for _, target := range []error{
		domainerrors.ErrRegistryNotInitialized,
		domainerrors.ErrElectionNotFound,
		domainerrors.ErrNotElectionOfficial,
		domainerrors.ErrInvalidElectionName,
		domainerrors.ErrInvalidDuration,
		domainerrors.ErrInvalidCandidateName,
		domainerrors.ErrInvalidPrincipal,
		domainerrors.ErrCandidateNotFound,
		domainerrors.ErrElectionNotActive,
		domainerrors.ErrVoterNotAuthorized,
		domainerrors.ErrAlreadyVoted,
		domainerrors.ErrIdempotencyConflict,
		domainerrors.ErrIdempotencyKeyClaimed,
		domainerrors.ErrConflict,
	} {
		if errors.Is(err, target) {
			domainErr = true
			break
		}
	}
	if domainErr {
		return err
	}
	if isUniqueViolation(err) {
		return domainerrors.ErrConflict
	}
	return r.logError(event, err, attrs...)
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "governance/election-registry",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("election registry repository operation failed", fields...)
	return err
}

func sameOptionalTime(a *time.Time, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}

var _ ports.RegistryRepository = (*Repository)(nil)
