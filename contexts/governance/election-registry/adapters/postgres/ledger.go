package postgresadapter

import (
	"context"
	"errors"
	"strings"
	"time"

	"electionledger/contexts/governance/election-registry/domain/entities"
	domainerrors "electionledger/contexts/governance/election-registry/domain/errors"
	"electionledger/contexts/governance/election-registry/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *Repository) ListPendingRewards(ctx context.Context, limit int) ([]entities.RewardEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []rewardModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(entities.RewardStatusPending)).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("registry_repo_list_pending_rewards_failed", err, "limit", limit)
	}
	return toRewardEntities(rows), nil
}

func (r *Repository) ListRewardsByElection(ctx context.Context, electionID int64) ([]entities.RewardEntry, error) {
	var rows []rewardModel
	if err := r.db.WithContext(ctx).
		Where("election_id = ?", electionID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("registry_repo_list_rewards_failed", err, "election_id", electionID)
	}
	return toRewardEntities(rows), nil
}

func (r *Repository) MarkRewardSettled(ctx context.Context, rewardID string, reference string, settledAt time.Time) error {
	at := settledAt.UTC()
	result := r.db.WithContext(ctx).
		Model(&rewardModel{}).
		Where("reward_id = ?", strings.TrimSpace(rewardID)).
		Where("status <> ?", string(entities.RewardStatusSettled)).
		Updates(map[string]any{
			"status":         string(entities.RewardStatusSettled),
			"attempts":       gorm.Expr("attempts + 1"),
			"settlement_ref": strings.TrimSpace(reference),
			"last_error":     "",
			"settled_at":     &at,
			"updated_at":     at,
		})
	if result.Error != nil {
		return r.logError("registry_repo_mark_reward_settled_failed", result.Error, "reward_id", strings.TrimSpace(rewardID))
	}
	if result.RowsAffected == 0 {
		return r.requireReward(ctx, rewardID)
	}
	return nil
}

func (r *Repository) MarkRewardAttemptFailed(ctx context.Context, rewardID string, reason string, exhausted bool, at time.Time) error {
	updates := map[string]any{
		"attempts":   gorm.Expr("attempts + 1"),
		"last_error": strings.TrimSpace(reason),
		"updated_at": at.UTC(),
	}
	if exhausted {
		updates["status"] = string(entities.RewardStatusFailed)
	}
	result := r.db.WithContext(ctx).
		Model(&rewardModel{}).
		Where("reward_id = ?", strings.TrimSpace(rewardID)).
		Updates(updates)
	if result.Error != nil {
		return r.logError("registry_repo_mark_reward_failed_failed", result.Error, "reward_id", strings.TrimSpace(rewardID))
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrRewardNotFound
	}
	return nil
}

// requireReward distinguishes "already settled" (nil) from "unknown id".
func (r *Repository) requireReward(ctx context.Context, rewardID string) error {
	var row rewardModel
	err := r.db.WithContext(ctx).
		Select("reward_id").
		Where("reward_id = ?", strings.TrimSpace(rewardID)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainerrors.ErrRewardNotFound
		}
		return r.logError("registry_repo_get_reward_failed", err, "reward_id", strings.TrimSpace(rewardID))
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	var row idempotencyModel
	err := r.db.WithContext(ctx).
		Where("key = ?", strings.TrimSpace(key)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.IdempotencyRecord{}, false, nil
		}
		return ports.IdempotencyRecord{}, false, r.logError("registry_repo_idempotency_get_failed", err,
			"idempotency_key", strings.TrimSpace(key),
		)
	}
	if !row.ExpiresAt.IsZero() && now.UTC().After(row.ExpiresAt.UTC()) {
		if err := r.db.WithContext(ctx).
			Where("key = ?", strings.TrimSpace(key)).
			Delete(&idempotencyModel{}).Error; err != nil {
			return ports.IdempotencyRecord{}, false, r.logError("registry_repo_idempotency_expire_delete_failed", err,
				"idempotency_key", strings.TrimSpace(key),
			)
		}
		return ports.IdempotencyRecord{}, false, nil
	}
	return ports.IdempotencyRecord{
		Key:         row.Key,
		RequestHash: row.RequestHash,
		ResourceID:  row.ResourceID,
		ExpiresAt:   row.ExpiresAt.UTC(),
	}, true, nil
}

func (r *Repository) Put(ctx context.Context, record ports.IdempotencyRecord) error {
	row := idempotencyModel{
		Key:         strings.TrimSpace(record.Key),
		RequestHash: strings.TrimSpace(record.RequestHash),
		ResourceID:  strings.TrimSpace(record.ResourceID),
		ExpiresAt:   record.ExpiresAt.UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("registry_repo_idempotency_put_failed", create.Error, "idempotency_key", row.Key)
	}
	if create.RowsAffected > 0 {
		return nil
	}

	var existing idempotencyModel
	if err := r.db.WithContext(ctx).
		Where("key = ?", row.Key).
		First(&existing).Error; err != nil {
		return r.logError("registry_repo_idempotency_load_existing_failed", err, "idempotency_key", row.Key)
	}
	if existing.RequestHash != row.RequestHash || existing.ResourceID != row.ResourceID {
		return domainerrors.ErrIdempotencyConflict
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC, outbox_id ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("registry_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("registry_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func toRewardEntities(rows []rewardModel) []entities.RewardEntry {
	items := make([]entities.RewardEntry, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items
}

var _ ports.RewardLedger = (*Repository)(nil)
var _ ports.IdempotencyStore = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
