package workers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	application "electionledger/contexts/governance/election-registry/application"
	domainerrors "electionledger/contexts/governance/election-registry/domain/errors"
	"electionledger/contexts/governance/election-registry/ports"
)

const defaultRewardMaxAttempts = 5

type SettlementReport struct {
	Settled  int
	Retried  int
	Failed   int
	Deferred int
}

// RewardSettler pays reward-owed entries recorded by castVote. Vote state
// never depends on its outcome.
type RewardSettler struct {
	Rewards     ports.RewardLedger
	Payer       ports.RewardPayer
	Clock       ports.Clock
	BatchSize   int
	MaxAttempts int
	Disabled    bool
	Logger      *slog.Logger
}

// RunOnce settles one batch of pending entries. Payout errors are recorded on
// the entry and do not abort the batch; only ledger errors do. When the payer
// is unavailable the rest of the batch stays pending without using an attempt.
func (s RewardSettler) RunOnce(ctx context.Context) (SettlementReport, error) {
	logger := application.ResolveLogger(s.Logger)
	if s.Disabled {
		return SettlementReport{}, nil
	}
	limit := s.BatchSize
	if limit <= 0 {
		limit = 100
	}
	maxAttempts := s.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultRewardMaxAttempts
	}

	pending, err := s.Rewards.ListPendingRewards(ctx, limit)
	if err != nil {
		logger.Error("reward ledger list failed",
			"event", "registry_reward_list_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"error", err.Error(),
		)
		return SettlementReport{}, err
	}

	var report SettlementReport
	for _, entry := range pending {
		now := s.now()
		reference, err := s.Payer.Transfer(ctx, ports.RewardTransfer{
			RewardID:   entry.RewardID,
			ElectionID: entry.ElectionID,
			Recipient:  entry.Voter,
			Amount:     entry.Amount,
		})
		if errors.Is(err, domainerrors.ErrPayerUnavailable) {
			report.Deferred = len(pending) - report.Settled - report.Retried - report.Failed
			logger.Warn("reward settlement deferred",
				"event", "registry_reward_settlement_deferred",
				"module", application.ModuleName,
				"layer", "worker",
				"reward_id", entry.RewardID,
				"deferred", report.Deferred,
				"error", err.Error(),
			)
			break
		}
		if err != nil {
			exhausted := entry.Attempts+1 >= maxAttempts
			logger.Warn("reward transfer failed",
				"event", "registry_reward_transfer_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"reward_id", entry.RewardID,
				"election_id", entry.ElectionID,
				"voter", entry.Voter,
				"attempt", entry.Attempts+1,
				"exhausted", exhausted,
				"error", err.Error(),
			)
			if markErr := s.Rewards.MarkRewardAttemptFailed(ctx, entry.RewardID, err.Error(), exhausted, now); markErr != nil {
				return report, markErr
			}
			if exhausted {
				report.Failed++
			} else {
				report.Retried++
			}
			continue
		}
		if err := s.Rewards.MarkRewardSettled(ctx, entry.RewardID, reference, now); err != nil {
			logger.Error("reward mark settled failed",
				"event", "registry_reward_mark_settled_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"reward_id", entry.RewardID,
				"error", err.Error(),
			)
			return report, err
		}
		report.Settled++
	}

	if len(pending) > 0 {
		logger.Info("reward settlement cycle completed",
			"event", "registry_reward_settlement_completed",
			"module", application.ModuleName,
			"layer", "worker",
			"settled", report.Settled,
			"retried", report.Retried,
			"failed", report.Failed,
			"deferred", report.Deferred,
		)
	}
	return report, nil
}

func (s RewardSettler) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}
