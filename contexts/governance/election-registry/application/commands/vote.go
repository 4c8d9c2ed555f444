package commands

import (
	"context"
	"log/slog"
	"strings"

	application "electionledger/contexts/governance/election-registry/application"
	"electionledger/contexts/governance/election-registry/domain/entities"
	"electionledger/contexts/governance/election-registry/ports"
)

type CastVoteCommand struct {
	Voter       string
	ElectionID  int64
	CandidateID int64
}

type CastVoteResult struct {
	Candidate entities.Candidate
	Voter     entities.Voter
	// Reward is nil when the registry reward is zero.
	Reward *entities.RewardEntry
}

// VoteUseCase runs the vote-casting transition.
type VoteUseCase struct {
	Registry ports.RegistryRepository
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Logger   *slog.Logger
}

// CastVote records one vote for the caller. The tally increment, the voter's
// hasVoted flag, the vote.cast event and the reward-owed entry commit
// together or not at all.
func (uc VoteUseCase) CastVote(ctx context.Context, cmd CastVoteCommand) (CastVoteResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("vote cast processing started",
		"event", "election_vote_cast_started",
		"module", application.ModuleName,
		"layer", "application",
		"election_id", cmd.ElectionID,
		"candidate_id", cmd.CandidateID,
		"voter", strings.TrimSpace(cmd.Voter),
	)
	registry, err := requireRegistry(ctx, uc.Registry)
	if err != nil {
		return CastVoteResult{}, err
	}
	now := resolveNow(uc.Clock)

	var result CastVoteResult
	_, err = uc.Registry.UpdateElection(ctx, cmd.ElectionID, func(election *entities.Election) (ports.Effects, error) {
		candidate, voter, err := election.CastVote(cmd.Voter, cmd.CandidateID, now)
		if err != nil {
			return ports.Effects{}, err
		}
		result = CastVoteResult{Candidate: candidate, Voter: voter}

		envelope, err := electionEvent(ctx, uc.IDGen, eventVoteCast, election.ElectionID, now, map[string]any{
			"candidate_id": candidate.CandidateID,
			"voter":        voter.Principal,
			"vote_count":   candidate.VoteCount,
		})
		if err != nil {
			return ports.Effects{}, err
		}
		effects := ports.Effects{Events: []ports.EventEnvelope{envelope}}

		if registry.PaysReward() {
			rewardID, err := uc.IDGen.NewID(ctx)
			if err != nil {
				return ports.Effects{}, err
			}
			reward := entities.NewRewardEntry(rewardID, election.ElectionID, voter.Principal, candidate.CandidateID, registry.RewardAmount(), now)
			effects.Rewards = append(effects.Rewards, reward)
			result.Reward = &reward
		}
		return effects, nil
	})
	if err != nil {
		logger.Warn("vote cast rejected",
			"event", "election_vote_cast_rejected",
			"module", application.ModuleName,
			"layer", "application",
			"election_id", cmd.ElectionID,
			"candidate_id", cmd.CandidateID,
			"voter", strings.TrimSpace(cmd.Voter),
			"error", err.Error(),
		)
		return CastVoteResult{}, err
	}

	logger.Info("vote cast",
		"event", "election_vote_cast",
		"module", application.ModuleName,
		"layer", "application",
		"election_id", cmd.ElectionID,
		"candidate_id", result.Candidate.CandidateID,
		"vote_count", result.Candidate.VoteCount,
		"voter", result.Voter.Principal,
		"reward_recorded", result.Reward != nil,
	)
	return result, nil
}
