package queries

import (
	"context"
	"sort"
	"strings"
	"time"

	"electionledger/contexts/governance/election-registry/domain/entities"
	"electionledger/contexts/governance/election-registry/ports"
)

type ElectionDetails struct {
	ElectionID       int64
	Name             string
	ElectionOfficial string
	StartTime        time.Time
	EndTime          time.Time
	DurationSeconds  int64
	IsActive         bool
	IsOpen           bool
	ClosedAt         *time.Time
	CandidateCount   int
	TotalVotes       int64
}

type CandidateStanding struct {
	Rank      int
	Candidate entities.Candidate
}

type ElectionResults struct {
	ElectionID int64
	IsOpen     bool
	TotalVotes int64
	Standings  []CandidateStanding
}

type ElectionQueryUseCase struct {
	Registry ports.RegistryRepository
	Rewards  ports.RewardLedger
	Clock    ports.Clock
}

func (uc ElectionQueryUseCase) GetRegistry(ctx context.Context) (entities.Registry, error) {
	return uc.Registry.GetRegistry(ctx)
}

func (uc ElectionQueryUseCase) GetElectionDetails(ctx context.Context, electionID int64) (ElectionDetails, error) {
	election, err := uc.Registry.GetElection(ctx, electionID)
	if err != nil {
		return ElectionDetails{}, err
	}
	return detailsFromElection(election, uc.now()), nil
}

func (uc ElectionQueryUseCase) ListElections(ctx context.Context) ([]ElectionDetails, error) {
	elections, err := uc.Registry.ListElections(ctx)
	if err != nil {
		return nil, err
	}
	now := uc.now()
	items := make([]ElectionDetails, 0, len(elections))
	for _, election := range elections {
		items = append(items, detailsFromElection(election, now))
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].ElectionID < items[j].ElectionID
	})
	return items, nil
}

// GetCandidates returns candidates in insertion order, which is the
// candidateId contract used by castVote.
func (uc ElectionQueryUseCase) GetCandidates(ctx context.Context, electionID int64) ([]entities.Candidate, error) {
	election, err := uc.Registry.GetElection(ctx, electionID)
	if err != nil {
		return nil, err
	}
	return append([]entities.Candidate{}, election.Candidates...), nil
}

// GetVoterDetails never fails for unknown principals; they read as
// {isAuthorized: false, hasVoted: false}.
func (uc ElectionQueryUseCase) GetVoterDetails(ctx context.Context, electionID int64, principal string) (entities.Voter, error) {
	principal = strings.TrimSpace(principal)
	voter, found, err := uc.Registry.GetVoter(ctx, electionID, principal)
	if err != nil {
		return entities.Voter{}, err
	}
	if !found {
		return entities.Voter{Principal: principal}, nil
	}
	return voter, nil
}

// Results ranks candidates by vote count. Ties share a rank and keep
// candidate order.
func (uc ElectionQueryUseCase) Results(ctx context.Context, electionID int64) (ElectionResults, error) {
	election, err := uc.Registry.GetElection(ctx, electionID)
	if err != nil {
		return ElectionResults{}, err
	}
	candidates := append([]entities.Candidate{}, election.Candidates...)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].VoteCount > candidates[j].VoteCount
	})
	standings := make([]CandidateStanding, 0, len(candidates))
	for i, candidate := range candidates {
		rank := i + 1
		if i > 0 && candidate.VoteCount == candidates[i-1].VoteCount {
			rank = standings[i-1].Rank
		}
		standings = append(standings, CandidateStanding{Rank: rank, Candidate: candidate})
	}
	return ElectionResults{
		ElectionID: election.ElectionID,
		IsOpen:     election.IsOpen(uc.now()),
		TotalVotes: election.TotalVotes(),
		Standings:  standings,
	}, nil
}

func (uc ElectionQueryUseCase) ListRewards(ctx context.Context, electionID int64) ([]entities.RewardEntry, error) {
	if _, err := uc.Registry.GetElection(ctx, electionID); err != nil {
		return nil, err
	}
	if uc.Rewards == nil {
		return []entities.RewardEntry{}, nil
	}
	return uc.Rewards.ListRewardsByElection(ctx, electionID)
}

func (uc ElectionQueryUseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}

func detailsFromElection(election entities.Election, now time.Time) ElectionDetails {
	return ElectionDetails{
		ElectionID:       election.ElectionID,
		Name:             election.Name,
		ElectionOfficial: election.ElectionOfficial,
		StartTime:        election.StartTime,
		EndTime:          election.EndTime,
		DurationSeconds:  election.DurationSeconds,
		IsActive:         election.IsActive,
		IsOpen:           election.IsOpen(now),
		ClosedAt:         election.ClosedAt,
		CandidateCount:   len(election.Candidates),
		TotalVotes:       election.TotalVotes(),
	}
}
