package commands

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	application "electionledger/contexts/governance/election-registry/application"
	"electionledger/contexts/governance/election-registry/domain/entities"
	domainerrors "electionledger/contexts/governance/election-registry/domain/errors"
	"electionledger/contexts/governance/election-registry/ports"
)

type CreateElectionCommand struct {
	Caller          string
	Name            string
	DurationSeconds int64
	IdempotencyKey  string
}

type CreateElectionResult struct {
	Election entities.Election
	Replayed bool
}

type AddCandidateCommand struct {
	Caller         string
	ElectionID     int64
	Name           string
	IdempotencyKey string
}

type AddCandidateResult struct {
	Candidate entities.Candidate
	Replayed  bool
}

type AuthorizeVoterCommand struct {
	Caller     string
	ElectionID int64
	Voter      string
}

type AuthorizeVoterResult struct {
	Voter   entities.Voter
	Changed bool
}

type CloseElectionCommand struct {
	Caller     string
	ElectionID int64
}

// ElectionUseCase covers the official-side transitions: creating an
// election, growing its candidate list, authorizing voters and closing it.
type ElectionUseCase struct {
	Registry       ports.RegistryRepository
	Idempotency    ports.IdempotencyStore
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

// CreateElection appends a new election owned by the caller and returns it
// with its assigned id.
func (uc ElectionUseCase) CreateElection(ctx context.Context, cmd CreateElectionCommand) (CreateElectionResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("election create processing started",
		"event", "election_create_started",
		"module", application.ModuleName,
		"layer", "application",
		"caller", strings.TrimSpace(cmd.Caller),
		"duration_seconds", cmd.DurationSeconds,
	)
	now := resolveNow(uc.Clock)

	// Validate with a placeholder id so bad input never reserves an id.
	if _, err := entities.NewElection(0, cmd.Name, cmd.Caller, cmd.DurationSeconds, now); err != nil {
		logger.Warn("election create validation failed",
			"event", "election_create_validation_failed",
			"module", application.ModuleName,
			"layer", "application",
			"caller", strings.TrimSpace(cmd.Caller),
			"error", err.Error(),
		)
		return CreateElectionResult{}, err
	}
	if _, err := requireRegistry(ctx, uc.Registry); err != nil {
		return CreateElectionResult{}, err
	}

	requestHash := hashRequest("create_election", map[string]string{
		"caller":           cmd.Caller,
		"name":             cmd.Name,
		"duration_seconds": strconv.FormatInt(cmd.DurationSeconds, 10),
	})
	if result, found, err := uc.replayElection(ctx, cmd.IdempotencyKey, requestHash, now); err != nil {
		logger.Warn("election create idempotency check failed",
			"event", "election_create_idempotency_failed",
			"module", application.ModuleName,
			"layer", "application",
			"caller", strings.TrimSpace(cmd.Caller),
			"error", err.Error(),
		)
		return CreateElectionResult{}, err
	} else if found {
		return result, nil
	}

	election, err := uc.Registry.CreateElection(ctx, func(electionID int64) (entities.Election, ports.Effects, error) {
		election, err := entities.NewElection(electionID, cmd.Name, cmd.Caller, cmd.DurationSeconds, now)
		if err != nil {
			return entities.Election{}, ports.Effects{}, err
		}
		envelope, err := electionEvent(ctx, uc.IDGen, eventElectionCreated, electionID, now, map[string]any{
			"name":              election.Name,
			"election_official": election.ElectionOfficial,
			"start_time":        election.StartTime.Format(time.RFC3339),
			"end_time":          election.EndTime.Format(time.RFC3339),
			"duration_seconds":  election.DurationSeconds,
		})
		if err != nil {
			return entities.Election{}, ports.Effects{}, err
		}
		claim := newClaim(uc.Idempotency, cmd.IdempotencyKey, requestHash, strconv.FormatInt(electionID, 10), now, uc.IdempotencyTTL)
		return election, ports.Effects{Events: []ports.EventEnvelope{envelope}, Idempotency: claim}, nil
	})
	if errors.Is(err, domainerrors.ErrIdempotencyKeyClaimed) {
		// A concurrent request with the same key committed first.
		result, found, replayErr := uc.replayElection(ctx, cmd.IdempotencyKey, requestHash, now)
		if replayErr != nil {
			return CreateElectionResult{}, replayErr
		}
		if !found {
			return CreateElectionResult{}, domainerrors.ErrIdempotencyConflict
		}
		return result, nil
	}
	if err != nil {
		logger.Error("election create failed",
			"event", "election_create_failed",
			"module", application.ModuleName,
			"layer", "application",
			"caller", strings.TrimSpace(cmd.Caller),
			"error", err.Error(),
		)
		return CreateElectionResult{}, err
	}
	logger.Info("election created",
		"event", "election_created",
		"module", application.ModuleName,
		"layer", "application",
		"election_id", election.ElectionID,
		"election_official", election.ElectionOfficial,
		"end_time", election.EndTime.Format(time.RFC3339),
	)
	return CreateElectionResult{Election: election}, nil
}

// AddCandidate appends a candidate. It has no time check, so candidates may
// also be added after the voting window ends.
func (uc ElectionUseCase) AddCandidate(ctx context.Context, cmd AddCandidateCommand) (AddCandidateResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := resolveNow(uc.Clock)
	if _, err := requireRegistry(ctx, uc.Registry); err != nil {
		return AddCandidateResult{}, err
	}

	requestHash := hashRequest("add_candidate", map[string]string{
		"caller":      cmd.Caller,
		"election_id": strconv.FormatInt(cmd.ElectionID, 10),
		"name":        cmd.Name,
	})
	if result, found, err := uc.replayCandidate(ctx, cmd, requestHash, now); err != nil {
		return AddCandidateResult{}, err
	} else if found {
		return result, nil
	}

	var added entities.Candidate
	_, err := uc.Registry.UpdateElection(ctx, cmd.ElectionID, func(election *entities.Election) (ports.Effects, error) {
		candidate, err := election.AddCandidate(cmd.Caller, cmd.Name)
		if err != nil {
			return ports.Effects{}, err
		}
		added = candidate
		envelope, err := electionEvent(ctx, uc.IDGen, eventCandidateAdded, election.ElectionID, now, map[string]any{
			"candidate_id": candidate.CandidateID,
			"name":         candidate.Name,
		})
		if err != nil {
			return ports.Effects{}, err
		}
		claim := newClaim(uc.Idempotency, cmd.IdempotencyKey, requestHash, strconv.FormatInt(candidate.CandidateID, 10), now, uc.IdempotencyTTL)
		return ports.Effects{Events: []ports.EventEnvelope{envelope}, Idempotency: claim}, nil
	})
	if errors.Is(err, domainerrors.ErrIdempotencyKeyClaimed) {
		result, found, replayErr := uc.replayCandidate(ctx, cmd, requestHash, now)
		if replayErr != nil {
			return AddCandidateResult{}, replayErr
		}
		if !found {
			return AddCandidateResult{}, domainerrors.ErrIdempotencyConflict
		}
		return result, nil
	}
	if err != nil {
		logger.Warn("candidate add rejected",
			"event", "election_candidate_add_rejected",
			"module", application.ModuleName,
			"layer", "application",
			"election_id", cmd.ElectionID,
			"caller", strings.TrimSpace(cmd.Caller),
			"error", err.Error(),
		)
		return AddCandidateResult{}, err
	}
	logger.Info("candidate added",
		"event", "election_candidate_added",
		"module", application.ModuleName,
		"layer", "application",
		"election_id", cmd.ElectionID,
		"candidate_id", added.CandidateID,
	)
	return AddCandidateResult{Candidate: added}, nil
}

func (uc ElectionUseCase) replayElection(ctx context.Context, key string, requestHash string, now time.Time) (CreateElectionResult, bool, error) {
	resourceID, found, err := lookupReplay(ctx, uc.Idempotency, key, requestHash, now)
	if err != nil || !found {
		return CreateElectionResult{}, false, err
	}
	electionID, err := strconv.ParseInt(resourceID, 10, 64)
	if err != nil {
		return CreateElectionResult{}, false, domainerrors.ErrIdempotencyConflict
	}
	election, err := uc.Registry.GetElection(ctx, electionID)
	if err != nil {
		return CreateElectionResult{}, false, err
	}
	application.ResolveLogger(uc.Logger).Info("election create replayed",
		"event", "election_create_replayed",
		"module", application.ModuleName,
		"layer", "application",
		"election_id", election.ElectionID,
	)
	return CreateElectionResult{Election: election, Replayed: true}, true, nil
}

func (uc ElectionUseCase) replayCandidate(ctx context.Context, cmd AddCandidateCommand, requestHash string, now time.Time) (AddCandidateResult, bool, error) {
	resourceID, found, err := lookupReplay(ctx, uc.Idempotency, cmd.IdempotencyKey, requestHash, now)
	if err != nil || !found {
		return AddCandidateResult{}, false, err
	}
	candidateID, err := strconv.ParseInt(resourceID, 10, 64)
	if err != nil {
		return AddCandidateResult{}, false, domainerrors.ErrIdempotencyConflict
	}
	election, err := uc.Registry.GetElection(ctx, cmd.ElectionID)
	if err != nil {
		return AddCandidateResult{}, false, err
	}
	if candidateID < 0 || candidateID >= int64(len(election.Candidates)) {
		return AddCandidateResult{}, false, domainerrors.ErrIdempotencyConflict
	}
	return AddCandidateResult{Candidate: election.Candidates[candidateID], Replayed: true}, true, nil
}

// AuthorizeVoter is idempotent: re-authorizing succeeds without emitting a
// second voter.authorized event.
func (uc ElectionUseCase) AuthorizeVoter(ctx context.Context, cmd AuthorizeVoterCommand) (AuthorizeVoterResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := resolveNow(uc.Clock)
	if _, err := requireRegistry(ctx, uc.Registry); err != nil {
		return AuthorizeVoterResult{}, err
	}

	var result AuthorizeVoterResult
	_, err := uc.Registry.UpdateElection(ctx, cmd.ElectionID, func(election *entities.Election) (ports.Effects, error) {
		voter, changed, err := election.AuthorizeVoter(cmd.Caller, cmd.Voter, now)
		if err != nil {
			return ports.Effects{}, err
		}
		result = AuthorizeVoterResult{Voter: voter, Changed: changed}
		if !changed {
			return ports.Effects{}, nil
		}
		envelope, err := electionEvent(ctx, uc.IDGen, eventVoterAuthorized, election.ElectionID, now, map[string]any{
			"voter":             voter.Principal,
			"election_official": election.ElectionOfficial,
		})
		if err != nil {
			return ports.Effects{}, err
		}
		return ports.Effects{Events: []ports.EventEnvelope{envelope}}, nil
	})
	if err != nil {
		logger.Warn("voter authorization rejected",
			"event", "election_voter_authorize_rejected",
			"module", application.ModuleName,
			"layer", "application",
			"election_id", cmd.ElectionID,
			"caller", strings.TrimSpace(cmd.Caller),
			"error", err.Error(),
		)
		return AuthorizeVoterResult{}, err
	}

	logger.Info("voter authorized",
		"event", "election_voter_authorized",
		"module", application.ModuleName,
		"layer", "application",
		"election_id", cmd.ElectionID,
		"voter", result.Voter.Principal,
		"changed", result.Changed,
	)
	return result, nil
}

// CloseElection clears the active flag so no further votes are accepted even
// before EndTime.
func (uc ElectionUseCase) CloseElection(ctx context.Context, cmd CloseElectionCommand) (entities.Election, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := resolveNow(uc.Clock)
	if _, err := requireRegistry(ctx, uc.Registry); err != nil {
		return entities.Election{}, err
	}

	election, err := uc.Registry.UpdateElection(ctx, cmd.ElectionID, func(election *entities.Election) (ports.Effects, error) {
		changed, err := election.Close(cmd.Caller, now)
		if err != nil || !changed {
			return ports.Effects{}, err
		}
		envelope, err := electionEvent(ctx, uc.IDGen, eventElectionClosed, election.ElectionID, now, map[string]any{
			"election_official": election.ElectionOfficial,
			"total_votes":       election.TotalVotes(),
		})
		if err != nil {
			return ports.Effects{}, err
		}
		return ports.Effects{Events: []ports.EventEnvelope{envelope}}, nil
	})
	if err != nil {
		logger.Warn("election close rejected",
			"event", "election_close_rejected",
			"module", application.ModuleName,
			"layer", "application",
			"election_id", cmd.ElectionID,
			"caller", strings.TrimSpace(cmd.Caller),
			"error", err.Error(),
		)
		return entities.Election{}, err
	}

	logger.Info("election closed",
		"event", "election_closed",
		"module", application.ModuleName,
		"layer", "application",
		"election_id", election.ElectionID,
	)
	return election.Summary(), nil
}
