package httpadapter

import (
	"context"
	"log/slog"
	"strings"

	application "electionledger/contexts/governance/election-registry/application"
	"electionledger/contexts/governance/election-registry/application/commands"
	"electionledger/contexts/governance/election-registry/application/queries"
	"electionledger/contexts/governance/election-registry/domain/entities"
	domainerrors "electionledger/contexts/governance/election-registry/domain/errors"
	httptransport "electionledger/contexts/governance/election-registry/transport/http"
)

// Handler maps transport DTOs onto the registry use cases. Callers are
// already authenticated; caller strings are the principals.
type Handler struct {
	Registry  commands.RegistryUseCase
	Elections commands.ElectionUseCase
	Votes     commands.VoteUseCase
	Queries   queries.ElectionQueryUseCase
	Logger    *slog.Logger
}

func (h Handler) InitializeRegistryHandler(
	ctx context.Context,
	caller string,
	req httptransport.InitializeRegistryRequest,
) (httptransport.RegistryResponse, error) {
	amount, err := entities.ParseTokenAmount(req.TokenReward)
	if err != nil {
		return httptransport.RegistryResponse{}, err
	}
	registry, err := h.Registry.Initialize(ctx, commands.InitializeRegistryCommand{
		Caller:       caller,
		RewardAmount: amount,
	})
	if err != nil {
		return httptransport.RegistryResponse{}, err
	}
	return mapRegistry(registry), nil
}

func (h Handler) GetRegistryHandler(ctx context.Context) (httptransport.RegistryResponse, error) {
	registry, err := h.Queries.GetRegistry(ctx)
	if err != nil {
		return httptransport.RegistryResponse{}, err
	}
	return mapRegistry(registry), nil
}

func (h Handler) CreateElectionHandler(
	ctx context.Context,
	caller string,
	idempotencyKey string,
	req httptransport.CreateElectionRequest,
) (httptransport.ElectionResponse, error) {
	result, err := h.Elections.CreateElection(ctx, commands.CreateElectionCommand{
		Caller:          caller,
		Name:            req.Name,
		DurationSeconds: req.DurationSeconds,
		IdempotencyKey:  idempotencyKey,
	})
	if err != nil {
		return httptransport.ElectionResponse{}, err
	}
	details, err := h.Queries.GetElectionDetails(ctx, result.Election.ElectionID)
	if err != nil {
		return httptransport.ElectionResponse{}, err
	}
	response := mapElection(details)
	response.Replayed = result.Replayed
	return response, nil
}

func (h Handler) ListElectionsHandler(ctx context.Context) (httptransport.ListElectionsResponse, error) {
	items, err := h.Queries.ListElections(ctx)
	if err != nil {
		return httptransport.ListElectionsResponse{}, err
	}
	response := httptransport.ListElectionsResponse{Items: make([]httptransport.ElectionResponse, 0, len(items))}
	for _, item := range items {
		response.Items = append(response.Items, mapElection(item))
	}
	return response, nil
}

func (h Handler) GetElectionHandler(ctx context.Context, electionID int64) (httptransport.ElectionResponse, error) {
	details, err := h.Queries.GetElectionDetails(ctx, electionID)
	if err != nil {
		return httptransport.ElectionResponse{}, err
	}
	return mapElection(details), nil
}

func (h Handler) CloseElectionHandler(ctx context.Context, caller string, electionID int64) (httptransport.ElectionResponse, error) {
	if _, err := h.Elections.CloseElection(ctx, commands.CloseElectionCommand{
		Caller:     caller,
		ElectionID: electionID,
	}); err != nil {
		return httptransport.ElectionResponse{}, err
	}
	return h.GetElectionHandler(ctx, electionID)
}

func (h Handler) AddCandidateHandler(
	ctx context.Context,
	caller string,
	idempotencyKey string,
	electionID int64,
	req httptransport.AddCandidateRequest,
) (httptransport.CandidateResponse, error) {
	result, err := h.Elections.AddCandidate(ctx, commands.AddCandidateCommand{
		Caller:         caller,
		ElectionID:     electionID,
		Name:           req.Name,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return httptransport.CandidateResponse{}, err
	}
	response := mapCandidate(result.Candidate)
	response.Replayed = result.Replayed
	return response, nil
}

func (h Handler) ListCandidatesHandler(ctx context.Context, electionID int64) (httptransport.ListCandidatesResponse, error) {
	candidates, err := h.Queries.GetCandidates(ctx, electionID)
	if err != nil {
		return httptransport.ListCandidatesResponse{}, err
	}
	response := httptransport.ListCandidatesResponse{
		ElectionID: electionID,
		Items:      make([]httptransport.CandidateResponse, 0, len(candidates)),
	}
	for _, candidate := range candidates {
		response.Items = append(response.Items, mapCandidate(candidate))
	}
	return response, nil
}

func (h Handler) AuthorizeVoterHandler(
	ctx context.Context,
	caller string,
	electionID int64,
	req httptransport.AuthorizeVoterRequest,
) (httptransport.VoterResponse, error) {
	result, err := h.Elections.AuthorizeVoter(ctx, commands.AuthorizeVoterCommand{
		Caller:     caller,
		ElectionID: electionID,
		Voter:      req.Voter,
	})
	if err != nil {
		return httptransport.VoterResponse{}, err
	}
	response := mapVoter(electionID, result.Voter)
	response.Changed = result.Changed
	return response, nil
}

func (h Handler) GetVoterHandler(ctx context.Context, electionID int64, principal string) (httptransport.VoterResponse, error) {
	if strings.TrimSpace(principal) == "" {
		return httptransport.VoterResponse{}, domainerrors.ErrInvalidPrincipal
	}
	voter, err := h.Queries.GetVoterDetails(ctx, electionID, principal)
	if err != nil {
		return httptransport.VoterResponse{}, err
	}
	return mapVoter(electionID, voter), nil
}

func (h Handler) CastVoteHandler(
	ctx context.Context,
	caller string,
	electionID int64,
	req httptransport.CastVoteRequest,
) (httptransport.CastVoteResponse, error) {
	result, err := h.Votes.CastVote(ctx, commands.CastVoteCommand{
		Voter:       caller,
		ElectionID:  electionID,
		CandidateID: req.CandidateID,
	})
	if err != nil {
		return httptransport.CastVoteResponse{}, err
	}
	response := httptransport.CastVoteResponse{
		ElectionID:  electionID,
		CandidateID: result.Candidate.CandidateID,
		VoteCount:   result.Candidate.VoteCount,
		Voter:       result.Voter.Principal,
	}
	if result.Reward != nil {
		reward := mapReward(*result.Reward)
		response.Reward = &reward
	}
	application.ResolveLogger(h.Logger).Debug("vote accepted over http",
		"event", "election_registry_http_vote_accepted",
		"module", application.ModuleName,
		"layer", "transport",
		"election_id", electionID,
		"candidate_id", result.Candidate.CandidateID,
	)
	return response, nil
}

func (h Handler) ResultsHandler(ctx context.Context, electionID int64) (httptransport.ResultsResponse, error) {
	results, err := h.Queries.Results(ctx, electionID)
	if err != nil {
		return httptransport.ResultsResponse{}, err
	}
	response := httptransport.ResultsResponse{
		ElectionID: results.ElectionID,
		IsOpen:     results.IsOpen,
		TotalVotes: results.TotalVotes,
		Items:      make([]httptransport.StandingResponse, 0, len(results.Standings)),
	}
	for _, standing := range results.Standings {
		response.Items = append(response.Items, httptransport.StandingResponse{
			Rank:        standing.Rank,
			CandidateID: standing.Candidate.CandidateID,
			Name:        standing.Candidate.Name,
			VoteCount:   standing.Candidate.VoteCount,
		})
	}
	return response, nil
}

func (h Handler) ListRewardsHandler(ctx context.Context, electionID int64) (httptransport.ListRewardsResponse, error) {
	entries, err := h.Queries.ListRewards(ctx, electionID)
	if err != nil {
		return httptransport.ListRewardsResponse{}, err
	}
	response := httptransport.ListRewardsResponse{
		ElectionID: electionID,
		Items:      make([]httptransport.RewardResponse, 0, len(entries)),
	}
	for _, entry := range entries {
		response.Items = append(response.Items, mapReward(entry))
	}
	return response, nil
}

func mapRegistry(registry entities.Registry) httptransport.RegistryResponse {
	return httptransport.RegistryResponse{
		PlatformOwner: registry.PlatformOwner,
		TokenReward:   registry.RewardAmount().String(),
		InitializedAt: registry.InitializedAt,
	}
}

func mapElection(details queries.ElectionDetails) httptransport.ElectionResponse {
	return httptransport.ElectionResponse{
		ElectionID:       details.ElectionID,
		Name:             details.Name,
		ElectionOfficial: details.ElectionOfficial,
		StartTime:        details.StartTime,
		EndTime:          details.EndTime,
		DurationSeconds:  details.DurationSeconds,
		IsActive:         details.IsActive,
		IsOpen:           details.IsOpen,
		ClosedAt:         details.ClosedAt,
		CandidateCount:   details.CandidateCount,
		TotalVotes:       details.TotalVotes,
	}
}

func mapCandidate(candidate entities.Candidate) httptransport.CandidateResponse {
	return httptransport.CandidateResponse{
		CandidateID: candidate.CandidateID,
		Name:        candidate.Name,
		VoteCount:   candidate.VoteCount,
	}
}

func mapVoter(electionID int64, voter entities.Voter) httptransport.VoterResponse {
	return httptransport.VoterResponse{
		ElectionID:   electionID,
		Voter:        voter.Principal,
		IsAuthorized: voter.IsAuthorized,
		HasVoted:     voter.HasVoted,
	}
}

func mapReward(entry entities.RewardEntry) httptransport.RewardResponse {
	amount := "0"
	if entry.Amount != nil {
		amount = entry.Amount.String()
	}
	return httptransport.RewardResponse{
		RewardID:      entry.RewardID,
		ElectionID:    entry.ElectionID,
		Voter:         entry.Voter,
		CandidateID:   entry.CandidateID,
		Amount:        amount,
		Status:        string(entry.Status),
		Attempts:      entry.Attempts,
		LastError:     entry.LastError,
		SettlementRef: entry.SettlementRef,
		CreatedAt:     entry.CreatedAt,
		SettledAt:     entry.SettledAt,
	}
}
