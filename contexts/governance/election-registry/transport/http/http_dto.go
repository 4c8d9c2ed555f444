package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type InitializeRegistryRequest struct {
	// TokenReward is a decimal amount in the token's smallest unit.
	TokenReward string `json:"token_reward"`
}

type RegistryResponse struct {
	PlatformOwner string    `json:"platform_owner"`
	TokenReward   string    `json:"token_reward"`
	InitializedAt time.Time `json:"initialized_at"`
}

type CreateElectionRequest struct {
	Name            string `json:"name"`
	DurationSeconds int64  `json:"duration_seconds"`
}

type ElectionResponse struct {
	ElectionID       int64      `json:"election_id"`
	Name             string     `json:"name"`
	ElectionOfficial string     `json:"election_official"`
	StartTime        time.Time  `json:"start_time"`
	EndTime          time.Time  `json:"end_time"`
	DurationSeconds  int64      `json:"duration_seconds"`
	IsActive         bool       `json:"is_active"`
	IsOpen           bool       `json:"is_open"`
	ClosedAt         *time.Time `json:"closed_at,omitempty"`
	CandidateCount   int        `json:"candidate_count"`
	TotalVotes       int64      `json:"total_votes"`
	Replayed         bool       `json:"replayed,omitempty"`
}

type ListElectionsResponse struct {
	Items []ElectionResponse `json:"items"`
}

type AddCandidateRequest struct {
	Name string `json:"name"`
}

type CandidateResponse struct {
	CandidateID int64  `json:"candidate_id"`
	Name        string `json:"name"`
	VoteCount   int64  `json:"vote_count"`
	Replayed    bool   `json:"replayed,omitempty"`
}

type ListCandidatesResponse struct {
	ElectionID int64               `json:"election_id"`
	Items      []CandidateResponse `json:"items"`
}

type AuthorizeVoterRequest struct {
	Voter string `json:"voter"`
}

type VoterResponse struct {
	ElectionID   int64  `json:"election_id"`
	Voter        string `json:"voter"`
	IsAuthorized bool   `json:"is_authorized"`
	HasVoted     bool   `json:"has_voted"`
	Changed      bool   `json:"changed,omitempty"`
}

type CastVoteRequest struct {
	CandidateID int64 `json:"candidate_id"`
}

type CastVoteResponse struct {
	ElectionID  int64           `json:"election_id"`
	CandidateID int64           `json:"candidate_id"`
	VoteCount   int64           `json:"vote_count"`
	Voter       string          `json:"voter"`
	Reward      *RewardResponse `json:"reward,omitempty"`
}

type RewardResponse struct {
	RewardID      string     `json:"reward_id"`
	ElectionID    int64      `json:"election_id"`
	Voter         string     `json:"voter"`
	CandidateID   int64      `json:"candidate_id"`
	Amount        string     `json:"amount"`
	Status        string     `json:"status"`
	Attempts      int        `json:"attempts"`
	LastError     string     `json:"last_error,omitempty"`
	SettlementRef string     `json:"settlement_ref,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	SettledAt     *time.Time `json:"settled_at,omitempty"`
}

type ListRewardsResponse struct {
	ElectionID int64            `json:"election_id"`
	Items      []RewardResponse `json:"items"`
}

type StandingResponse struct {
	Rank        int    `json:"rank"`
	CandidateID int64  `json:"candidate_id"`
	Name        string `json:"name"`
	VoteCount   int64  `json:"vote_count"`
}

type ResultsResponse struct {
	ElectionID int64              `json:"election_id"`
	IsOpen     bool               `json:"is_open"`
	TotalVotes int64              `json:"total_votes"`
	Items      []StandingResponse `json:"items"`
}
