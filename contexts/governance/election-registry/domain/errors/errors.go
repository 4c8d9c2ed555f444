package errors

import "errors"

var (
	ErrAlreadyInitialized     = errors.New("registry is already initialized")
	ErrRegistryNotInitialized = errors.New("registry is not initialized")
	ErrInvalidRewardAmount    = errors.New("reward amount must be a non-negative integer")
	ErrInvalidPrincipal       = errors.New("principal is required")
	ErrInvalidElectionName    = errors.New("election name is required")
	ErrInvalidDuration        = errors.New("election duration must be positive")
	ErrElectionNotFound       = errors.New("election not found")
	ErrNotElectionOfficial    = errors.New("only the election official can perform this action")
	ErrInvalidCandidateName   = errors.New("candidate name is required")
	ErrCandidateNotFound      = errors.New("candidate not found")
	ErrElectionNotActive      = errors.New("Election is not active")
	ErrVoterNotAuthorized     = errors.New("You are not authorized to vote")
	ErrAlreadyVoted           = errors.New("You have already voted")
	ErrRewardNotFound         = errors.New("reward entry not found")
	ErrPayerUnavailable       = errors.New("reward payer unavailable")
	ErrIdempotencyConflict    = errors.New("idempotency key conflict")
	ErrIdempotencyKeyClaimed  = errors.New("idempotency key already claimed")
	ErrConflict               = errors.New("election registry conflict")
)
