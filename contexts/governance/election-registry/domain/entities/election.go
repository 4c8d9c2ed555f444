package entities

import (
	"strings"
	"time"

	domainerrors "electionledger/contexts/governance/election-registry/domain/errors"
)

type Election struct {
	ElectionID       int64
	Name             string
	ElectionOfficial string
	StartTime        time.Time
	EndTime          time.Time
	DurationSeconds  int64
	IsActive         bool
	ClosedAt         *time.Time
	Candidates       []Candidate
	// Voters is keyed by principal. Summary reads may leave it nil; only the
	// transition path is guaranteed to see the full map.
	Voters map[string]Voter
}

type Candidate struct {
	CandidateID int64
	Name        string
	VoteCount   int64
}

type Voter struct {
	Principal    string
	IsAuthorized bool
	HasVoted     bool
	AuthorizedAt time.Time
	VotedAt      time.Time
}

func NewElection(electionID int64, name string, official string, durationSeconds int64, now time.Time) (Election, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Election{}, domainerrors.ErrInvalidElectionName
	}
	if durationSeconds <= 0 {
		return Election{}, domainerrors.ErrInvalidDuration
	}
	official = strings.TrimSpace(official)
	if official == "" {
		return Election{}, domainerrors.ErrInvalidPrincipal
	}
	// Microseconds are the finest precision every store persists.
	start := now.UTC().Truncate(time.Microsecond)
	return Election{
		ElectionID:       electionID,
		Name:             name,
		ElectionOfficial: official,
		StartTime:        start,
		EndTime:          start.Add(time.Duration(durationSeconds) * time.Second),
		DurationSeconds:  durationSeconds,
		IsActive:         true,
		Candidates:       []Candidate{},
		Voters:           map[string]Voter{},
	}, nil
}

// IsOpen is the effective voting predicate: the flag must be set and now
// must not be past EndTime.
func (e Election) IsOpen(now time.Time) bool {
	return e.IsActive && !now.UTC().After(e.EndTime)
}

func (e Election) IsOfficial(principal string) bool {
	return strings.TrimSpace(principal) != "" && e.ElectionOfficial == strings.TrimSpace(principal)
}

func (e Election) TotalVotes() int64 {
	var total int64
	for _, candidate := range e.Candidates {
		total += candidate.VoteCount
	}
	return total
}

// VoterDetails returns the stored record or the {false,false} default.
func (e Election) VoterDetails(principal string) Voter {
	principal = strings.TrimSpace(principal)
	if voter, ok := e.Voters[principal]; ok {
		return voter
	}
	return Voter{Principal: principal}
}

func (e *Election) AddCandidate(caller string, name string) (Candidate, error) {
	if !e.IsOfficial(caller) {
		return Candidate{}, domainerrors.ErrNotElectionOfficial
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Candidate{}, domainerrors.ErrInvalidCandidateName
	}
	candidate := Candidate{
		CandidateID: int64(len(e.Candidates)),
		Name:        name,
	}
	e.Candidates = append(e.Candidates, candidate)
	return candidate, nil
}

// AuthorizeVoter grants voting rights. The returned flag is false when the
// voter was already authorized and nothing changed.
func (e *Election) AuthorizeVoter(caller string, principal string, now time.Time) (Voter, bool, error) {
	if !e.IsOfficial(caller) {
		return Voter{}, false, domainerrors.ErrNotElectionOfficial
	}
	principal = strings.TrimSpace(principal)
	if principal == "" {
		return Voter{}, false, domainerrors.ErrInvalidPrincipal
	}
	if e.Voters == nil {
		e.Voters = map[string]Voter{}
	}
	voter := e.VoterDetails(principal)
	if voter.IsAuthorized {
		return voter, false, nil
	}
	voter.IsAuthorized = true
	voter.AuthorizedAt = now.UTC()
	e.Voters[principal] = voter
	return voter, true, nil
}

// CastVote applies the vote transition. Preconditions are checked in a fixed
// order and the first failure wins; nothing is mutated on failure.
func (e *Election) CastVote(caller string, candidateID int64, now time.Time) (Candidate, Voter, error) {
	if !e.IsOpen(now) {
		return Candidate{}, Voter{}, domainerrors.ErrElectionNotActive
	}
	voter := e.VoterDetails(caller)
	if !voter.IsAuthorized {
		return Candidate{}, Voter{}, domainerrors.ErrVoterNotAuthorized
	}
	if voter.HasVoted {
		return Candidate{}, Voter{}, domainerrors.ErrAlreadyVoted
	}
	if candidateID < 0 || candidateID >= int64(len(e.Candidates)) {
		return Candidate{}, Voter{}, domainerrors.ErrCandidateNotFound
	}

	e.Candidates[candidateID].VoteCount++
	voter.HasVoted = true
	voter.VotedAt = now.UTC()
	e.Voters[voter.Principal] = voter
	return e.Candidates[candidateID], voter, nil
}

// Close clears IsActive. Closing twice is a no-op reported through the
// returned flag.
func (e *Election) Close(caller string, now time.Time) (bool, error) {
	if !e.IsOfficial(caller) {
		return false, domainerrors.ErrNotElectionOfficial
	}
	if !e.IsActive {
		return false, nil
	}
	closedAt := now.UTC()
	e.IsActive = false
	e.ClosedAt = &closedAt
	return true, nil
}

// Clone deep-copies candidates and voters so stores never share slices or
// maps with callers.
func (e Election) Clone() Election {
	out := e
	out.Candidates = append([]Candidate{}, e.Candidates...)
	if e.Voters != nil {
		out.Voters = make(map[string]Voter, len(e.Voters))
		for principal, voter := range e.Voters {
			out.Voters[principal] = voter
		}
	}
	if e.ClosedAt != nil {
		closedAt := *e.ClosedAt
		out.ClosedAt = &closedAt
	}
	return out
}

// Summary drops the voter map for read paths that only need election
// metadata and candidates.
func (e Election) Summary() Election {
	out := e.Clone()
	out.Voters = nil
	return out
}
