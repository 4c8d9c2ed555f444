package entities

import (
	"errors"
	"math/big"
	"testing"
	"time"

	domainerrors "electionledger/contexts/governance/election-registry/domain/errors"
)

var base = time.Date(2024, 1, 10, 9, 30, 15, 500, time.UTC)

func mustElection(t *testing.T, duration int64) Election {
	t.Helper()
	election, err := NewElection(3, "  City Council ", "official", duration, base)
	if err != nil {
		t.Fatalf("new election failed: %v", err)
	}
	return election
}

func TestNewElectionNormalizesInput(t *testing.T) {
	election := mustElection(t, 90)
	if election.Name != "City Council" {
		t.Fatalf("expected trimmed name, got %q", election.Name)
	}
	if !election.StartTime.Equal(base.Truncate(time.Microsecond)) {
		t.Fatalf("expected start at microsecond precision, got %s", election.StartTime)
	}
	if got := election.EndTime.Sub(election.StartTime); got != 90*time.Second {
		t.Fatalf("expected 90s window, got %s", got)
	}
	if !election.IsActive || len(election.Candidates) != 0 || election.Voters == nil {
		t.Fatalf("unexpected initial state: %+v", election)
	}
}

func TestShortWindowKeepsFullDuration(t *testing.T) {
	createdAt := time.Date(2024, 1, 10, 9, 30, 0, 900_000_000, time.UTC)
	election, err := NewElection(0, "Flash", "official", 1, createdAt)
	if err != nil {
		t.Fatalf("new election failed: %v", err)
	}
	if !election.EndTime.Equal(createdAt.Add(time.Second)) {
		t.Fatalf("expected end one second after creation, got %s", election.EndTime)
	}
	if !election.IsOpen(createdAt.Add(950 * time.Millisecond)) {
		t.Fatalf("expected election open 950ms after creation")
	}
	if election.IsOpen(createdAt.Add(time.Second + time.Microsecond)) {
		t.Fatalf("expected election closed after its window")
	}
}

func TestNewElectionRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name     string
		title    string
		official string
		duration int64
		want     error
	}{
		{name: "blank name", title: " ", official: "o", duration: 10, want: domainerrors.ErrInvalidElectionName},
		{name: "zero duration", title: "x", official: "o", duration: 0, want: domainerrors.ErrInvalidDuration},
		{name: "negative duration", title: "x", official: "o", duration: -5, want: domainerrors.ErrInvalidDuration},
		{name: "missing official", title: "x", official: "", duration: 10, want: domainerrors.ErrInvalidPrincipal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewElection(0, tc.title, tc.official, tc.duration, base)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestIsOpenIncludesEndTime(t *testing.T) {
	election := mustElection(t, 10)
	if !election.IsOpen(election.EndTime) {
		t.Fatalf("expected election open at end time")
	}
	if election.IsOpen(election.EndTime.Add(time.Nanosecond)) {
		t.Fatalf("expected election closed after end time")
	}
	election.IsActive = false
	if election.IsOpen(election.StartTime) {
		t.Fatalf("expected inactive election to be closed")
	}
}

func TestCastVoteUpdatesTallyAndVoter(t *testing.T) {
	election := mustElection(t, 60)
	if _, err := election.AddCandidate("official", "Alice"); err != nil {
		t.Fatalf("add candidate failed: %v", err)
	}
	if _, _, err := election.AuthorizeVoter("official", "v1", base); err != nil {
		t.Fatalf("authorize failed: %v", err)
	}

	candidate, voter, err := election.CastVote(" v1 ", 0, base)
	if err != nil {
		t.Fatalf("cast vote failed: %v", err)
	}
	if candidate.VoteCount != 1 || election.Candidates[0].VoteCount != 1 {
		t.Fatalf("expected tally 1, got %d", candidate.VoteCount)
	}
	if !voter.HasVoted || !election.Voters["v1"].HasVoted {
		t.Fatalf("expected voter flagged as voted")
	}
	if election.TotalVotes() != 1 {
		t.Fatalf("expected total votes 1, got %d", election.TotalVotes())
	}
}

func TestCastVoteFailureLeavesStateUntouched(t *testing.T) {
	election := mustElection(t, 60)
	_, _ = election.AddCandidate("official", "Alice")
	_, _, _ = election.AuthorizeVoter("official", "v1", base)

	if _, _, err := election.CastVote("v1", 1, base); !errors.Is(err, domainerrors.ErrCandidateNotFound) {
		t.Fatalf("expected ErrCandidateNotFound, got %v", err)
	}
	if election.Voters["v1"].HasVoted || election.TotalVotes() != 0 {
		t.Fatalf("failed vote mutated state: %+v", election)
	}
}

func TestAuthorizeVoterRules(t *testing.T) {
	election := mustElection(t, 60)
	if _, _, err := election.AuthorizeVoter("someone", "v1", base); !errors.Is(err, domainerrors.ErrNotElectionOfficial) {
		t.Fatalf("expected ErrNotElectionOfficial, got %v", err)
	}
	if _, _, err := election.AuthorizeVoter("official", "  ", base); !errors.Is(err, domainerrors.ErrInvalidPrincipal) {
		t.Fatalf("expected ErrInvalidPrincipal, got %v", err)
	}
	// The official may authorize themselves.
	if _, changed, err := election.AuthorizeVoter("official", "official", base); err != nil || !changed {
		t.Fatalf("expected self-authorization to succeed, changed=%v err=%v", changed, err)
	}
}

func TestCloseRequiresOfficial(t *testing.T) {
	election := mustElection(t, 60)
	if _, err := election.Close("someone", base); !errors.Is(err, domainerrors.ErrNotElectionOfficial) {
		t.Fatalf("expected ErrNotElectionOfficial, got %v", err)
	}
	changed, err := election.Close("official", base)
	if err != nil || !changed {
		t.Fatalf("expected close to change state, changed=%v err=%v", changed, err)
	}
	if election.ClosedAt == nil || election.IsActive {
		t.Fatalf("expected closed election")
	}
	changed, err = election.Close("official", base.Add(time.Minute))
	if err != nil || changed {
		t.Fatalf("expected second close to be a no-op, changed=%v err=%v", changed, err)
	}
}

func TestCloneDoesNotShareState(t *testing.T) {
	election := mustElection(t, 60)
	_, _ = election.AddCandidate("official", "Alice")
	_, _, _ = election.AuthorizeVoter("official", "v1", base)

	clone := election.Clone()
	clone.Candidates[0].VoteCount = 99
	clone.Voters["v2"] = Voter{Principal: "v2"}

	if election.Candidates[0].VoteCount != 0 {
		t.Fatalf("clone shared candidate slice")
	}
	if _, ok := election.Voters["v2"]; ok {
		t.Fatalf("clone shared voter map")
	}
	if election.Summary().Voters != nil {
		t.Fatalf("expected summary to drop voters")
	}
}

func TestRegistryRewardParsing(t *testing.T) {
	amount, err := ParseTokenAmount("10000000000000000000")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if amount.Cmp(WholeTokens(10)) != 0 {
		t.Fatalf("expected 10 whole tokens, got %s", amount)
	}
	if _, err := ParseTokenAmount("-1"); !errors.Is(err, domainerrors.ErrInvalidRewardAmount) {
		t.Fatalf("expected ErrInvalidRewardAmount for negative, got %v", err)
	}
	if _, err := ParseTokenAmount("1.5"); !errors.Is(err, domainerrors.ErrInvalidRewardAmount) {
		t.Fatalf("expected ErrInvalidRewardAmount for fraction, got %v", err)
	}
	if zero, err := ParseTokenAmount(""); err != nil || zero.Sign() != 0 {
		t.Fatalf("expected empty amount to parse as zero, got %v %v", zero, err)
	}

	registry, err := NewRegistry("owner", amount, base)
	if err != nil {
		t.Fatalf("new registry failed: %v", err)
	}
	copied := registry.RewardAmount()
	copied.Add(copied, big.NewInt(1))
	if registry.TokenReward.Cmp(amount) != 0 {
		t.Fatalf("reward amount copy leaked into registry")
	}
	if !registry.PaysReward() {
		t.Fatalf("expected positive reward to pay")
	}
	if _, err := NewRegistry("", amount, base); !errors.Is(err, domainerrors.ErrInvalidPrincipal) {
		t.Fatalf("expected ErrInvalidPrincipal, got %v", err)
	}
}
