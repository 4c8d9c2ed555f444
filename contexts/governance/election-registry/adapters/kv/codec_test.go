package kv

import (
	"testing"
	"time"

	"electionledger/contexts/governance/election-registry/domain/entities"

	"github.com/stretchr/testify/require"
)

func TestElectionRecordSurvivesBorsh(t *testing.T) {
	start := time.Date(2024, 11, 5, 7, 0, 0, 0, time.UTC)
	election, err := entities.NewElection(4, "Board", "official", 120, start)
	require.NoError(t, err)
	_, err = election.AddCandidate("official", "Alice")
	require.NoError(t, err)
	_, _, err = election.AuthorizeVoter("official", "zed", start)
	require.NoError(t, err)
	_, _, err = election.AuthorizeVoter("official", "amy", start)
	require.NoError(t, err)
	_, _, err = election.CastVote("amy", 0, start.Add(time.Second))
	require.NoError(t, err)

	record := electionToRecord(election)
	require.Equal(t, "amy", record.Voters[0].Principal)
	require.Equal(t, "zed", record.Voters[1].Principal)

	payload, err := encode(record)
	require.NoError(t, err)
	var decoded electionRecord
	require.NoError(t, decode(payload, &decoded))

	restored := decoded.toEntity()
	require.Equal(t, election.Name, restored.Name)
	require.True(t, restored.EndTime.Equal(election.EndTime))
	require.Nil(t, restored.ClosedAt)
	require.Equal(t, int64(1), restored.Candidates[0].VoteCount)
	require.True(t, restored.Voters["amy"].HasVoted)
	require.False(t, restored.Voters["zed"].HasVoted)
	require.True(t, restored.Voters["zed"].VotedAt.IsZero())
}

func TestParseAmountFallsBackToZero(t *testing.T) {
	require.Equal(t, "0", parseAmount("not-a-number").String())
	require.Equal(t, "10000000000000000000", parseAmount("10000000000000000000").String())
}
