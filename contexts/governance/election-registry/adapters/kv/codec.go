package kv

import (
	"fmt"
	"math/big"
	"sort"
	"time"

	"electionledger/contexts/governance/election-registry/domain/entities"
	"electionledger/contexts/governance/election-registry/ports"

	"github.com/near/borsh-go"
)

// Records are borsh-encoded. Timestamps are unix nanoseconds with 0 meaning
// unset; big amounts travel as decimal strings.

type registryRecord struct {
	PlatformOwner string
	TokenReward   string
	ElectionCount int64
	InitializedAt int64
}

type candidateRecord struct {
	CandidateID int64
	Name        string
	VoteCount   int64
}

type voterRecord struct {
	Principal    string
	IsAuthorized bool
	HasVoted     bool
	AuthorizedAt int64
	VotedAt      int64
}

type electionRecord struct {
	ElectionID       int64
	Name             string
	ElectionOfficial string
	StartTime        int64
	EndTime          int64
	DurationSeconds  int64
	IsActive         bool
	ClosedAt         int64
	Candidates       []candidateRecord
	Voters           []voterRecord
}

type rewardRecord struct {
	RewardID      string
	ElectionID    int64
	Voter         string
	CandidateID   int64
	Amount        string
	Status        string
	Attempts      int64
	LastError     string
	SettlementRef string
	CreatedAt     int64
	UpdatedAt     int64
	SettledAt     int64
}

type outboxRecord struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	Published    bool
	CreatedAt    int64
	PublishedAt  int64
}

type idempotencyRecord struct {
	Key         string
	RequestHash string
	ResourceID  string
	ExpiresAt   int64
}

func encode(value any) ([]byte, error) {
	data, err := borsh.Serialize(value)
	if err != nil {
		return nil, fmt.Errorf("borsh encode %T: %w", value, err)
	}
	return data, nil
}

func decode(data []byte, target any) error {
	if err := borsh.Deserialize(target, data); err != nil {
		return fmt.Errorf("borsh decode %T: %w", target, err)
	}
	return nil
}

func toNanos(value time.Time) int64 {
	if value.IsZero() {
		return 0
	}
	return value.UTC().UnixNano()
}

func fromNanos(value int64) time.Time {
	if value == 0 {
		return time.Time{}
	}
	return time.Unix(0, value).UTC()
}

func optionalNanos(value *time.Time) int64 {
	if value == nil {
		return 0
	}
	return toNanos(*value)
}

func optionalFromNanos(value int64) *time.Time {
	if value == 0 {
		return nil
	}
	timestamp := fromNanos(value)
	return &timestamp
}

func parseAmount(raw string) *big.Int {
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return new(big.Int)
	}
	return amount
}

func electionToRecord(election entities.Election) electionRecord {
	record := electionRecord{
		ElectionID:       election.ElectionID,
		Name:             election.Name,
		ElectionOfficial: election.ElectionOfficial,
		StartTime:        toNanos(election.StartTime),
		EndTime:          toNanos(election.EndTime),
		DurationSeconds:  election.DurationSeconds,
		IsActive:         election.IsActive,
		ClosedAt:         optionalNanos(election.ClosedAt),
		Candidates:       make([]candidateRecord, 0, len(election.Candidates)),
		Voters:           make([]voterRecord, 0, len(election.Voters)),
	}
	for _, candidate := range election.Candidates {
		record.Candidates = append(record.Candidates, candidateRecord{
			CandidateID: candidate.CandidateID,
			Name:        candidate.Name,
			VoteCount:   candidate.VoteCount,
		})
	}
	for _, voter := range election.Voters {
		record.Voters = append(record.Voters, voterRecord{
			Principal:    voter.Principal,
			IsAuthorized: voter.IsAuthorized,
			HasVoted:     voter.HasVoted,
			AuthorizedAt: toNanos(voter.AuthorizedAt),
			VotedAt:      toNanos(voter.VotedAt),
		})
	}
	sort.Slice(record.Voters, func(i, j int) bool {
		return record.Voters[i].Principal < record.Voters[j].Principal
	})
	return record
}

func (r electionRecord) toEntity() entities.Election {
	election := entities.Election{
		ElectionID:       r.ElectionID,
		Name:             r.Name,
		ElectionOfficial: r.ElectionOfficial,
		StartTime:        fromNanos(r.StartTime),
		EndTime:          fromNanos(r.EndTime),
		DurationSeconds:  r.DurationSeconds,
		IsActive:         r.IsActive,
		ClosedAt:         optionalFromNanos(r.ClosedAt),
		Candidates:       make([]entities.Candidate, 0, len(r.Candidates)),
		Voters:           make(map[string]entities.Voter, len(r.Voters)),
	}
	for _, candidate := range r.Candidates {
		election.Candidates = append(election.Candidates, entities.Candidate{
			CandidateID: candidate.CandidateID,
			Name:        candidate.Name,
			VoteCount:   candidate.VoteCount,
		})
	}
	for _, voter := range r.Voters {
		election.Voters[voter.Principal] = entities.Voter{
			Principal:    voter.Principal,
			IsAuthorized: voter.IsAuthorized,
			HasVoted:     voter.HasVoted,
			AuthorizedAt: fromNanos(voter.AuthorizedAt),
			VotedAt:      fromNanos(voter.VotedAt),
		}
	}
	return election
}

func rewardToRecord(entry entities.RewardEntry) rewardRecord {
	amount := "0"
	if entry.Amount != nil {
		amount = entry.Amount.String()
	}
	return rewardRecord{
		RewardID:      entry.RewardID,
		ElectionID:    entry.ElectionID,
		Voter:         entry.Voter,
		CandidateID:   entry.CandidateID,
		Amount:        amount,
		Status:        string(entry.Status),
		Attempts:      int64(entry.Attempts),
		LastError:     entry.LastError,
		SettlementRef: entry.SettlementRef,
		CreatedAt:     toNanos(entry.CreatedAt),
		UpdatedAt:     toNanos(entry.UpdatedAt),
		SettledAt:     optionalNanos(entry.SettledAt),
	}
}

func (r rewardRecord) toEntity() entities.RewardEntry {
	return entities.RewardEntry{
		RewardID:      r.RewardID,
		ElectionID:    r.ElectionID,
		Voter:         r.Voter,
		CandidateID:   r.CandidateID,
		Amount:        parseAmount(r.Amount),
		Status:        entities.RewardStatus(r.Status),
		Attempts:      int(r.Attempts),
		LastError:     r.LastError,
		SettlementRef: r.SettlementRef,
		CreatedAt:     fromNanos(r.CreatedAt),
		UpdatedAt:     fromNanos(r.UpdatedAt),
		SettledAt:     optionalFromNanos(r.SettledAt),
	}
}

func (r outboxRecord) toMessage() ports.OutboxMessage {
	return ports.OutboxMessage{
		OutboxID:     r.OutboxID,
		EventType:    r.EventType,
		PartitionKey: r.PartitionKey,
		Payload:      append([]byte(nil), r.Payload...),
		CreatedAt:    fromNanos(r.CreatedAt),
	}
}
