package entities

import (
	"math/big"
	"time"
)

type RewardStatus string

const (
	RewardStatusPending RewardStatus = "pending"
	RewardStatusSettled RewardStatus = "settled"
	RewardStatusFailed  RewardStatus = "failed"
)

// RewardEntry is a reward-owed ledger line written in the same transition as
// the vote it pays for. Settlement happens later and never touches vote state.
type RewardEntry struct {
	RewardID      string
	ElectionID    int64
	Voter         string
	CandidateID   int64
	Amount        *big.Int
	Status        RewardStatus
	Attempts      int
	LastError     string
	SettlementRef string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	SettledAt     *time.Time
}

func NewRewardEntry(rewardID string, electionID int64, voter string, candidateID int64, amount *big.Int, now time.Time) RewardEntry {
	value := new(big.Int)
	if amount != nil {
		value.Set(amount)
	}
	return RewardEntry{
		RewardID:    rewardID,
		ElectionID:  electionID,
		Voter:       voter,
		CandidateID: candidateID,
		Amount:      value,
		Status:      RewardStatusPending,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}
}
