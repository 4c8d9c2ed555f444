package entities

import (
	"math/big"
	"strings"
	"time"

	domainerrors "electionledger/contexts/governance/election-registry/domain/errors"
)

// TokenDecimals is the fixed-point scale of TokenReward amounts.
const TokenDecimals = 18

// Registry is the process-wide election registry owned by the deploying
// authority. Both fields are immutable once initialized.
type Registry struct {
	PlatformOwner string
	TokenReward   *big.Int
	InitializedAt time.Time
}

func NewRegistry(owner string, reward *big.Int, now time.Time) (Registry, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return Registry{}, domainerrors.ErrInvalidPrincipal
	}
	if reward == nil {
		reward = new(big.Int)
	}
	if reward.Sign() < 0 {
		return Registry{}, domainerrors.ErrInvalidRewardAmount
	}
	return Registry{
		PlatformOwner: owner,
		TokenReward:   new(big.Int).Set(reward),
		InitializedAt: now.UTC(),
	}, nil
}

// RewardAmount returns a copy so callers cannot mutate the registry value.
func (r Registry) RewardAmount() *big.Int {
	if r.TokenReward == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(r.TokenReward)
}

func (r Registry) PaysReward() bool {
	return r.TokenReward != nil && r.TokenReward.Sign() > 0
}

// ParseTokenAmount parses a base-unit integer such as "10000000000000000000"
// (10 whole tokens at 18 decimals).
func ParseTokenAmount(raw string) (*big.Int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return new(big.Int), nil
	}
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok || amount.Sign() < 0 {
		return nil, domainerrors.ErrInvalidRewardAmount
	}
	return amount, nil
}

// WholeTokens scales a whole-token count to base units.
func WholeTokens(count int64) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(TokenDecimals), nil)
	return scale.Mul(scale, big.NewInt(count))
}
