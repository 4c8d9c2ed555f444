package main

import (
	"math/big"
	"time"

	"electionledger/contexts/governance/election-registry/domain/entities"

	"github.com/dustin/go-humanize"
)

// formatAmount renders a base-unit amount as whole tokens with digit
// grouping, keeping the raw value alongside.
func formatAmount(raw string) string {
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return raw
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(entities.TokenDecimals), nil)
	whole := new(big.Float).Quo(new(big.Float).SetInt(amount), new(big.Float).SetInt(scale))
	return humanize.BigCommaf(whole) + " tokens (" + humanize.BigComma(amount) + " base units)"
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return humanize.Time(value)
}
