package memory

import (
	"context"
	"math/big"
	"testing"
	"time"

	"electionledger/contexts/governance/election-registry/adapters/storetest"
	domainerrors "electionledger/contexts/governance/election-registry/domain/errors"
	"electionledger/contexts/governance/election-registry/ports"
)

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(*testing.T) storetest.Backend {
		return NewStore()
	})
}

func TestTransferAccumulatesBalance(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	ref, err := store.Transfer(ctx, ports.RewardTransfer{RewardID: "r1", Recipient: "v1", Amount: big.NewInt(7)})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if ref != "memory:r1" {
		t.Fatalf("unexpected reference %q", ref)
	}
	if _, err := store.Transfer(ctx, ports.RewardTransfer{RewardID: "r2", Recipient: " v1 ", Amount: big.NewInt(5)}); err != nil {
		t.Fatalf("second transfer failed: %v", err)
	}
	if got := store.Balance("v1"); got.Cmp(big.NewInt(12)) != 0 {
		t.Fatalf("expected balance 12, got %s", got)
	}

	balance := store.Balance("v1")
	balance.SetInt64(0)
	if store.Balance("v1").Sign() == 0 {
		t.Fatalf("balance copy leaked into the store")
	}

	if _, err := store.Transfer(ctx, ports.RewardTransfer{RewardID: "r3", Recipient: ""}); err != domainerrors.ErrInvalidPrincipal {
		t.Fatalf("expected ErrInvalidPrincipal, got %v", err)
	}
}

func TestNowUsesOverride(t *testing.T) {
	store := NewStore()
	fixed := time.Date(2024, 2, 29, 23, 59, 59, 0, time.FixedZone("UTC+2", 2*3600))
	store.SetClock(func() time.Time { return fixed })
	if got := store.Now(); !got.Equal(fixed) || got.Location() != time.UTC {
		t.Fatalf("expected %s in UTC, got %s", fixed, got)
	}
}

func TestSnapshotUnknownElection(t *testing.T) {
	store := NewStore()
	if _, ok := store.Snapshot(0); ok {
		t.Fatalf("expected no snapshot for an empty store")
	}
}
