package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	domainerrors "electionledger/contexts/governance/election-registry/domain/errors"
	"electionledger/contexts/governance/election-registry/ports"
)

const defaultIdempotencyTTL = 24 * time.Hour

func hashRequest(op string, fields map[string]string) string {
	payload := make(map[string]string, len(fields)+1)
	for key, value := range fields {
		payload[key] = strings.TrimSpace(value)
	}
	payload["op"] = op
	raw, _ := json.Marshal(payload)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// lookupReplay returns the stored resource id for a previously completed
// request. An empty key or a nil store disables replay.
func lookupReplay(
	ctx context.Context,
	store ports.IdempotencyStore,
	key string,
	requestHash string,
	now time.Time,
) (string, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" || store == nil {
		return "", false, nil
	}
	record, found, err := store.Get(ctx, key, now)
	if err != nil || !found {
		return "", false, err
	}
	if record.RequestHash != requestHash {
		return "", false, domainerrors.ErrIdempotencyConflict
	}
	return record.ResourceID, true, nil
}

// newClaim builds the record the store writes together with the new
// resource. It is nil when replay is disabled.
func newClaim(
	store ports.IdempotencyStore,
	key string,
	requestHash string,
	resourceID string,
	now time.Time,
	ttl time.Duration,
) *ports.IdempotencyClaim {
	key = strings.TrimSpace(key)
	if key == "" || store == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &ports.IdempotencyClaim{
		Record: ports.IdempotencyRecord{
			Key:         key,
			RequestHash: requestHash,
			ResourceID:  resourceID,
			ExpiresAt:   now.Add(ttl),
		},
		Now: now,
	}
}
