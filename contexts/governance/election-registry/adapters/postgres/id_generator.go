package postgresadapter

import (
	"context"

	"github.com/google/uuid"
)

// UUIDGenerator issues event, outbox and reward identifiers. Election and
// candidate ids are positional and never come from here.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
