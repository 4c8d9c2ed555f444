package electionregistry

import (
	"log/slog"
	"time"

	httpadapter "electionledger/contexts/governance/election-registry/adapters/http"
	"electionledger/contexts/governance/election-registry/adapters/memory"
	"electionledger/contexts/governance/election-registry/application/commands"
	"electionledger/contexts/governance/election-registry/application/queries"
	"electionledger/contexts/governance/election-registry/application/workers"
	"electionledger/contexts/governance/election-registry/ports"
)

// Module is the composition surface for the election registry.
// Runtime wiring consumes Handler and the workers; Store is set only by
// NewInMemoryModule for tests and inspection.
type Module struct {
	Handler       httpadapter.Handler
	OutboxRelay   workers.OutboxRelay
	RewardSettler workers.RewardSettler
	Store         *memory.Store
}

type Dependencies struct {
	Registry          ports.RegistryRepository
	Rewards           ports.RewardLedger
	Outbox            ports.OutboxRepository
	Idempotency       ports.IdempotencyStore
	Payer             ports.RewardPayer
	Publisher         ports.EventPublisher
	Clock             ports.Clock
	IDGen             ports.IDGenerator
	IdempotencyTTL    time.Duration
	OutboxBatchSize   int
	RewardMaxAttempts int
	DisableSettlement bool
	Logger            *slog.Logger
}

// NewModule wires the registry use cases against explicit ports.
func NewModule(deps Dependencies) Module {
	handler := httpadapter.Handler{
		Registry: commands.RegistryUseCase{
			Registry: deps.Registry,
			Clock:    deps.Clock,
			IDGen:    deps.IDGen,
			Logger:   deps.Logger,
		},
		Elections: commands.ElectionUseCase{
			Registry:       deps.Registry,
			Idempotency:    deps.Idempotency,
			Clock:          deps.Clock,
			IDGen:          deps.IDGen,
			IdempotencyTTL: deps.IdempotencyTTL,
			Logger:         deps.Logger,
		},
		Votes: commands.VoteUseCase{
			Registry: deps.Registry,
			Clock:    deps.Clock,
			IDGen:    deps.IDGen,
			Logger:   deps.Logger,
		},
		Queries: queries.ElectionQueryUseCase{
			Registry: deps.Registry,
			Rewards:  deps.Rewards,
			Clock:    deps.Clock,
		},
		Logger: deps.Logger,
	}
	return Module{
		Handler: handler,
		OutboxRelay: workers.OutboxRelay{
			Outbox:    deps.Outbox,
			Publisher: deps.Publisher,
			Clock:     deps.Clock,
			BatchSize: deps.OutboxBatchSize,
			Logger:    deps.Logger,
		},
		RewardSettler: workers.RewardSettler{
			Rewards:     deps.Rewards,
			Payer:       deps.Payer,
			Clock:       deps.Clock,
			BatchSize:   deps.OutboxBatchSize,
			MaxAttempts: deps.RewardMaxAttempts,
			Disabled:    deps.DisableSettlement || deps.Payer == nil,
			Logger:      deps.Logger,
		},
	}
}

// NewInMemoryModule wires every port to one memory.Store, which also acts as
// the reward payer. publisher may be nil when the outbox relay is not run.
func NewInMemoryModule(publisher ports.EventPublisher, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Registry:        store,
		Rewards:         store,
		Outbox:          store,
		Idempotency:     store,
		Payer:           store,
		Publisher:       publisher,
		Clock:           store,
		IDGen:           store,
		IdempotencyTTL:  24 * time.Hour,
		OutboxBatchSize: 100,
		Logger:          logger,
	})
	module.Store = store
	return module
}
