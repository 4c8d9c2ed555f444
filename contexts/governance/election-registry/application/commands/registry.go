package commands

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"strings"
	"time"

	application "electionledger/contexts/governance/election-registry/application"
	"electionledger/contexts/governance/election-registry/domain/entities"
	"electionledger/contexts/governance/election-registry/ports"
)

type InitializeRegistryCommand struct {
	Caller       string
	RewardAmount *big.Int
}

// RegistryUseCase owns the one-time registry construction.
type RegistryUseCase struct {
	Registry ports.RegistryRepository
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Logger   *slog.Logger
}

// Initialize records the platform owner and the fixed token reward. A second
// call fails with ErrAlreadyInitialized and changes nothing.
func (uc RegistryUseCase) Initialize(ctx context.Context, cmd InitializeRegistryCommand) (entities.Registry, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := resolveNow(uc.Clock)

	registry, err := entities.NewRegistry(cmd.Caller, cmd.RewardAmount, now)
	if err != nil {
		logger.Warn("registry initialize validation failed",
			"event", "registry_initialize_validation_failed",
			"module", application.ModuleName,
			"layer", "application",
			"caller", strings.TrimSpace(cmd.Caller),
			"error", err.Error(),
		)
		return entities.Registry{}, err
	}

	var effects ports.Effects
	if uc.IDGen != nil {
		eventID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return entities.Registry{}, err
		}
		envelope, err := newRegistryEnvelope(eventID, eventRegistryInitialized, "registry", "registry", now, map[string]any{
			"platform_owner": registry.PlatformOwner,
			"token_reward":   registry.TokenReward.String(),
			"occurred_at":    now.UTC().Format(time.RFC3339),
		})
		if err != nil {
			return entities.Registry{}, err
		}
		effects.Events = append(effects.Events, envelope)
	}

	if err := uc.Registry.InitializeRegistry(ctx, registry, effects); err != nil {
		logger.Warn("registry initialize rejected",
			"event", "registry_initialize_rejected",
			"module", application.ModuleName,
			"layer", "application",
			"caller", registry.PlatformOwner,
			"error", err.Error(),
		)
		return entities.Registry{}, err
	}

	logger.Info("registry initialized",
		"event", "registry_initialized",
		"module", application.ModuleName,
		"layer", "application",
		"platform_owner", registry.PlatformOwner,
		"token_reward", registry.TokenReward.String(),
	)
	return registry, nil
}

func resolveNow(clock ports.Clock) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock.Now().UTC()
}

// requireRegistry loads the registry so transitions fail fast before it exists.
func requireRegistry(ctx context.Context, repo ports.RegistryRepository) (entities.Registry, error) {
	registry, err := repo.GetRegistry(ctx)
	if err != nil {
		return entities.Registry{}, err
	}
	if strings.TrimSpace(registry.PlatformOwner) == "" {
		return entities.Registry{}, errors.New("registry record has no platform owner")
	}
	return registry, nil
}
