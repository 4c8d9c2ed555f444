package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	electionregistry "electionledger/contexts/governance/election-registry"
	"electionledger/contexts/governance/election-registry/adapters/kv"
	"electionledger/contexts/governance/election-registry/adapters/payout"
	postgresadapter "electionledger/contexts/governance/election-registry/adapters/postgres"
	"electionledger/contexts/governance/election-registry/application/commands"
	"electionledger/contexts/governance/election-registry/domain/entities"
	domainerrors "electionledger/contexts/governance/election-registry/domain/errors"
	"electionledger/contexts/governance/election-registry/ports"
	"electionledger/internal/platform/config"
	"electionledger/internal/platform/db"
	"electionledger/internal/platform/messaging"

	"github.com/redis/go-redis/v9"
)

// Runtime is a wired registry module plus the resources it holds open.
type Runtime struct {
	Module  electionregistry.Module
	Bus     *messaging.Bus
	Backend string

	database *db.Database
	redis    redis.UniversalClient
}

// BuildRuntime wires the registry against the configured store backend.
// The memory backend settles rewards into in-process balances; every other
// backend publishes transfer requests on the bus.
func BuildRuntime(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	bus := messaging.NewBus(cfg.KafkaBrokers, logger)
	runtime := &Runtime{Bus: bus, Backend: cfg.StoreBackend}

	if cfg.StoreBackend == config.StoreMemory {
		runtime.Module = electionregistry.NewInMemoryModule(bus, logger)
		runtime.Module.RewardSettler.MaxAttempts = cfg.RewardMaxAttempts
		runtime.Module.RewardSettler.Disabled = !cfg.EnableRewardSettler
		runtime.Module.OutboxRelay.BatchSize = cfg.OutboxBatchSize
		if err := runtime.autoInitialize(ctx, cfg, logger); err != nil {
			return nil, err
		}
		return runtime, nil
	}

	deps := electionregistry.Dependencies{
		Publisher:         bus,
		Payer:             payout.EventBusPayer{Publisher: bus, Clock: postgresadapter.SystemClock{}},
		Clock:             postgresadapter.SystemClock{},
		IDGen:             postgresadapter.UUIDGenerator{},
		IdempotencyTTL:    24 * time.Hour,
		OutboxBatchSize:   cfg.OutboxBatchSize,
		RewardMaxAttempts: cfg.RewardMaxAttempts,
		DisableSettlement: !cfg.EnableRewardSettler,
		Logger:            logger,
	}

	switch cfg.StoreBackend {
	case config.StorePostgres, config.StoreSQLite:
		var (
			database *db.Database
			err      error
		)
		if cfg.StoreBackend == config.StorePostgres {
			database, err = db.Connect(cfg.PostgresDSN)
		} else {
			database, err = db.OpenSQLite(cfg.SQLitePath)
		}
		if err != nil {
			return nil, err
		}
		repo := postgresadapter.NewRepository(database.DB, logger)
		if err := repo.Migrate(ctx); err != nil {
			_ = database.Close()
			return nil, err
		}
		runtime.database = database
		deps.Registry = repo
		deps.Rewards = repo
		deps.Outbox = repo
		deps.Idempotency = repo
	case config.StoreRedis:
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.RedisAddr},
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		var locker ports.Locker = kv.NewMutexLocker()
		if cfg.EnableDistributedLock {
			locker = kv.NewRedisLocker(client, cfg.ServiceName+":lock", 0)
		}
		store := kv.NewStore(kv.NewRedisDriver(client, cfg.ServiceName), locker, logger)
		runtime.redis = client
		deps.Registry = store
		deps.Rewards = store
		deps.Outbox = store
		deps.Idempotency = store
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.StoreBackend)
	}

	runtime.Module = electionregistry.NewModule(deps)
	if err := runtime.autoInitialize(ctx, cfg, logger); err != nil {
		_ = runtime.Close()
		return nil, err
	}
	return runtime, nil
}

// autoInitialize initializes the registry from REGISTRY_OWNER/TOKEN_REWARD.
// An already initialized registry is left untouched.
func (r *Runtime) autoInitialize(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if cfg.RegistryOwner == "" {
		return nil
	}
	amount, err := entities.ParseTokenAmount(cfg.TokenReward)
	if err != nil {
		return fmt.Errorf("parse TOKEN_REWARD: %w", err)
	}
	_, err = r.Module.Handler.Registry.Initialize(ctx, commands.InitializeRegistryCommand{
		Caller:       cfg.RegistryOwner,
		RewardAmount: amount,
	})
	switch {
	case err == nil:
		logger.Info("registry initialized from configuration",
			"event", "bootstrap_registry_initialized",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"platform_owner", cfg.RegistryOwner,
			"token_reward", amount.String(),
		)
		return nil
	case errors.Is(err, domainerrors.ErrAlreadyInitialized):
		return nil
	default:
		return err
	}
}

func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	r.Bus.Close()
	var errs []error
	if r.database != nil {
		errs = append(errs, r.database.Close())
	}
	if r.redis != nil {
		errs = append(errs, r.redis.Close())
	}
	return errors.Join(errs...)
}
