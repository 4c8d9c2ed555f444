package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreRedis    = "redis"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string
	HTTPPort     string
	StoreBackend string
	PostgresDSN  string
	SQLitePath   string
	KafkaBrokers []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// RegistryOwner and TokenReward initialize the registry at startup when
	// it is not initialized yet. An empty owner leaves it to the API.
	RegistryOwner string
	TokenReward   string

	VoteRatePerSecond float64
	VoteRateBurst     int

	OutboxBatchSize    int
	RewardMaxAttempts  int
	WorkerPollInterval time.Duration

	EnableRewardSettler   bool
	EnableDistributedLock bool
}

// Load reads the process environment after merging an optional .env file.
// Variables already set in the environment win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "electionledger"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	var brokers []string
	for _, value := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("STORE_BACKEND")))
	if backend == "" {
		backend = StoreMemory
	}
	switch backend {
	case StoreMemory, StorePostgres, StoreSQLite, StoreRedis:
	default:
		return Config{}, fmt.Errorf("unsupported STORE_BACKEND %q", backend)
	}

	cfg := Config{
		ServiceName:  service,
		HTTPPort:     port,
		StoreBackend: backend,
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		SQLitePath:   envString("SQLITE_PATH", "electionledger.db"),
		KafkaBrokers: brokers,

		RedisAddr:     envString("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		RegistryOwner: strings.TrimSpace(os.Getenv("REGISTRY_OWNER")),
		TokenReward:   strings.TrimSpace(os.Getenv("TOKEN_REWARD")),

		VoteRatePerSecond: envFloat("VOTE_RATE_PER_SECOND", 5),
		VoteRateBurst:     envInt("VOTE_RATE_BURST", 10),

		OutboxBatchSize:    envInt("OUTBOX_BATCH_SIZE", 100),
		RewardMaxAttempts:  envInt("REWARD_MAX_ATTEMPTS", 5),
		WorkerPollInterval: envDuration("WORKER_POLL_INTERVAL", 5*time.Second),

		EnableRewardSettler:   envBool("ENABLE_REWARD_SETTLER", true),
		EnableDistributedLock: envBool("ENABLE_DISTRIBUTED_LOCK", false),
	}
	if cfg.StoreBackend == StorePostgres && strings.TrimSpace(cfg.PostgresDSN) == "" {
		return Config{}, errors.New("POSTGRES_DSN is required for the postgres store backend")
	}
	return cfg, nil
}

func envString(name string, fallback string) string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	return raw
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envFloat(name string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return value
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
