package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var configKeys = []string{
	"SERVICE_NAME", "HTTP_PORT", "STORE_BACKEND", "POSTGRES_DSN", "SQLITE_PATH", "KAFKA_BROKERS",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "REGISTRY_OWNER", "TOKEN_REWARD",
	"VOTE_RATE_PER_SECOND", "VOTE_RATE_BURST", "OUTBOX_BATCH_SIZE", "REWARD_MAX_ATTEMPTS",
	"WORKER_POLL_INTERVAL", "ENABLE_REWARD_SETTLER", "ENABLE_DISTRIBUTED_LOCK",
}

// clearEnv unsets every config key for the test and restores it afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, key := range configKeys {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ServiceName != "electionledger" || cfg.HTTPPort != "8080" || cfg.StoreBackend != StoreMemory {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.VoteRatePerSecond != 5 || cfg.VoteRateBurst != 10 {
		t.Fatalf("unexpected vote limits: %v/%d", cfg.VoteRatePerSecond, cfg.VoteRateBurst)
	}
	if cfg.WorkerPollInterval != 5*time.Second || !cfg.EnableRewardSettler || cfg.EnableDistributedLock {
		t.Fatalf("unexpected worker defaults: %+v", cfg)
	}
	if len(cfg.KafkaBrokers) != 1 || cfg.KafkaBrokers[0] != "localhost:9092" {
		t.Fatalf("unexpected brokers %v", cfg.KafkaBrokers)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_BACKEND", " Redis ")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,,")
	t.Setenv("VOTE_RATE_PER_SECOND", "0.5")
	t.Setenv("WORKER_POLL_INTERVAL", "250ms")
	t.Setenv("ENABLE_REWARD_SETTLER", "off")
	t.Setenv("OUTBOX_BATCH_SIZE", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.StoreBackend != StoreRedis {
		t.Fatalf("expected redis backend, got %q", cfg.StoreBackend)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "b:9092" {
		t.Fatalf("unexpected brokers %v", cfg.KafkaBrokers)
	}
	if cfg.VoteRatePerSecond != 0.5 || cfg.WorkerPollInterval != 250*time.Millisecond || cfg.EnableRewardSettler {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.OutboxBatchSize != 100 {
		t.Fatalf("expected fallback batch size, got %d", cfg.OutboxBatchSize)
	}
}

func TestLoadRejectsBadBackend(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_BACKEND", "cassandra")
	if _, err := Load(); err == nil {
		t.Fatalf("expected unsupported backend error")
	}
}

func TestLoadRequiresPostgresDSN(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_BACKEND", "postgres")
	if _, err := Load(); err == nil {
		t.Fatalf("expected missing DSN error")
	}
}

func TestLoadReadsDotEnvWithoutOverriding(t *testing.T) {
	clearEnv(t)
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	content := "REGISTRY_OWNER=owner-from-file\nHTTP_PORT=9090\nTOKEN_REWARD=42\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("HTTP_PORT", "7070")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.RegistryOwner != "owner-from-file" || cfg.TokenReward != "42" {
		t.Fatalf("expected values from .env, got %+v", cfg)
	}
	if cfg.HTTPPort != "7070" {
		t.Fatalf("environment must win over .env, got %q", cfg.HTTPPort)
	}
}
