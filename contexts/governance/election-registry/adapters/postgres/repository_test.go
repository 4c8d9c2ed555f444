package postgresadapter

import (
	"context"
	"testing"

	"electionledger/contexts/governance/election-registry/adapters/storetest"
	domainerrors "electionledger/contexts/governance/election-registry/domain/errors"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSQLiteRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Every connection to ":memory:" is a separate database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	repo := NewRepository(db, nil)
	require.NoError(t, repo.Migrate(context.Background()))
	return repo
}

func TestRepositoryConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Backend {
		return newSQLiteRepository(t)
	})
}

func TestCreateElectionRequiresRegistryRow(t *testing.T) {
	repo := newSQLiteRepository(t)
	_, err := repo.CreateElection(context.Background(), nil)
	require.ErrorIs(t, err, domainerrors.ErrRegistryNotInitialized)
}

func TestMigrateIsRepeatable(t *testing.T) {
	repo := newSQLiteRepository(t)
	require.NoError(t, repo.Migrate(context.Background()))
}
