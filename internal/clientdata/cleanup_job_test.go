package clientdata

import (
	"testing"
	"time"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCleanupJob(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	job := NewCleanupJob(repo, zerolog.Nop())

	assert.NotNil(t, job)
}

func TestCleanupJobName(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	job := NewCleanupJob(repo, zerolog.Nop())

	assert.Equal(t, "client_data_cleanup", job.Name())
}

func TestCleanupJobRun(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	job := NewCleanupJob(repo, zerolog.Nop())

	require.NoError(t, repo.Store(TableQuotes, "EXPIRED", cachedQuote{Price: "1"}, -time.Hour))
	require.NoError(t, repo.Store(TableQuotes, "FRESH", cachedQuote{Price: "2"}, time.Hour))

	var countBefore int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM quotes_cache").Scan(&countBefore))
	assert.Equal(t, 2, countBefore)

	job.Run()

	var countAfter int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM quotes_cache").Scan(&countAfter))
	assert.Equal(t, 1, countAfter)

	var out cachedQuote
	found, err := repo.Get(TableQuotes, "FRESH", &out)
	require.NoError(t, err)
	assert.True(t, found)
}
