package persistence

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/ludoclient/config"
	"github.com/wfunc/ludoclient/models"
)

func record(id string, ended time.Time) models.GameRecord {
	return models.GameRecord{
		GameID:   id,
		RoomCode: "ROOM-" + id,
		Status:   string(models.StatusFinished),
		Winner:   "p0",
		Snapshot: []byte(`{"id":"` + id + `"}`),
		EndedAt:  ended,
	}
}

// exerciseDatabase runs the same contract against any store.
func exerciseDatabase(t *testing.T, db Database) {
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, db.SaveGameRecord(ctx, record("g1", base)))
	require.NoError(t, db.SaveGameRecord(ctx, record("g2", base.Add(time.Minute))))
	require.NoError(t, db.SaveGameRecord(ctx, record("g3", base.Add(2*time.Minute))))

	recent, err := db.RecentGames(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "g3", recent[0].GameID)
	assert.Equal(t, "g2", recent[1].GameID)

	// 同一局再次归档覆盖
	updated := record("g1", base.Add(5*time.Minute))
	updated.Winner = "p1"
	require.NoError(t, db.SaveGameRecord(ctx, updated))

	got, err := db.LoadGameRecord(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "p1", got.Winner)
	assert.Equal(t, "ROOM-g1", got.RoomCode)
	assert.JSONEq(t, `{"id":"g1"}`, string(got.Snapshot))

	all, err := db.RecentGames(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "g1", all[0].GameID)

	_, err = db.LoadGameRecord(ctx, "missing")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestGormSQLite(t *testing.T) {
	db, err := NewGormSQLite(":memory:")
	require.NoError(t, err)
	defer db.Close()

	exerciseDatabase(t, db)
}

func TestOpen(t *testing.T) {
	db, err := Open(config.HistoryConfig{Driver: "none"})
	require.NoError(t, err)
	assert.Nil(t, db)

	db, err = Open(config.HistoryConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	require.NotNil(t, db)
	require.NoError(t, db.Close())

	_, err = Open(config.HistoryConfig{Driver: "mongo"})
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestPostgresDSN(t *testing.T) {
	assert.Equal(t,
		"host=db port=5432 user=ludo password=secret dbname=history sslmode=disable",
		postgresDSN("db", 5432, "ludo", "secret", "history"))
}

// LUDO_TEST_POSTGRES_DSN points at a scratch database; both postgres stores share its table.
func TestPostgreSQLStores(t *testing.T) {
	dsn := os.Getenv("LUDO_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("LUDO_TEST_POSTGRES_DSN not set")
	}

	t.Run("gorm", func(t *testing.T) {
		db, err := NewGormPostgreSQLDSN(dsn)
		require.NoError(t, err)
		defer db.Close()
		require.NoError(t, db.db.Exec("DELETE FROM game_records").Error)
		exerciseDatabase(t, db)
	})

	t.Run("pq", func(t *testing.T) {
		db, err := NewPostgreSQLDSN(dsn)
		require.NoError(t, err)
		defer db.Close()
		_, err = db.db.Exec("DELETE FROM game_records")
		require.NoError(t, err)
		exerciseDatabase(t, db)
	})
}
