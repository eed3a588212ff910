package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/ludoclient/models"
	"github.com/wfunc/ludoclient/persistence"
)

func finishedGame(id string, ended time.Time) *models.Game {
	g := &models.Game{
		ID:       id,
		RoomCode: "ROOM-" + id,
		Status:   models.StatusFinished,
		Winner:   "p0",
		EndedAt:  &ended,
	}
	for i, color := range []models.PlayerColor{models.ColorRed, models.ColorBlue} {
		pid := fmt.Sprintf("p%d", i)
		p := models.Player{ID: pid, Color: color}
		for j := 0; j < models.TokensPerPlayer; j++ {
			p.Tokens = append(p.Tokens, models.Token{
				ID:         fmt.Sprintf("%s-t%d", pid, j),
				PlayerID:   pid,
				Color:      color,
				Position:   56,
				IsFinished: i == 0,
			})
		}
		g.Players = append(g.Players, p)
	}
	return g
}

func newService(t *testing.T) (*HistoryService, persistence.Database) {
	db, err := persistence.NewGormSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewHistoryService(db), db
}

func TestHistoryService_ArchiveAndRecent(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, svc.Archive(ctx, finishedGame(id, base.Add(time.Duration(i)*time.Hour))))
	}

	games, err := svc.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, "c", games[0].ID)
	assert.Equal(t, "b", games[1].ID)
	assert.Equal(t, models.StatusFinished, games[0].Status)

	got, err := svc.Lookup(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "p0", got.Winner)
	assert.Len(t, got.Players, 2)
}

func TestHistoryService_RefusesActiveGame(t *testing.T) {
	svc, _ := newService(t)
	g := finishedGame("live", time.Now())
	g.Status = models.StatusPlaying

	assert.Error(t, svc.Archive(context.Background(), g))
	assert.Error(t, svc.Archive(context.Background(), nil))
}

func TestHistoryService_SkipsCorruptSnapshots(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.Archive(ctx, finishedGame("good", time.Now().Add(-time.Hour))))
	require.NoError(t, db.SaveGameRecord(ctx, models.GameRecord{
		GameID:   "bad",
		Status:   string(models.StatusFinished),
		Snapshot: []byte("{not json"),
		EndedAt:  time.Now(),
	}))

	games, err := svc.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, "good", games[0].ID)

	_, err = svc.Lookup(ctx, "missing")
	assert.ErrorIs(t, err, persistence.ErrRecordNotFound)
}
