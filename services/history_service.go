// services/history_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wfunc/ludoclient/logger"
	"github.com/wfunc/ludoclient/models"
	"github.com/wfunc/ludoclient/persistence"
)

// HistoryService 结束对局的归档与读取
type HistoryService struct {
	db persistence.Database
}

func NewHistoryService(db persistence.Database) *HistoryService {
	return &HistoryService{db: db}
}

// Archive stores a terminal game. Non-terminal games are refused.
func (s *HistoryService) Archive(ctx context.Context, game *models.Game) error {
	if game == nil || !game.Status.IsTerminal() {
		return fmt.Errorf("archive: game is not finished")
	}
	snapshot, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("archive %s: %w", game.ID, err)
	}

	endedAt := time.Now()
	if game.EndedAt != nil {
		endedAt = *game.EndedAt
	}
	record := models.GameRecord{
		GameID:   game.ID,
		RoomCode: game.RoomCode,
		Status:   string(game.Status),
		Winner:   game.Winner,
		Snapshot: snapshot,
		EndedAt:  endedAt,
	}
	if err := s.db.SaveGameRecord(ctx, record); err != nil {
		return fmt.Errorf("archive %s: %w", game.ID, err)
	}
	logger.Log.Debugf("Archived game %s (%s)", game.ID, game.Status)
	return nil
}

// Recent returns up to limit archived games, most recent first. Records whose
// snapshot no longer decodes are skipped.
func (s *HistoryService) Recent(ctx context.Context, limit int) ([]*models.Game, error) {
	records, err := s.db.RecentGames(ctx, limit)
	if err != nil {
		return nil, err
	}

	games := make([]*models.Game, 0, len(records))
	for _, r := range records {
		game, err := decodeRecord(r)
		if err != nil {
			logger.Log.Warnf("Skipping archived game %s: %v", r.GameID, err)
			continue
		}
		games = append(games, game)
	}
	return games, nil
}

// Lookup returns one archived game.
func (s *HistoryService) Lookup(ctx context.Context, gameID string) (*models.Game, error) {
	record, err := s.db.LoadGameRecord(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return decodeRecord(record)
}

func decodeRecord(r models.GameRecord) (*models.Game, error) {
	var game models.Game
	if err := json.Unmarshal(r.Snapshot, &game); err != nil {
		return nil, err
	}
	if err := game.Validate(); err != nil {
		return nil, err
	}
	return &game, nil
}
