package session

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/wfunc/ludoclient/models"
)

type joinRequest struct {
	GameID   string `json:"gameId"`
	Password string `json:"password,omitempty"`
}

type createRequest struct {
	Settings models.GameSettings `json:"settings"`
}

type gameRef struct {
	GameID string `json:"gameId"`
}

type moveRequest struct {
	GameID  string `json:"gameId"`
	TokenID string `json:"tokenId"`
	Steps   int    `json:"steps"`
}

type diceRolledPayload struct {
	PlayerID string `json:"playerId"`
	Value    int    `json:"value"`
}

type tokenMovedPayload struct {
	TokenID     string `json:"tokenId"`
	NewPosition int    `json:"newPosition"`
}

type turnChangedPayload struct {
	CurrentPlayer  int             `json:"currentPlayer"`
	AvailableMoves json.RawMessage `json:"availableMoves,omitempty"`
}

// decodeMoves reads a list of token ids or of indexes into tokens, the tokens
// of the player to move. Out of range indexes are kept as text.
func decodeMoves(raw json.RawMessage, tokens []models.Token) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	moves := make([]string, 0, len(items))
	for _, item := range items {
		var id string
		if err := json.Unmarshal(item, &id); err == nil {
			moves = append(moves, id)
			continue
		}
		n, err := strconv.Atoi(string(item))
		if err != nil {
			return nil, fmt.Errorf("invalid move %s", item)
		}
		if n >= 0 && n < len(tokens) {
			moves = append(moves, tokens[n].ID)
		} else {
			moves = append(moves, strconv.Itoa(n))
		}
	}
	return moves, nil
}

// decodeGame parses a full game and checks its invariants.
func decodeGame(data json.RawMessage) (*models.Game, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidGame)
	}
	var game models.Game
	if err := json.Unmarshal(data, &game); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGame, err)
	}
	if err := game.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGame, err)
	}
	return &game, nil
}
