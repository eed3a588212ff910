package state

import (
	"github.com/wfunc/ludoclient/identity"
	"github.com/wfunc/ludoclient/models"
	"github.com/wfunc/ludoclient/rules"
)

// IsMyTurn reports whether the seat at currentPlayer belongs to id while the game is being played.
func IsMyTurn(g *models.Game, id identity.Identity) bool {
	if g == nil || id.ID == "" || g.Status != models.StatusPlaying {
		return false
	}
	p, ok := CurrentPlayer(g)
	if !ok {
		return false
	}
	return p.UserID != "" && p.UserID == id.ID
}

// CurrentPlayer returns the seat whose turn it is, or false while the index is out of range.
func CurrentPlayer(g *models.Game) (models.Player, bool) {
	if g == nil || g.CurrentPlayer < 0 || g.CurrentPlayer >= len(g.Players) {
		return models.Player{}, false
	}
	return g.Players[g.CurrentPlayer], true
}

// MyPlayer returns the seat occupied by id.
func MyPlayer(g *models.Game, id identity.Identity) (models.Player, bool) {
	if g == nil || id.ID == "" {
		return models.Player{}, false
	}
	for _, p := range g.Players {
		if p.UserID == id.ID {
			return p, true
		}
	}
	return models.Player{}, false
}

// IsFinished reports whether g has reached the finished status.
func IsFinished(g *models.Game) bool {
	return g != nil && g.Status == models.StatusFinished
}

// LegalTokenIDs derives the current player's movable tokens for the last rolled value.
func LegalTokenIDs(g *models.Game) []string {
	p, ok := CurrentPlayer(g)
	if !ok || g.Dice.Value == 0 {
		return nil
	}
	return rules.LegalMoves(p, g.Dice.Value)
}
