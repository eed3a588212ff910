// Package rules holds the subset of movement rules the client applies before
// asking the authority. The authority re-validates every move.
package rules

import "github.com/wfunc/ludoclient/models"

const (
	// FinishPosition is the terminal path coordinate on the standard board.
	FinishPosition = 56
	// RollToLeaveHome is the only die face that releases a token from its pen.
	RollToLeaveHome = 6

	DiceMin = 1
	DiceMax = 6
)

// IsLegalMove reports whether token may advance by diceValue.
func IsLegalMove(token models.Token, diceValue int) bool {
	if diceValue < DiceMin || diceValue > DiceMax {
		return false
	}
	if token.IsFinished {
		return false
	}
	if token.IsHome && diceValue != RollToLeaveHome {
		return false
	}
	return token.Position+diceValue <= FinishPosition
}

// LegalMoves returns the ids of the player's tokens that may move by diceValue, in seat order.
func LegalMoves(player models.Player, diceValue int) []string {
	var ids []string
	for _, t := range player.Tokens {
		if IsLegalMove(t, diceValue) {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// HasLegalMove reports whether any of the player's tokens can use diceValue.
func HasLegalMove(player models.Player, diceValue int) bool {
	for _, t := range player.Tokens {
		if IsLegalMove(t, diceValue) {
			return true
		}
	}
	return false
}
