package state

import "github.com/wfunc/ludoclient/models"

// Reduce folds one event into s and returns the next snapshot. It is pure and
// total: events whose precondition does not hold, and unknown events, return s
// itself so callers can detect a no-op with a pointer comparison.
func Reduce(s *SessionState, e Event) *SessionState {
	if s == nil {
		s = Initial()
	}

	switch ev := e.(type) {
	case SessionCreated:
		if ev.Game == nil || !ev.Game.TurnIndexValid() {
			return s
		}
		next := s.clone()
		next.CurrentGame = ev.Game.Clone()
		next.InGame = true
		next.AvailableMoves = nil
		return next

	case SessionUpdated:
		if s.CurrentGame == nil {
			return s
		}
		if ev.Patch.ID != "" && ev.Patch.ID != s.CurrentGame.ID {
			return s
		}
		merged := ev.Patch.Apply(s.CurrentGame)
		if !merged.TurnIndexValid() {
			return s
		}
		next := s.clone()
		next.CurrentGame = merged
		return next

	case SessionCleared:
		if s.CurrentGame == nil && !s.InGame && len(s.AvailableMoves) == 0 {
			return s
		}
		next := s.clone()
		next.CurrentGame = nil
		next.InGame = false
		next.AvailableMoves = nil
		return next

	case DiceResolved:
		if s.CurrentGame == nil {
			return s
		}
		// rollHistory resets on every result rather than accumulating.
		return s.withGame(func(g *models.Game) {
			g.Dice = models.DiceState{
				Value:        ev.Value,
				IsRolling:    false,
				CanRoll:      false,
				RollCount:    0,
				LastRolledBy: ev.RollerID,
				RollHistory:  []int{},
			}
		})

	case DiceRollRequested:
		if !s.currentIs(ev.GameID) {
			return s
		}
		return s.withGame(func(g *models.Game) {
			g.Dice.IsRolling = true
			g.Dice.CanRoll = false
		})

	case DiceRollReverted:
		if !s.currentIs(ev.GameID) || !s.CurrentGame.Dice.IsRolling {
			return s
		}
		return s.withGame(func(g *models.Game) {
			g.Dice = ev.Previous.Clone()
			g.Dice.IsRolling = false
		})

	case TokenRelocated:
		if s.CurrentGame == nil {
			return s
		}
		token, _, ok := s.CurrentGame.FindToken(ev.TokenID)
		if !ok || token.IsFinished || token.Position == ev.NewPosition {
			return s
		}
		return s.withGame(func(g *models.Game) {
			for i := range g.Players {
				for j := range g.Players[i].Tokens {
					if g.Players[i].Tokens[j].ID == ev.TokenID {
						g.Players[i].Tokens[j].Position = ev.NewPosition
					}
				}
			}
		})

	case TurnAdvanced:
		if s.CurrentGame == nil {
			return s
		}
		if s.CurrentGame.Status == models.StatusPlaying &&
			(ev.PlayerIndex < 0 || ev.PlayerIndex >= len(s.CurrentGame.Players)) {
			return s
		}
		next := s.withGame(func(g *models.Game) {
			g.CurrentPlayer = ev.PlayerIndex
		})
		next.AvailableMoves = append([]string(nil), ev.LegalMoves...)
		return next

	case PlayerUpdated:
		if s.CurrentGame == nil {
			return s
		}
		if _, ok := s.CurrentGame.PlayerByID(ev.PlayerID); !ok {
			return s
		}
		return s.withGame(func(g *models.Game) {
			for i, p := range g.Players {
				if p.ID == ev.PlayerID {
					g.Players[i] = ev.Patch.Apply(p)
				}
			}
		})

	case HistoryArchived:
		if ev.Game == nil || !ev.Game.Status.IsTerminal() {
			return s
		}
		keep := s.History
		if len(keep) > HistoryCapacity-1 {
			keep = keep[:HistoryCapacity-1]
		}
		history := make([]*models.Game, 0, len(keep)+1)
		history = append(history, ev.Game.Clone())
		history = append(history, keep...)
		next := s.clone()
		next.History = history
		return next

	case SpectateStarted:
		next := s.clone()
		next.SpectatingGame = ev.Game.Clone()
		next.Spectating = ev.Game != nil
		return next

	case SpectateUpdated:
		if s.SpectatingGame == nil {
			return s
		}
		if ev.Patch.ID != "" && ev.Patch.ID != s.SpectatingGame.ID {
			return s
		}
		merged := ev.Patch.Apply(s.SpectatingGame)
		if !merged.TurnIndexValid() {
			return s
		}
		next := s.clone()
		next.SpectatingGame = merged
		return next

	case SpectateStopped:
		if s.SpectatingGame == nil && !s.Spectating {
			return s
		}
		next := s.clone()
		next.SpectatingGame = nil
		next.Spectating = false
		return next

	default:
		return s
	}
}

func (s *SessionState) currentIs(gameID string) bool {
	return s.CurrentGame != nil && s.CurrentGame.ID == gameID
}

// withGame copies the state and the current game, then lets fn edit the copy.
func (s *SessionState) withGame(fn func(g *models.Game)) *SessionState {
	next := s.clone()
	next.CurrentGame = s.CurrentGame.Clone()
	fn(next.CurrentGame)
	return next
}
