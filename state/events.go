package state

import "github.com/wfunc/ludoclient/models"

// Event is the closed set of transitions accepted by Reduce. The unexported
// method keeps other packages from adding variants the reducer cannot see.
type Event interface {
	Name() string
	sealed()
}

// SessionCreated replaces the current game after a create/join ack or game:start.
type SessionCreated struct {
	Game *models.Game
}

// SessionUpdated merges a partial game into the current game, last writer wins per field.
type SessionUpdated struct {
	Patch models.GamePatch
}

// SessionCleared drops the current game on leave.
type SessionCleared struct{}

// DiceResolved carries the authority's roll result.
type DiceResolved struct {
	Value    int
	RollerID string
}

// DiceRollRequested is the optimistic "rolling" flag set before the authority answers.
type DiceRollRequested struct {
	GameID string
}

// DiceRollReverted restores the dice after the authority rejected a roll request.
type DiceRollReverted struct {
	GameID   string
	Previous models.DiceState
}

// TokenRelocated moves one token to a new path coordinate.
type TokenRelocated struct {
	TokenID     string
	NewPosition int
}

// TurnAdvanced hands the turn to PlayerIndex with the authority's legal moves.
type TurnAdvanced struct {
	PlayerIndex int
	LegalMoves  []string
}

// PlayerUpdated merges a partial seat update.
type PlayerUpdated struct {
	PlayerID string
	Patch    models.PlayerPatch
}

// HistoryArchived records a game that reached a terminal status.
type HistoryArchived struct {
	Game *models.Game
}

// SpectateStarted fills the spectating slot.
type SpectateStarted struct {
	Game *models.Game
}

// SpectateUpdated merges a partial into the spectated game.
type SpectateUpdated struct {
	Patch models.GamePatch
}

// SpectateStopped empties the spectating slot.
type SpectateStopped struct{}

func (SessionCreated) Name() string    { return "session_created" }
func (SessionUpdated) Name() string    { return "session_updated" }
func (SessionCleared) Name() string    { return "session_cleared" }
func (DiceResolved) Name() string      { return "dice_resolved" }
func (DiceRollRequested) Name() string { return "dice_roll_requested" }
func (DiceRollReverted) Name() string  { return "dice_roll_reverted" }
func (TokenRelocated) Name() string    { return "token_relocated" }
func (TurnAdvanced) Name() string      { return "turn_advanced" }
func (PlayerUpdated) Name() string     { return "player_updated" }
func (HistoryArchived) Name() string   { return "history_archived" }
func (SpectateStarted) Name() string   { return "spectate_started" }
func (SpectateUpdated) Name() string   { return "spectate_updated" }
func (SpectateStopped) Name() string   { return "spectate_stopped" }

func (SessionCreated) sealed()    {}
func (SessionUpdated) sealed()    {}
func (SessionCleared) sealed()    {}
func (DiceResolved) sealed()      {}
func (DiceRollRequested) sealed() {}
func (DiceRollReverted) sealed()  {}
func (TokenRelocated) sealed()    {}
func (TurnAdvanced) sealed()      {}
func (PlayerUpdated) sealed()     {}
func (HistoryArchived) sealed()   {}
func (SpectateStarted) sealed()   {}
func (SpectateUpdated) sealed()   {}
func (SpectateStopped) sealed()   {}
