package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wfunc/ludoclient/broadcast"
	"github.com/wfunc/ludoclient/identity"
	"github.com/wfunc/ludoclient/logger"
	"github.com/wfunc/ludoclient/models"
	"github.com/wfunc/ludoclient/network"
	"github.com/wfunc/ludoclient/state"
)

// HistoryRecorder persists games that reached a terminal status.
type HistoryRecorder interface {
	Archive(ctx context.Context, game *models.Game) error
}

// Binder turns events pushed by the authority into reducer events.
type Binder struct {
	store    *Store
	identity identity.Provider
	history  HistoryRecorder
}

// NewBinder creates a binder. history may be nil.
func NewBinder(store *Store, ids identity.Provider, history HistoryRecorder) *Binder {
	return &Binder{store: store, identity: ids, history: history}
}

// Run applies inbound events in arrival order until the stream closes or ctx ends.
func (b *Binder) Run(ctx context.Context, inbound <-chan network.Inbound) {
	for {
		select {
		case <-ctx.Done():
			return
		case in, ok := <-inbound:
			if !ok {
				return
			}
			b.Handle(ctx, in)
		}
	}
}

// Handle applies one inbound event. Acks are settled in place so a request's
// continuation lands before anything pushed after it. Malformed or unknown
// events are dropped.
func (b *Binder) Handle(ctx context.Context, in network.Inbound) {
	if in.Settle() {
		return
	}
	var err error
	switch in.Name {
	case network.EventGameUpdate:
		err = b.onGameUpdate(in.Data)
	case network.EventGameStart:
		err = b.onGameStart(in.Data)
	case network.EventGameEnd:
		err = b.onGameEnd(ctx, in.Data)
	case network.EventPlayerJoined:
		err = b.onPlayerPresence(in.Data, true)
	case network.EventPlayerLeft:
		err = b.onPlayerPresence(in.Data, false)
	case network.EventDiceRolled:
		var p diceRolledPayload
		if err = json.Unmarshal(in.Data, &p); err == nil {
			b.store.Dispatch(state.DiceResolved{Value: p.Value, RollerID: p.PlayerID})
		}
	case network.EventTokenMoved:
		var p tokenMovedPayload
		if err = json.Unmarshal(in.Data, &p); err == nil {
			b.store.Dispatch(state.TokenRelocated{TokenID: p.TokenID, NewPosition: p.NewPosition})
		}
	case network.EventTurnChanged:
		err = b.onTurnChanged(in.Data)
	case network.EventGameError:
		var msg string
		if err = json.Unmarshal(in.Data, &msg); err == nil {
			b.store.notify(broadcast.LevelError, msg)
		}
	default:
		err = fmt.Errorf("unknown event %q", in.Name)
	}

	if err != nil {
		b.store.monitor.EventIgnored(in.Name)
		logger.Log.Debugf("Ignoring %s: %v", in.Name, err)
	}
}

func (b *Binder) onGameUpdate(data json.RawMessage) error {
	var patch models.GamePatch
	if err := json.Unmarshal(data, &patch); err != nil {
		return err
	}
	if b.isSpectated(patch.ID) {
		b.store.Dispatch(state.SpectateUpdated{Patch: patch})
		return nil
	}
	b.store.Dispatch(state.SessionUpdated{Patch: patch})
	return nil
}

func (b *Binder) onTurnChanged(data json.RawMessage) error {
	var p turnChangedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var tokens []models.Token
	if game := b.store.Snapshot().CurrentGame; game != nil && p.CurrentPlayer >= 0 && p.CurrentPlayer < len(game.Players) {
		tokens = game.Players[p.CurrentPlayer].Tokens
	}
	moves, err := decodeMoves(p.AvailableMoves, tokens)
	if err != nil {
		// 回合索引仍然有效
		logger.Log.Debugf("Ignoring available moves of turn:changed: %v", err)
		moves = nil
	}
	b.store.Dispatch(state.TurnAdvanced{PlayerIndex: p.CurrentPlayer, LegalMoves: moves})
	return nil
}

func (b *Binder) onGameStart(data json.RawMessage) error {
	game, err := decodeGame(data)
	if err != nil {
		return err
	}
	if b.isSpectated(game.ID) {
		b.store.Dispatch(state.SpectateStarted{Game: game})
		return nil
	}
	b.store.Dispatch(state.SessionCreated{Game: game})
	b.store.notify(broadcast.LevelSuccess, "Game started!")
	return nil
}

func (b *Binder) onGameEnd(ctx context.Context, data json.RawMessage) error {
	game, err := decodeGame(data)
	if err != nil {
		return err
	}
	if b.isSpectated(game.ID) {
		b.store.Dispatch(state.SpectateUpdated{Patch: models.PatchFromGame(game)})
		return nil
	}
	if !b.isCurrent(game.ID) {
		return fmt.Errorf("game %s is not the current game", game.ID)
	}

	b.store.Dispatch(state.SessionUpdated{Patch: models.PatchFromGame(game)})
	b.store.Dispatch(state.HistoryArchived{Game: game})
	if b.history != nil && game.Status.IsTerminal() {
		if err := b.history.Archive(ctx, game); err != nil {
			logger.Log.Errorf("Failed to archive game %s: %v", game.ID, err)
		}
	}

	if game.Winner != "" {
		b.store.notify(b.winnerNotice(game))
	}
	return nil
}

func (b *Binder) winnerNotice(game *models.Game) (broadcast.NoticeLevel, string) {
	winner, ok := game.PlayerByID(game.Winner)
	var me identity.Identity
	if b.identity != nil {
		me, _ = b.identity.Current()
	}
	if ok && me.ID != "" && winner.UserID == me.ID {
		return broadcast.LevelSuccess, "Congratulations! You won!"
	}
	name := winner.Username
	if name == "" {
		name = "Someone"
	}
	return broadcast.LevelInfo, fmt.Sprintf("%s won the game!", name)
}

func (b *Binder) onPlayerPresence(data json.RawMessage, connected bool) error {
	var player models.Player
	if err := json.Unmarshal(data, &player); err != nil {
		return err
	}
	b.store.Dispatch(state.PlayerUpdated{
		PlayerID: player.ID,
		Patch:    models.PlayerPatch{IsConnected: &connected},
	})

	verb := "left"
	if connected {
		verb = "joined"
	}
	b.store.notify(broadcast.LevelInfo, fmt.Sprintf("%s %s the game", player.Username, verb))
	return nil
}

func (b *Binder) isCurrent(gameID string) bool {
	game := b.store.Snapshot().CurrentGame
	return game != nil && game.ID == gameID
}

// isSpectated reports whether gameID addresses the spectated game rather than the current one.
func (b *Binder) isSpectated(gameID string) bool {
	if gameID == "" {
		return false
	}
	snap := b.store.Snapshot()
	if snap.SpectatingGame == nil || snap.SpectatingGame.ID != gameID {
		return false
	}
	return snap.CurrentGame == nil || snap.CurrentGame.ID != gameID
}
