package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wfunc/ludoclient/broadcast"
	"github.com/wfunc/ludoclient/identity"
	"github.com/wfunc/ludoclient/logger"
	"github.com/wfunc/ludoclient/models"
	"github.com/wfunc/ludoclient/network"
	"github.com/wfunc/ludoclient/rules"
	"github.com/wfunc/ludoclient/state"
)

// Transport is the correlated side of the event channel. Request runs apply
// on the ordered event path once the ack arrives, before any event the
// authority pushed after it.
type Transport interface {
	Request(ctx context.Context, event string, payload any, apply func(network.Ack)) (*network.Ack, error)
	Emit(event string, payload any) error
}

const DefaultRequestTimeout = 10 * time.Second

// Controller runs the lifecycle operations against the authority. Each
// operation checks local preconditions, sends one request, waits for its ack
// and only then dispatches into the store. Failures never mutate state, except
// the optimistic roll flag which is reverted on rejection.
type Controller struct {
	store     *Store
	transport Transport
	identity  identity.Provider
	timeout   time.Duration
}

func NewController(store *Store, transport Transport, ids identity.Provider, timeout time.Duration) *Controller {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Controller{
		store:     store,
		transport: transport,
		identity:  ids,
		timeout:   timeout,
	}
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() *state.SessionState {
	return c.store.Snapshot()
}

func (c *Controller) me() identity.Identity {
	if c.identity == nil {
		return identity.Identity{}
	}
	id, _ := c.identity.Current()
	return id
}

func (c *Controller) checkTurn(game *models.Game) error {
	me := c.me()
	if me.ID == "" {
		return ErrNoIdentity
	}
	if !state.IsMyTurn(game, me) {
		return ErrNotYourTurn
	}
	return nil
}

// IsMyTurn is derived from the latest snapshot and identity on every call.
func (c *Controller) IsMyTurn() bool {
	return c.store.Snapshot().IsMyTurn(c.me())
}

func (c *Controller) CurrentPlayer() (models.Player, bool) {
	return state.CurrentPlayer(c.store.Snapshot().CurrentGame)
}

func (c *Controller) MyPlayer() (models.Player, bool) {
	return state.MyPlayer(c.store.Snapshot().CurrentGame, c.me())
}

func (c *Controller) IsGameFinished() bool {
	return state.IsFinished(c.store.Snapshot().CurrentGame)
}

func (c *Controller) CanMoveToken(token models.Token, diceValue int) bool {
	return rules.IsLegalMove(token, diceValue)
}

// MovableTokens prefers the authority's list and falls back to the local
// rules for the rolled value while it is my turn.
func (c *Controller) MovableTokens() []string {
	snap := c.store.Snapshot()
	if len(snap.AvailableMoves) > 0 {
		return snap.AvailableMoves
	}
	if !state.IsMyTurn(snap.CurrentGame, c.me()) {
		return nil
	}
	return state.LegalTokenIDs(snap.CurrentGame)
}

// MustSkip reports a rolled value with no legal move on my turn.
func (c *Controller) MustSkip() bool {
	game := c.store.Snapshot().CurrentGame
	if !state.IsMyTurn(game, c.me()) || game.Dice.Value == 0 || game.Dice.IsRolling {
		return false
	}
	p, _ := state.CurrentPlayer(game)
	return !rules.HasLegalMove(p, game.Dice.Value)
}

// CreateSession asks the authority for a new game and returns its id.
func (c *Controller) CreateSession(ctx context.Context, settings models.GameSettings) (string, error) {
	const op = "create"
	var created adoption
	apply := c.adopt(&created, func(g *models.Game) state.Event { return state.SessionCreated{Game: g} })
	if _, err := c.call(ctx, op, network.EventCreate, createRequest{Settings: settings}, "Failed to create game", apply); err != nil {
		return "", err
	}
	if created.err != nil {
		return "", c.fail(op, "invalid_game", created.err, "Failed to create game")
	}
	logger.Log.Infof("Created game %s (room %s)", created.game.ID, created.game.RoomCode)
	return created.game.ID, nil
}

// JoinSession joins an existing game. password may be empty.
func (c *Controller) JoinSession(ctx context.Context, gameID, password string) error {
	const op = "join"
	if gameID == "" {
		return ErrMissingGameID
	}
	if c.store.Snapshot().Membership() == state.MembershipActive {
		return ErrAlreadyInSession
	}

	var joined adoption
	apply := c.adopt(&joined, func(g *models.Game) state.Event { return state.SessionCreated{Game: g} })
	if _, err := c.call(ctx, op, network.EventJoin, joinRequest{GameID: gameID, Password: password}, "Failed to join game", apply); err != nil {
		return err
	}
	if joined.err != nil {
		return c.fail(op, "invalid_game", joined.err, "Failed to join game")
	}
	logger.Log.Infof("Joined game %s", joined.game.ID)
	return nil
}

// LeaveSession notifies the authority on a best-effort basis and always clears
// the local session afterwards.
func (c *Controller) LeaveSession(ctx context.Context) error {
	const op = "leave"
	game := c.store.Snapshot().CurrentGame
	if game == nil {
		return ErrNoSession
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	start := time.Now()
	ack, err := c.transport.Request(reqCtx, network.EventLeave, gameRef{GameID: game.ID}, nil)
	cancel()
	c.store.monitor.ObserveRequest(op, time.Since(start))

	switch {
	case err != nil:
		c.store.monitor.RequestFailed(op, reason(err))
		logger.Log.Warnf("Failed to leave game %s: %v", game.ID, err)
	case !ack.Success:
		c.store.monitor.RequestFailed(op, "rejected")
		logger.Log.Warnf("Leave of game %s rejected: %s", game.ID, ack.Message)
	}

	c.store.Dispatch(state.SessionCleared{})
	logger.Log.Infof("Left game %s", game.ID)
	return nil
}

// RequestRoll sets the optimistic rolling flag and asks the authority to roll.
// The result itself arrives later as a dice:rolled event.
func (c *Controller) RequestRoll(ctx context.Context) error {
	const op = "roll"
	snap := c.store.Snapshot()
	game := snap.CurrentGame
	if game == nil {
		return ErrNoSession
	}
	if err := c.checkTurn(game); err != nil {
		return err
	}
	if !game.Dice.CanRoll || game.Dice.IsRolling {
		return ErrCannotRoll
	}

	previous := game.Dice.Clone()
	c.store.Dispatch(state.DiceRollRequested{GameID: game.ID})

	_, err := c.call(ctx, op, network.EventRollDice, gameRef{GameID: game.ID}, "Failed to roll dice", nil)
	if err != nil {
		// A timed out roll may still resolve; only the authority clears the flag then.
		if !isTimeout(err) {
			c.store.Dispatch(state.DiceRollReverted{GameID: game.ID, Previous: previous})
		}
		return err
	}
	return nil
}

// RequestMove asks the authority to move tokenID by steps. State changes only
// through the token:moved and turn:changed events that follow.
func (c *Controller) RequestMove(ctx context.Context, tokenID string, steps int) error {
	const op = "move"
	game := c.store.Snapshot().CurrentGame
	if game == nil {
		return ErrNoSession
	}
	if err := c.checkTurn(game); err != nil {
		return err
	}
	me := c.me()
	token, owner, ok := game.FindToken(tokenID)
	if !ok {
		return fmt.Errorf("%s: %w", tokenID, ErrTokenNotFound)
	}
	if game.Players[owner].UserID != me.ID {
		return fmt.Errorf("%s: %w", tokenID, ErrNotYourToken)
	}
	if !rules.IsLegalMove(token, steps) {
		return fmt.Errorf("token %s by %d: %w", tokenID, steps, ErrIllegalMove)
	}

	_, err := c.call(ctx, op, network.EventMoveToken, moveRequest{GameID: game.ID, TokenID: tokenID, Steps: steps}, "Invalid move", nil)
	return err
}

// RequestSkipTurn gives up the current turn.
func (c *Controller) RequestSkipTurn(ctx context.Context) error {
	const op = "skip"
	game := c.store.Snapshot().CurrentGame
	if game == nil {
		return ErrNoSession
	}
	if err := c.checkTurn(game); err != nil {
		return err
	}
	_, err := c.call(ctx, op, network.EventSkipTurn, gameRef{GameID: game.ID}, "Failed to skip turn", nil)
	return err
}

// Spectate starts watching gameID. It is independent of the current session.
func (c *Controller) Spectate(ctx context.Context, gameID string) error {
	const op = "spectate"
	if gameID == "" {
		return ErrMissingGameID
	}
	var watched adoption
	apply := c.adopt(&watched, func(g *models.Game) state.Event { return state.SpectateStarted{Game: g} })
	if _, err := c.call(ctx, op, network.EventSpectate, gameRef{GameID: gameID}, "Failed to spectate game", apply); err != nil {
		return err
	}
	if watched.err != nil {
		return c.fail(op, "invalid_game", watched.err, "Failed to spectate game")
	}
	return nil
}

// StopSpectating tells the authority without waiting and clears the slot.
func (c *Controller) StopSpectating() error {
	game := c.store.Snapshot().SpectatingGame
	if game == nil {
		return ErrNotSpectating
	}
	if err := c.transport.Emit(network.EventStopSpectating, gameRef{GameID: game.ID}); err != nil {
		c.store.monitor.RequestFailed("stop_spectating", reason(err))
		logger.Log.Warnf("Failed to notify stop spectating %s: %v", game.ID, err)
	}
	c.store.Dispatch(state.SpectateStopped{})
	return nil
}

// adoption is the game carried by a successful create, join or spectate ack.
type adoption struct {
	game *models.Game
	err  error
}

// adopt decodes the game of a successful ack into a and dispatches the event
// built from it. It runs on the ordered event path.
func (c *Controller) adopt(a *adoption, event func(*models.Game) state.Event) func(network.Ack) {
	return func(ack network.Ack) {
		if !ack.Success {
			return
		}
		if a.game, a.err = decodeGame(ack.Data); a.err == nil {
			c.store.Dispatch(event(a.game))
		}
	}
}

// call performs one correlated request with the controller's timeout. Channel
// failures and rejections are surfaced to the user before being returned.
func (c *Controller) call(ctx context.Context, op, event string, payload any, failMsg string, apply func(network.Ack)) (*network.Ack, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	ack, err := c.transport.Request(reqCtx, event, payload, apply)
	c.store.monitor.ObserveRequest(op, time.Since(start))

	if err != nil {
		return nil, c.fail(op, reason(err), fmt.Errorf("%s: %w", op, err), failMsg)
	}
	if !ack.Success {
		msg := ack.Message
		if msg == "" {
			msg = failMsg
		}
		return nil, c.fail(op, "rejected", &RejectionError{Op: op, Message: msg}, failMsg)
	}
	return ack, nil
}

func (c *Controller) fail(op, why string, err error, failMsg string) error {
	c.store.monitor.RequestFailed(op, why)
	logger.Log.Warnf("%s failed: %v", op, err)

	var rej *RejectionError
	if errors.As(err, &rej) {
		c.store.notify(broadcast.LevelError, rej.Message)
	} else {
		c.store.notify(broadcast.LevelError, fmt.Sprintf("%s: %v", failMsg, errors.Unwrap(err)))
	}
	return err
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

func reason(err error) string {
	switch {
	case isTimeout(err):
		return "timeout"
	case errors.Is(err, network.ErrClosed):
		return "closed"
	case errors.Is(err, ErrInvalidGame):
		return "invalid_game"
	}
	return "channel"
}
