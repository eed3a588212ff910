package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/wfunc/ludoclient/broadcast"
	"github.com/wfunc/ludoclient/models"
	"github.com/wfunc/ludoclient/network"
	"github.com/wfunc/ludoclient/state"
)

type MockRecorder struct {
	mutex sync.Mutex
	games []*models.Game
	err   error
}

func (m *MockRecorder) Archive(_ context.Context, game *models.Game) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.games = append(m.games, game)
	return m.err
}

func TestBinder_GameStart(t *testing.T) {
	f := newFixture()
	f.push(t, network.EventGameStart, newTestGame("g1", 2))

	snap := f.store.Snapshot()
	if snap.Membership() != state.MembershipActive || snap.CurrentGame.ID != "g1" {
		t.Fatalf("expected g1 active, got %+v", snap)
	}
	if n, _ := f.broadcast.LastNotice(); n.Level != broadcast.LevelSuccess || n.Message != "Game started!" {
		t.Errorf("unexpected notice %+v", n)
	}
}

func TestBinder_TokenAndTurn(t *testing.T) {
	f := newFixture()
	g := newTestGame("g1", 2)
	g.Players[0].Tokens[0].IsHome = false
	g.Players[0].Tokens[0].Position = 3
	f.seat(g)

	f.push(t, network.EventTokenMoved, tokenMovedPayload{TokenID: "p0-t0", NewPosition: 9})
	f.push(t, network.EventTurnChanged, map[string]any{"currentPlayer": 1, "availableMoves": []string{"p1-t0"}})

	snap := f.store.Snapshot()
	if pos := snap.CurrentGame.Players[0].Tokens[0].Position; pos != 9 {
		t.Errorf("expected position 9, got %d", pos)
	}
	if snap.CurrentGame.CurrentPlayer != 1 {
		t.Errorf("expected turn to pass to seat 1, got %d", snap.CurrentGame.CurrentPlayer)
	}
	if len(snap.AvailableMoves) != 1 || snap.AvailableMoves[0] != "p1-t0" {
		t.Errorf("unexpected available moves %v", snap.AvailableMoves)
	}
	me, _ := f.ids.Current()
	if snap.IsMyTurn(me) {
		t.Error("turn belongs to user-1 now")
	}
}

func TestBinder_TurnWithIndexedMoves(t *testing.T) {
	f := newFixture()
	f.seat(newTestGame("g1", 2))

	f.push(t, network.EventTurnChanged, json.RawMessage(`{"currentPlayer":1,"availableMoves":[0,2,7]}`))
	snap := f.store.Snapshot()
	if snap.CurrentGame.CurrentPlayer != 1 {
		t.Fatalf("expected turn to pass to seat 1, got %d", snap.CurrentGame.CurrentPlayer)
	}
	want := []string{"p1-t0", "p1-t2", "7"}
	if len(snap.AvailableMoves) != len(want) {
		t.Fatalf("expected moves %v, got %v", want, snap.AvailableMoves)
	}
	for i := range want {
		if snap.AvailableMoves[i] != want[i] {
			t.Errorf("move %d: expected %s, got %s", i, want[i], snap.AvailableMoves[i])
		}
	}
}

func TestBinder_TurnKeptWhenMovesMalformed(t *testing.T) {
	f := newFixture()
	f.seat(newTestGame("g1", 2))

	f.push(t, network.EventTurnChanged, json.RawMessage(`{"currentPlayer":1,"availableMoves":[{"x":1},1.5]}`))
	snap := f.store.Snapshot()
	if snap.CurrentGame.CurrentPlayer != 1 {
		t.Errorf("a bad moves list must not drop the turn, got seat %d", snap.CurrentGame.CurrentPlayer)
	}
	if len(snap.AvailableMoves) != 0 {
		t.Errorf("expected no available moves, got %v", snap.AvailableMoves)
	}

	f.push(t, network.EventTurnChanged, json.RawMessage(`{"currentPlayer":0,"availableMoves":"p0-t0"}`))
	if seat := f.store.Snapshot().CurrentGame.CurrentPlayer; seat != 0 {
		t.Errorf("expected turn back at seat 0, got %d", seat)
	}
}

func TestBinder_TurnOutOfRangeIgnored(t *testing.T) {
	f := newFixture()
	f.seat(newTestGame("g1", 2))
	before := f.store.Snapshot()

	f.push(t, network.EventTurnChanged, turnChangedPayload{CurrentPlayer: 5})
	if f.store.Snapshot() != before {
		t.Error("out of range turn must be dropped")
	}
}

func TestBinder_GameUpdateRouting(t *testing.T) {
	f := newFixture()
	f.seat(newTestGame("g1", 2))
	f.store.Dispatch(state.SpectateStarted{Game: newTestGame("g2", 2)})

	paused := models.StatusPaused
	f.push(t, network.EventGameUpdate, models.GamePatch{ID: "g2", Status: &paused})
	snap := f.store.Snapshot()
	if snap.SpectatingGame.Status != models.StatusPaused {
		t.Errorf("spectated game should be updated, got %s", snap.SpectatingGame.Status)
	}
	if snap.CurrentGame.Status != models.StatusPlaying {
		t.Errorf("current game must be untouched, got %s", snap.CurrentGame.Status)
	}

	f.push(t, network.EventGameUpdate, models.GamePatch{ID: "g1", Status: &paused})
	if f.store.Snapshot().CurrentGame.Status != models.StatusPaused {
		t.Error("current game should be updated")
	}

	before := f.store.Snapshot()
	f.push(t, network.EventGameUpdate, models.GamePatch{ID: "other", Status: &paused})
	if f.store.Snapshot() != before {
		t.Error("update for an unrelated game must be dropped")
	}
}

func TestBinder_GameEndMyWin(t *testing.T) {
	f := newFixture()
	rec := &MockRecorder{}
	f.binder = NewBinder(f.store, f.ids, rec)
	g := newTestGame("g1", 2)
	f.seat(g)

	ended := g.Clone()
	ended.Status = models.StatusFinished
	ended.Winner = "p0"
	f.push(t, network.EventGameEnd, ended)

	snap := f.store.Snapshot()
	if snap.CurrentGame.Status != models.StatusFinished || snap.Membership() != state.MembershipNone {
		t.Errorf("expected finished game and membership none, got %+v", snap)
	}
	if len(snap.History) != 1 || snap.History[0].ID != "g1" {
		t.Errorf("expected g1 in history, got %v", snap.History)
	}
	if len(rec.games) != 1 {
		t.Errorf("expected game archived once, got %d", len(rec.games))
	}
	if n, _ := f.broadcast.LastNotice(); n.Level != broadcast.LevelSuccess || n.Message != "Congratulations! You won!" {
		t.Errorf("unexpected notice %+v", n)
	}
}

func TestBinder_GameEndOtherWinner(t *testing.T) {
	f := newFixture()
	f.binder = NewBinder(f.store, f.ids, &MockRecorder{err: errors.New("disk full")})
	g := newTestGame("g1", 2)
	g.Players[1].Username = "Alice"
	f.seat(g)

	ended := g.Clone()
	ended.Status = models.StatusFinished
	ended.Winner = "p1"
	f.push(t, network.EventGameEnd, ended)

	if n, _ := f.broadcast.LastNotice(); n.Level != broadcast.LevelInfo || n.Message != "Alice won the game!" {
		t.Errorf("unexpected notice %+v", n)
	}
	if len(f.store.Snapshot().History) != 1 {
		t.Error("archive failure must not affect in-memory history")
	}
}

func TestBinder_GameEndForOtherGameIgnored(t *testing.T) {
	f := newFixture()
	rec := &MockRecorder{}
	f.binder = NewBinder(f.store, f.ids, rec)
	f.seat(newTestGame("g2", 2))
	before := f.store.Snapshot()
	notices := len(f.broadcast.Notices())

	left := newTestGame("g1", 2)
	left.Status = models.StatusFinished
	left.Winner = "p1"
	f.push(t, network.EventGameEnd, left)

	if f.store.Snapshot() != before {
		t.Error("end of a game that is not current must leave state untouched")
	}
	if len(rec.games) != 0 {
		t.Errorf("expected nothing archived, got %d", len(rec.games))
	}
	if got := len(f.broadcast.Notices()); got != notices {
		t.Errorf("expected no winner notice, got %d new notices", got-notices)
	}

	f.store.Dispatch(state.SessionCleared{})
	f.push(t, network.EventGameEnd, left)
	if len(f.store.Snapshot().History) != 0 || len(rec.games) != 0 {
		t.Error("end of a game after leaving must not be archived")
	}
}

func TestBinder_PlayerPresence(t *testing.T) {
	f := newFixture()
	f.seat(newTestGame("g1", 2))

	f.push(t, network.EventPlayerLeft, models.Player{ID: "p1", Username: "player1"})
	p, _ := f.store.Snapshot().CurrentGame.PlayerByID("p1")
	if p.IsConnected {
		t.Error("expected p1 disconnected")
	}
	if n, _ := f.broadcast.LastNotice(); n.Message != "player1 left the game" {
		t.Errorf("unexpected notice %+v", n)
	}

	f.push(t, network.EventPlayerJoined, models.Player{ID: "p1", Username: "player1"})
	p, _ = f.store.Snapshot().CurrentGame.PlayerByID("p1")
	if !p.IsConnected {
		t.Error("expected p1 connected again")
	}
}

func TestBinder_GameError(t *testing.T) {
	f := newFixture()
	f.push(t, network.EventGameError, "Server restarting")
	if n, _ := f.broadcast.LastNotice(); n.Level != broadcast.LevelError || n.Message != "Server restarting" {
		t.Errorf("unexpected notice %+v", n)
	}
}

func TestBinder_IgnoresBadInput(t *testing.T) {
	f := newFixture()
	f.seat(newTestGame("g1", 2))
	before := f.store.Snapshot()

	f.binder.Handle(context.Background(), network.Inbound{Name: "game:unknown", Data: json.RawMessage(`{}`)})
	f.binder.Handle(context.Background(), network.Inbound{Name: network.EventDiceRolled, Data: json.RawMessage(`{"value":`)})
	f.binder.Handle(context.Background(), network.Inbound{Name: network.EventGameStart, Data: json.RawMessage(`{"id":""}`)})

	if f.store.Snapshot() != before {
		t.Error("bad events must leave state untouched")
	}
}

func TestBinder_RunStopsWhenStreamCloses(t *testing.T) {
	f := newFixture()
	in := make(chan network.Inbound, 2)
	in <- network.Inbound{Name: network.EventGameStart, Data: mustJSON(t, newTestGame("g1", 2))}
	close(in)

	done := make(chan struct{})
	go func() {
		f.binder.Run(context.Background(), in)
		close(done)
	}()
	<-done

	if f.store.Snapshot().CurrentGame == nil {
		t.Error("queued event should be applied before Run returns")
	}
}
