package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/wfunc/ludoclient/broadcast"
	"github.com/wfunc/ludoclient/identity"
	"github.com/wfunc/ludoclient/models"
	"github.com/wfunc/ludoclient/network"
	"github.com/wfunc/ludoclient/state"
)

var seatColors = []models.PlayerColor{models.ColorRed, models.ColorBlue, models.ColorGreen, models.ColorYellow}

func newTestGame(id string, n int) *models.Game {
	g := &models.Game{
		ID:       id,
		RoomCode: "ROOM-" + id,
		Status:   models.StatusPlaying,
		Dice:     models.DiceState{CanRoll: true, RollHistory: []int{}},
	}
	for i := 0; i < n; i++ {
		pid := fmt.Sprintf("p%d", i)
		p := models.Player{
			ID:          pid,
			UserID:      fmt.Sprintf("user-%d", i),
			Username:    fmt.Sprintf("player%d", i),
			Color:       seatColors[i],
			IsConnected: true,
		}
		for j := 0; j < models.TokensPerPlayer; j++ {
			p.Tokens = append(p.Tokens, models.Token{
				ID:       fmt.Sprintf("%s-t%d", pid, j),
				PlayerID: pid,
				Color:    p.Color,
				IsHome:   true,
			})
		}
		g.Players = append(g.Players, p)
	}
	return g
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}

type requestHandler func(ctx context.Context, payload any) (*network.Ack, error)

// MockTransport answers requests from per-event handlers; events without a
// handler get a bare success ack.
type MockTransport struct {
	mutex    sync.Mutex
	handlers map[string]requestHandler
	requests []string
	emits    []string
}

func NewMockTransport() *MockTransport {
	return &MockTransport{handlers: make(map[string]requestHandler)}
}

func (m *MockTransport) On(event string, h requestHandler) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.handlers[event] = h
}

func (m *MockTransport) Request(ctx context.Context, event string, payload any, apply func(network.Ack)) (*network.Ack, error) {
	m.mutex.Lock()
	m.requests = append(m.requests, event)
	h := m.handlers[event]
	m.mutex.Unlock()

	ack := &network.Ack{Success: true}
	if h != nil {
		var err error
		if ack, err = h(ctx, payload); err != nil {
			return nil, err
		}
	}
	if apply != nil {
		apply(*ack)
	}
	return ack, nil
}

func (m *MockTransport) Emit(event string, payload any) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.emits = append(m.emits, event)
	return nil
}

func (m *MockTransport) Requests() []string {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append([]string(nil), m.requests...)
}

func (m *MockTransport) Emits() []string {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append([]string(nil), m.emits...)
}

// MockBroadcaster records everything published by the store.
type MockBroadcaster struct {
	mutex   sync.Mutex
	states  []*state.SessionState
	notices []broadcast.Notice
}

func (m *MockBroadcaster) PublishState(s *state.SessionState) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.states = append(m.states, s)
}

func (m *MockBroadcaster) Notify(n broadcast.Notice) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.notices = append(m.notices, n)
}

func (m *MockBroadcaster) Notices() []broadcast.Notice {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append([]broadcast.Notice(nil), m.notices...)
}

func (m *MockBroadcaster) LastNotice() (broadcast.Notice, bool) {
	notices := m.Notices()
	if len(notices) == 0 {
		return broadcast.Notice{}, false
	}
	return notices[len(notices)-1], true
}

type fixture struct {
	store      *Store
	transport  *MockTransport
	broadcast  *MockBroadcaster
	ids        *identity.Holder
	controller *Controller
	binder     *Binder
}

// newFixture wires a controller and binder for local user "user-0".
func newFixture() *fixture {
	f := &fixture{
		transport: NewMockTransport(),
		broadcast: &MockBroadcaster{},
		ids:       identity.NewStatic(identity.Identity{ID: "user-0", UserID: "user-0"}),
	}
	f.store = NewStore(f.broadcast, nil)
	f.controller = NewController(f.store, f.transport, f.ids, 0)
	f.binder = NewBinder(f.store, f.ids, nil)
	return f
}

// seat puts g into the store as the current session.
func (f *fixture) seat(g *models.Game) {
	f.store.Dispatch(state.SessionCreated{Game: g})
}

func (f *fixture) push(t *testing.T, event string, payload any) {
	t.Helper()
	f.binder.Handle(context.Background(), network.Inbound{Name: event, Data: mustJSON(t, payload)})
}
