package session

import (
	"sync"

	"github.com/wfunc/ludoclient/broadcast"
	"github.com/wfunc/ludoclient/models"
	"github.com/wfunc/ludoclient/monitor"
	"github.com/wfunc/ludoclient/state"
)

// Store owns the canonical snapshot. Every change goes through Dispatch, which
// applies events one at a time; readers get immutable snapshots.
type Store struct {
	mutex       sync.Mutex
	state       *state.SessionState
	broadcaster broadcast.Broadcaster
	monitor     *monitor.Monitor
}

// NewStore creates a store. broadcaster and m may be nil.
func NewStore(broadcaster broadcast.Broadcaster, m *monitor.Monitor) *Store {
	return &Store{
		state:       state.Initial(),
		broadcaster: broadcaster,
		monitor:     m,
	}
}

// Dispatch reduces e into the current snapshot and returns the result.
func (s *Store) Dispatch(e state.Event) *state.SessionState {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if e == nil {
		return s.state
	}

	prev := s.state
	next := state.Reduce(prev, e)
	if next == prev {
		s.monitor.EventIgnored(e.Name())
		return prev
	}

	s.state = next
	s.monitor.EventApplied(e.Name())
	s.monitor.SetMembership(next.Membership() == state.MembershipActive, next.Spectating)
	if s.broadcaster != nil {
		s.broadcaster.PublishState(next)
	}
	return next
}

// Snapshot returns the current immutable snapshot.
func (s *Store) Snapshot() *state.SessionState {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.state
}

// LoadHistory replays archived games, given most recent first, into the history.
func (s *Store) LoadHistory(games []*models.Game) {
	for i := len(games) - 1; i >= 0; i-- {
		s.Dispatch(state.HistoryArchived{Game: games[i]})
	}
}

func (s *Store) notify(level broadcast.NoticeLevel, msg string) {
	if s.broadcaster != nil {
		s.broadcaster.Notify(broadcast.Notice{Level: level, Message: msg})
	}
}
