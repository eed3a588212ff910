package state

import (
	"github.com/wfunc/ludoclient/identity"
	"github.com/wfunc/ludoclient/models"
)

// HistoryCapacity 保留最近归档的对局数
const HistoryCapacity = 10

// Membership 会话成员状态
type Membership string

const (
	MembershipNone   Membership = "none"
	MembershipActive Membership = "active"
)

// SessionState is one immutable snapshot of the client's view of its sessions.
// Snapshots are never mutated after Reduce returns them; every change produces
// a new value. Whose turn it is is deliberately not stored here, see IsMyTurn.
type SessionState struct {
	CurrentGame    *models.Game
	InGame         bool
	AvailableMoves []string
	History        []*models.Game // 最新的在前
	SpectatingGame *models.Game
	Spectating     bool
}

// Initial returns the empty state: no session, no spectating, no history.
func Initial() *SessionState {
	return &SessionState{}
}

// Membership derives NONE/ACTIVE from the snapshot. A game that reached a
// terminal status keeps its snapshot for display but no longer counts as active.
func (s *SessionState) Membership() Membership {
	if s == nil || !s.InGame || s.CurrentGame == nil {
		return MembershipNone
	}
	if s.CurrentGame.Status.IsTerminal() {
		return MembershipNone
	}
	return MembershipActive
}

// IsMyTurn is recomputed from the current game and the given identity on every call.
func (s *SessionState) IsMyTurn(id identity.Identity) bool {
	if s == nil {
		return false
	}
	return IsMyTurn(s.CurrentGame, id)
}

func (s *SessionState) clone() *SessionState {
	c := *s
	return &c
}
