package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"

	"github.com/wfunc/ludoclient/logger"
	"github.com/wfunc/ludoclient/models"
	"github.com/wfunc/ludoclient/state"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	server   *rpc.Server
}

// NewServer listens on addr and registers the given receivers on a private
// rpc.Server, so several clients in one process do not collide.
func NewServer(addr string, receivers ...any) (*Server, error) {
	server := rpc.NewServer()
	for _, r := range receivers {
		if err := server.Register(r); err != nil {
			return nil, err
		}
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		server:   server,
	}, nil
}

// Addr is the bound address, useful when listening on port 0.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Start accepts connections until Stop is called.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.Addr())
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.server.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// SessionSource is the read side of the session controller.
type SessionSource interface {
	Snapshot() *state.SessionState
	IsMyTurn() bool
}

// Archive reads persisted games.
type Archive interface {
	Recent(ctx context.Context, limit int) ([]*models.Game, error)
}

// SessionService exposes read-only session queries to local tools.
type SessionService struct {
	session SessionSource
	archive Archive
}

// NewSessionService creates the service. archive may be nil.
func NewSessionService(session SessionSource, archive Archive) *SessionService {
	return &SessionService{session: session, archive: archive}
}

type SnapshotArgs struct {
	WithHistory bool
}

type SnapshotReply struct {
	Membership     string
	IsMyTurn       bool
	CurrentGame    *models.Game
	AvailableMoves []string
	Spectating     bool
	SpectatingGame *models.Game
	History        []*models.Game
}

// Snapshot returns the current session state.
// Signature follows net/rpc: exported args, pointer reply, error result.
func (ss *SessionService) Snapshot(args *SnapshotArgs, reply *SnapshotReply) error {
	snap := ss.session.Snapshot()
	reply.Membership = string(snap.Membership())
	reply.IsMyTurn = ss.session.IsMyTurn()
	reply.CurrentGame = snap.CurrentGame
	reply.AvailableMoves = snap.AvailableMoves
	reply.Spectating = snap.Spectating
	reply.SpectatingGame = snap.SpectatingGame
	if args.WithHistory {
		reply.History = snap.History
	}
	return nil
}

type HistoryArgs struct {
	Limit    int
	Archived bool // 读持久化存储而不是内存中的最近记录
}

type HistoryReply struct {
	Games []*models.Game
}

// History returns finished games, most recent first.
func (ss *SessionService) History(args *HistoryArgs, reply *HistoryReply) error {
	limit := args.Limit
	if limit <= 0 {
		limit = state.HistoryCapacity
	}

	if args.Archived {
		if ss.archive == nil {
			return errors.New("history archive is not configured")
		}
		games, err := ss.archive.Recent(context.Background(), limit)
		if err != nil {
			return err
		}
		reply.Games = games
		return nil
	}

	history := ss.session.Snapshot().History
	if len(history) > limit {
		history = history[:limit]
	}
	reply.Games = history
	return nil
}
