package client

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/wfunc/ludoclient/broadcast"
	"github.com/wfunc/ludoclient/config"
	"github.com/wfunc/ludoclient/identity"
	"github.com/wfunc/ludoclient/logger"
	"github.com/wfunc/ludoclient/monitor"
	"github.com/wfunc/ludoclient/network"
	"github.com/wfunc/ludoclient/persistence"
	"github.com/wfunc/ludoclient/rpc"
	"github.com/wfunc/ludoclient/services"
	"github.com/wfunc/ludoclient/session"
	"github.com/wfunc/ludoclient/state"
	"github.com/wfunc/ludoclient/timer"
)

// Client wires one session to one authority connection.
type Client struct {
	cfg        *config.Config
	hub        *broadcast.Hub
	monitor    *monitor.Monitor
	identity   *identity.Holder
	store      *session.Store
	db         persistence.Database
	history    *services.HistoryService
	timers     *timer.TimerManager
	channel    *network.Channel
	controller *session.Controller
	rpcServer  *rpc.Server
	metrics    *http.Server
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mutex      sync.Mutex
}

// New builds the local side: store, history and identity. Nothing touches the
// network until Connect.
func New(cfg *config.Config) (*Client, error) {
	resolution := timer.DefaultResolution
	if hb := cfg.Server.HeartbeatInterval; hb > 0 && hb/4 < resolution {
		resolution = hb / 4
	}
	c := &Client{
		cfg:      cfg,
		hub:      broadcast.NewHub(),
		identity: identity.NewHolder(),
		timers:   timer.NewTimerManagerWithResolution(resolution),
	}
	if cfg.Identity.ID != "" {
		c.identity.Set(identity.Identity{ID: cfg.Identity.ID, UserID: cfg.Identity.UserID})
	}
	if cfg.Metrics.Enabled {
		c.monitor = monitor.NewMonitor(cfg.Metrics.Namespace)
	}
	c.store = session.NewStore(c.hub, c.monitor)

	db, err := persistence.Open(cfg.History)
	if err != nil {
		c.timers.Stop()
		return nil, err
	}
	if db != nil {
		c.db = db
		c.history = services.NewHistoryService(db)
		c.preloadHistory()
	}
	return c, nil
}

func (c *Client) preloadHistory() {
	if c.cfg.History.Preload <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	games, err := c.history.Recent(ctx, c.cfg.History.Preload)
	if err != nil {
		logger.Log.Warnf("Failed to preload history: %v", err)
		return
	}
	c.store.LoadHistory(games)
	logger.Log.Infof("Loaded %d archived games", len(games))
}

// Connect dials the authority and starts the event pipeline.
func (c *Client) Connect(ctx context.Context) error {
	logger.Log.Infof("Connecting to %s", c.cfg.Server.URL)
	conn, err := network.Dial(c.cfg.Server.URL, nil, c.cfg.Server.RequestTimeout)
	if err != nil {
		return err
	}
	logger.Log.Infof("Connected to %s", conn.RemoteAddr())
	c.Attach(ctx, conn)
	return nil
}

// Attach runs the pipeline over an existing connection. With a heartbeat
// interval set, an authority that stays silent for two intervals drops the
// connection.
func (c *Client) Attach(ctx context.Context, conn network.Connection) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	interval := c.cfg.Server.HeartbeatInterval
	if interval > 0 {
		conn.SetHeartbeat(interval)
	}

	ctx, c.cancel = context.WithCancel(ctx)
	c.channel = network.NewChannel(conn, c.cfg.Server.EventBuffer)

	var recorder session.HistoryRecorder
	if c.history != nil {
		recorder = c.history
	}
	c.controller = session.NewController(c.store, c.channel, c.identity, c.cfg.Server.RequestTimeout)
	binder := session.NewBinder(c.store, c.identity, recorder)

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		if err := c.channel.Run(); err != nil {
			logger.Log.Errorf("Connection lost: %v", err)
			c.hub.Notify(broadcast.Notice{Level: broadcast.LevelError, Message: "Connection to server lost"})
		}
	}()
	go func() {
		defer c.wg.Done()
		binder.Run(ctx, c.channel.Inbound())
	}()

	if interval > 0 {
		channel := c.channel
		c.timers.AddTimer(interval, interval, func() {
			if err := channel.Heartbeat(); err != nil {
				logger.Log.Debugf("Heartbeat failed: %v", err)
			}
		})
	}
}

// StartServices brings up the optional RPC and metrics endpoints.
func (c *Client) StartServices() error {
	if addr := c.cfg.RPC.Address; addr != "" {
		var archive rpc.Archive
		if c.history != nil {
			archive = c.history
		}
		srv, err := rpc.NewServer(addr, rpc.NewSessionService(c, archive))
		if err != nil {
			return err
		}
		c.rpcServer = srv
		go srv.Start()
	}
	if c.monitor != nil {
		c.metrics = c.monitor.StartServer(c.cfg.Metrics.Address)
	}
	return nil
}

// Controller returns the lifecycle controller, or nil before Connect.
func (c *Client) Controller() *session.Controller {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.controller
}

// Subscribe delivers every snapshot and notice.
func (c *Client) Subscribe(buffer int) (<-chan broadcast.Update, func()) {
	return c.hub.Subscribe(buffer)
}

func (c *Client) Identity() *identity.Holder {
	return c.identity
}

// Snapshot works before Connect too, e.g. to show preloaded history.
func (c *Client) Snapshot() *state.SessionState {
	return c.store.Snapshot()
}

func (c *Client) IsMyTurn() bool {
	return c.store.Snapshot().IsMyTurn(c.me())
}

func (c *Client) me() identity.Identity {
	id, _ := c.identity.Current()
	return id
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.channel == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return c.channel.Done()
}

// Close leaves any active session and releases every resource.
func (c *Client) Close() {
	if ctrl := c.Controller(); ctrl != nil && ctrl.Snapshot().CurrentGame != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		ctrl.LeaveSession(ctx)
		cancel()
	}

	c.timers.Stop()

	c.mutex.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	if c.channel != nil {
		c.channel.Close()
	}
	c.mutex.Unlock()
	c.wg.Wait()

	if c.rpcServer != nil {
		c.rpcServer.Stop()
	}
	if c.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		c.metrics.Shutdown(ctx)
		cancel()
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			logger.Log.Warnf("Failed to close history store: %v", err)
		}
	}
}
