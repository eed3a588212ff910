// network/channel.go
package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/wfunc/ludoclient/logger"
)

var (
	ErrClosed       = errors.New("event channel closed")
	ErrTimeout      = fmt.Errorf("request timed out: %w", context.DeadlineExceeded)
	ErrUnknownEvent = errors.New("unknown event name")
)

// Envelope 帧载荷；请求与对应的 ack 共享 ID
type Envelope struct {
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Ack 权威服务器对请求的应答
type Ack struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Inbound is one event pushed by the authority, or an ack waiting to be settled.
type Inbound struct {
	Name string
	Data json.RawMessage

	settle func()
}

// Settle completes the request an ack answers: its continuation runs on the
// calling goroutine and the waiting Request is released. It reports false for
// pushed events.
func (in Inbound) Settle() bool {
	if in.settle == nil {
		return false
	}
	in.settle()
	return true
}

const (
	callWaiting = iota
	callSettled
	callAbandoned
)

// call is one outstanding request.
type call struct {
	event string
	done  chan Ack
	apply func(Ack)
	mutex sync.Mutex
	state int
}

func (r *call) settle(ack Ack) {
	r.mutex.Lock()
	if r.state == callAbandoned {
		r.mutex.Unlock()
		logger.Log.Debugf("Dropping ack for abandoned %s", r.event)
		return
	}
	r.state = callSettled
	r.mutex.Unlock()

	if r.apply != nil {
		r.apply(ack)
	}
	r.done <- ack
}

// abandon reports false when settling already started.
func (r *call) abandon() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.state == callSettled {
		return false
	}
	r.state = callAbandoned
	return true
}

// Channel multiplexes correlated request/ack pairs and pushed events over one
// Connection. Acks and pushed events share the Inbound stream in arrival
// order, so its consumer must call Settle on every item it receives.
type Channel struct {
	conn      Connection
	pending   map[string]*call
	mutex     sync.Mutex
	inbound   chan Inbound
	closed    chan struct{}
	closeOnce sync.Once
}

func NewChannel(conn Connection, buffer int) *Channel {
	return &Channel{
		conn:    conn,
		pending: make(map[string]*call),
		inbound: make(chan Inbound, buffer),
		closed:  make(chan struct{}),
	}
}

// Inbound returns the ordered stream of acks and pushed events. It is closed when Run returns.
func (c *Channel) Inbound() <-chan Inbound {
	return c.inbound
}

// Done is closed once the channel has shut down.
func (c *Channel) Done() <-chan struct{} {
	return c.closed
}

// Run reads frames until the connection fails or Close is called.
func (c *Channel) Run() error {
	defer close(c.inbound)
	defer c.shutdown()

	for {
		packet, err := c.conn.ReadPacket()
		if errors.Is(err, io.ErrShortBuffer) {
			logger.Log.Debugf("Dropping truncated frame")
			continue
		}
		if err != nil {
			select {
			case <-c.closed:
				return nil
			default:
			}
			return err
		}
		if packet == nil {
			continue
		}
		c.handlePacket(packet)
	}
}

func (c *Channel) handlePacket(packet *Packet) {
	switch packet.MsgID {
	case MsgTypeHeartbeat:
		return
	case MsgTypeAck:
		var env Envelope
		if err := json.Unmarshal(packet.Data, &env); err != nil {
			logger.Log.Debugf("Dropping malformed ack: %v", err)
			return
		}
		var ack Ack
		if err := json.Unmarshal(env.Data, &ack); err != nil {
			logger.Log.Debugf("Dropping ack %s with malformed body: %v", env.ID, err)
			return
		}
		c.resolve(env.ID, ack)
	default:
		name, ok := EventForMsgID(packet.MsgID)
		if !ok {
			logger.Log.Debugf("Ignoring unknown message type: %d", packet.MsgID)
			return
		}
		var env Envelope
		if err := json.Unmarshal(packet.Data, &env); err != nil {
			logger.Log.Debugf("Ignoring malformed %s frame: %v", name, err)
			return
		}
		select {
		case c.inbound <- Inbound{Name: name, Data: env.Data}:
		case <-c.closed:
		}
	}
}

// resolve queues the ack behind every event that arrived before it.
func (c *Channel) resolve(id string, ack Ack) {
	c.mutex.Lock()
	r, ok := c.pending[id]
	delete(c.pending, id)
	c.mutex.Unlock()

	if !ok {
		// 请求已超时或被放弃
		logger.Log.Debugf("Ignoring late ack %s", id)
		return
	}
	select {
	case c.inbound <- Inbound{Name: EventAck, settle: func() { r.settle(ack) }}:
	case <-c.closed:
	}
}

// Request sends event with payload and waits for its ack, the context deadline,
// or shutdown. apply, when not nil, runs on the Inbound consumer once the ack
// is settled and before any later event is handled. It never runs for a
// request that already returned an error.
func (c *Channel) Request(ctx context.Context, event string, payload any, apply func(Ack)) (*Ack, error) {
	msgID, ok := MsgIDForEvent(event)
	if !ok {
		return nil, fmt.Errorf("%s: %w", event, ErrUnknownEvent)
	}

	id := uuid.NewString()
	r := &call{event: event, done: make(chan Ack, 1), apply: apply}

	c.mutex.Lock()
	c.pending[id] = r
	c.mutex.Unlock()

	if err := c.send(msgID, id, payload); err != nil {
		c.forget(id)
		return nil, err
	}

	select {
	case ack := <-r.done:
		return &ack, nil
	case <-ctx.Done():
		c.forget(id)
		if !r.abandon() {
			ack := <-r.done
			return &ack, nil
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s: %w", event, ErrTimeout)
		}
		return nil, ctx.Err()
	case <-c.closed:
		c.forget(id)
		if !r.abandon() {
			ack := <-r.done
			return &ack, nil
		}
		return nil, ErrClosed
	}
}

// Emit sends event without waiting for an ack.
func (c *Channel) Emit(event string, payload any) error {
	msgID, ok := MsgIDForEvent(event)
	if !ok {
		return fmt.Errorf("%s: %w", event, ErrUnknownEvent)
	}
	return c.send(msgID, "", payload)
}

// Heartbeat sends an empty keepalive frame.
func (c *Channel) Heartbeat() error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	return c.conn.Send(MsgTypeHeartbeat, nil)
}

func (c *Channel) send(msgID uint16, id string, payload any) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}

	var data json.RawMessage
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		data = raw
	}
	frame, err := json.Marshal(Envelope{ID: id, Data: data})
	if err != nil {
		return err
	}
	return c.conn.Send(msgID, frame)
}

func (c *Channel) forget(id string) {
	c.mutex.Lock()
	delete(c.pending, id)
	c.mutex.Unlock()
}

func (c *Channel) shutdown() {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
}

// Close stops the channel and closes the underlying connection.
func (c *Channel) Close() error {
	c.shutdown()
	return c.conn.Close()
}
