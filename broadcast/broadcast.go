// broadcast/broadcast.go
package broadcast

import (
	"sync"

	"github.com/wfunc/ludoclient/logger"
	"github.com/wfunc/ludoclient/state"
)

// NoticeLevel 提示级别
type NoticeLevel string

const (
	LevelInfo    NoticeLevel = "info"
	LevelSuccess NoticeLevel = "success"
	LevelError   NoticeLevel = "error"
)

// Notice is a user-visible message.
type Notice struct {
	Level   NoticeLevel
	Message string
}

// Update is delivered to subscribers: either a new snapshot or a notice.
type Update struct {
	State  *state.SessionState
	Notice *Notice
}

// Broadcaster fans out snapshots and notices to whoever renders them.
type Broadcaster interface {
	PublishState(s *state.SessionState)
	Notify(n Notice)
}

// Hub 基于订阅者通道的广播器
type Hub struct {
	subscribers map[int]chan Update
	nextID      int
	mutex       sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[int]chan Update)}
}

// Subscribe registers a listener. The returned cancel func unregisters it and closes the channel.
func (h *Hub) Subscribe(buffer int) (<-chan Update, func()) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan Update, buffer)
	h.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mutex.Lock()
			defer h.mutex.Unlock()
			delete(h.subscribers, id)
			close(ch)
		})
	}
}

func (h *Hub) PublishState(s *state.SessionState) {
	h.publish(Update{State: s})
}

func (h *Hub) Notify(n Notice) {
	h.publish(Update{Notice: &n})
}

func (h *Hub) publish(u Update) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for id, ch := range h.subscribers {
		select {
		case ch <- u:
		default:
			// 订阅者处理过慢，丢弃本次更新
			logger.Log.Warnf("Subscriber %d is full, dropping update", id)
		}
	}
}
