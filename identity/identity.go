// identity/identity.go
package identity

import "sync"

// Identity 本地操作者身份，由认证模块提供，这里只读
type Identity struct {
	ID     string
	UserID string
}

// Provider supplies the local identity. ok is false until someone has logged in.
type Provider interface {
	Current() (id Identity, ok bool)
}

// Holder is a Provider whose identity can change at runtime, e.g. when login
// completes after a game snapshot has already arrived.
type Holder struct {
	mutex    sync.RWMutex
	identity Identity
	set      bool
}

func NewHolder() *Holder {
	return &Holder{}
}

// NewStatic returns a Holder pre-populated with id.
func NewStatic(id Identity) *Holder {
	h := &Holder{}
	h.Set(id)
	return h
}

func (h *Holder) Current() (Identity, bool) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.identity, h.set
}

func (h *Holder) Set(id Identity) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.identity = id
	h.set = id.ID != ""
}

func (h *Holder) Clear() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.identity = Identity{}
	h.set = false
}
