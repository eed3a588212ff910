package broadcast

import (
	"testing"

	"github.com/wfunc/ludoclient/state"
)

func TestHub_PublishAndNotify(t *testing.T) {
	hub := NewHub()
	updates, cancel := hub.Subscribe(4)
	defer cancel()

	s := state.Initial()
	hub.PublishState(s)
	hub.Notify(Notice{Level: LevelError, Message: "Invalid move"})

	first := <-updates
	if first.State != s || first.Notice != nil {
		t.Errorf("expected a state update, got %+v", first)
	}
	second := <-updates
	if second.Notice == nil || second.Notice.Message != "Invalid move" || second.Notice.Level != LevelError {
		t.Errorf("expected an error notice, got %+v", second)
	}
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub()
	_, cancel := hub.Subscribe(1)
	defer cancel()

	// The second publish overflows the buffer and must be dropped, not block.
	hub.Notify(Notice{Message: "one"})
	hub.Notify(Notice{Message: "two"})
}

func TestHub_CancelClosesChannel(t *testing.T) {
	hub := NewHub()
	updates, cancel := hub.Subscribe(1)
	cancel()
	cancel()

	if _, ok := <-updates; ok {
		t.Error("expected the channel to be closed after cancel")
	}
	hub.Notify(Notice{Message: "after cancel"})
}
