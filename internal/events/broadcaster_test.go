package events

import (
	"context"
	"testing"
	"time"

	"github.com/RpGmAx/ronin-mission-5/pkg/identity"
)

func testKey(b byte) identity.Key {
	var k identity.Key
	k[0] = b
	return k
}

func waitEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestBroadcasterDelivers(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()
	ctx := context.Background()

	sub := b.Subscribe(ctx)
	defer sub.Cancel()

	if b.Len() != 1 {
		t.Errorf("Len = %d, want 1", b.Len())
	}

	want := Event{Type: MessageCreated, Sender: testKey(1), Message: "hello world", Timestamp: 42}
	b.Emit(ctx, want)

	got := waitEvent(t, sub.Events())
	if got != want {
		t.Errorf("received %+v, want %+v", got, want)
	}
}

func TestBroadcasterFanOut(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()
	ctx := context.Background()

	sub1 := b.Subscribe(ctx)
	sub2 := b.Subscribe(ctx)
	defer sub1.Cancel()
	defer sub2.Cancel()

	if sub1.ID() == sub2.ID() {
		t.Error("subscriptions share an ID")
	}

	b.Emit(ctx, Event{Type: MessageUpdated, Sender: testKey(2)})

	for _, sub := range []Subscription{sub1, sub2} {
		ev := waitEvent(t, sub.Events())
		if ev.Type != MessageUpdated {
			t.Errorf("type = %s, want %s", ev.Type, MessageUpdated)
		}
	}
}

func TestBroadcasterDropsWhenFull(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()
	ctx := context.Background()

	sub := b.Subscribe(ctx)
	defer sub.Cancel()

	// Overfill the buffer without draining. Emit must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < defaultBufferSize+10; i++ {
			b.Emit(ctx, Event{Type: MessageCreated, Timestamp: int64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full subscriber buffer")
	}
}

func TestBroadcasterCancelRemoves(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()

	sub := b.Subscribe(context.Background())
	sub.Cancel()

	deadline := time.After(time.Second)
	for b.Len() != 0 {
		select {
		case <-deadline:
			t.Fatal("cancelled subscription was never removed")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// The events channel closes on cancel.
	for range sub.Events() {
	}
}

func TestBroadcasterContextCancel(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	b.Subscribe(ctx)
	cancel()

	deadline := time.After(time.Second)
	for b.Len() != 0 {
		select {
		case <-deadline:
			t.Fatal("context-cancelled subscription was never removed")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestBroadcasterClose(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Subscribe(context.Background())
	b.Close()

	deadline := time.After(time.Second)
	for b.Len() != 0 {
		select {
		case <-deadline:
			t.Fatal("Close left subscriptions behind")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// Subscribing after Close yields an already-cancelled subscription.
	late := b.Subscribe(context.Background())
	for range late.Events() {
	}
	_ = sub
}
