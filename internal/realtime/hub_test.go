package realtime

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
)

type recordingSubscriber struct {
	mu       sync.Mutex
	received []Envelope
}

func (r *recordingSubscriber) WriteJSON(v interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.received = append(r.received, v.(Envelope))
	return nil
}

func (r *recordingSubscriber) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.received)
}

func allowAll(context.Context, uuid.UUID, uuid.UUID) bool { return true }

func TestPublishReachesRoomMembersOnly(t *testing.T) {
	hub := NewHub(allowAll)
	ctx := context.Background()
	cartA, cartB := uuid.New(), uuid.New()

	inRoom := &recordingSubscriber{}
	otherRoom := &recordingSubscriber{}
	noRoom := &recordingSubscriber{}

	hub.Register(inRoom, uuid.New())
	hub.Register(otherRoom, uuid.New())
	hub.Register(noRoom, uuid.New())

	if !hub.Join(ctx, inRoom, cartA) {
		t.Fatal("join failed")
	}
	if !hub.Join(ctx, otherRoom, cartB) {
		t.Fatal("join failed")
	}

	hub.Publish(cartA, EventProductAdded, map[string]string{"name": "milk"})

	if inRoom.count() != 1 {
		t.Fatalf("room member expected 1 event, got %d", inRoom.count())
	}
	if otherRoom.count() != 0 || noRoom.count() != 0 {
		t.Fatal("event leaked outside the room")
	}

	env := inRoom.received[0]
	if env.Event != EventProductAdded {
		t.Fatalf("unexpected event name %q", env.Event)
	}
}

func TestJoinAuthorization(t *testing.T) {
	member := uuid.New()
	cartID := uuid.New()
	hub := NewHub(func(_ context.Context, c, u uuid.UUID) bool {
		return c == cartID && u == member
	})
	ctx := context.Background()

	allowed := &recordingSubscriber{}
	denied := &recordingSubscriber{}
	hub.Register(allowed, member)
	hub.Register(denied, uuid.New())

	if !hub.Join(ctx, allowed, cartID) {
		t.Fatal("member join refused")
	}
	if hub.Join(ctx, denied, cartID) {
		t.Fatal("non-member joined the room")
	}
	if hub.RoomSize(cartID) != 1 {
		t.Fatalf("expected room size 1, got %d", hub.RoomSize(cartID))
	}
}

func TestJoinUnknownSubscriber(t *testing.T) {
	hub := NewHub(allowAll)
	if hub.Join(context.Background(), &recordingSubscriber{}, uuid.New()) {
		t.Fatal("unregistered subscriber joined a room")
	}
}

func TestLeaveAndUnregister(t *testing.T) {
	hub := NewHub(allowAll)
	ctx := context.Background()
	cartID := uuid.New()

	sub := &recordingSubscriber{}
	hub.Register(sub, uuid.New())
	if !hub.Join(ctx, sub, cartID) {
		t.Fatal("join failed")
	}

	hub.Leave(sub, cartID)
	hub.Publish(cartID, EventCartCleared, nil)
	if sub.count() != 0 {
		t.Fatal("received event after leaving the room")
	}

	if !hub.Join(ctx, sub, cartID) {
		t.Fatal("rejoin failed")
	}
	hub.Unregister(sub)
	if hub.RoomSize(cartID) != 0 {
		t.Fatal("unregister did not empty the room")
	}

	// Idempotent on a gone subscriber.
	hub.Unregister(sub)
	hub.Leave(sub, cartID)
}

func TestConcurrentPublish(t *testing.T) {
	hub := NewHub(allowAll)
	ctx := context.Background()
	cartID := uuid.New()

	subs := make([]*recordingSubscriber, 5)
	for i := range subs {
		subs[i] = &recordingSubscriber{}
		hub.Register(subs[i], uuid.New())
		if !hub.Join(ctx, subs[i], cartID) {
			t.Fatal("join failed")
		}
	}

	const publishers = 8
	const perPublisher = 50

	var wg sync.WaitGroup
	for p := 0; p < publishers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perPublisher; i++ {
				hub.Publish(cartID, EventProductUpdated, i)
			}
		}()
	}
	wg.Wait()

	for i, sub := range subs {
		if got := sub.count(); got != publishers*perPublisher {
			t.Fatalf("subscriber %d received %d events, want %d", i, got, publishers*perPublisher)
		}
	}
}
