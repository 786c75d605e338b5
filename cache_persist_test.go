package quickleaf

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestPersistRoundTripsThroughRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	cache, err := New(10, WithPersist(path))
	if err != nil {
		t.Fatal(err)
	}
	cache.InsertWithTTL("a", String("b"), time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := cache.Close(ctx); err != nil {
		t.Fatal(err)
	}

	reopened, err := New(10, WithPersist(path))
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close(context.Background())

	val, found := reopened.Get("a")
	if !found {
		t.Fatal("expected 'a' to survive a restart")
	}
	if s, _ := val.AsString(); s != "b" {
		t.Fatalf("expected 'b', got %v", val)
	}
}

func TestExternalSubscriberReceivesEvents(t *testing.T) {
	events := make(chan Event, 16)
	cache, err := New(10, WithSender(events))
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close(context.Background())

	cache.Insert("a", Int(1))

	select {
	case ev := <-events:
		if ev.Kind != EventInsert || ev.Key != "a" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}
