package quickleaf

import "testing"

func TestItemExpiredNilTTLNeverExpires(t *testing.T) {
	it := newItem(String("x"), 0, nil)
	if it.expired(1_000_000) {
		t.Fatal("expected item with nil ttl to never expire")
	}
}

func TestItemExpiredBoundary(t *testing.T) {
	ttl := uint64(100)
	it := newItem(String("x"), 1000, &ttl)

	if it.expired(1100) {
		t.Fatal("expected item to still be live when now-created_at == ttl")
	}
	if !it.expired(1101) {
		t.Fatal("expected item to be expired once now-created_at > ttl")
	}
}
