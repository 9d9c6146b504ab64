package idempotency

import (
	"context"
	"testing"
	"time"
)

func TestMemoryGetSetRoundTrip(t *testing.T) {
	m := NewMemory()
	c := context.Background()
	key := []string{"fedicore", "https://example.com/activities/1"}

	seen, err := m.Get(c, key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen {
		t.Error("expected an unset key to report unseen")
	}

	if err := m.Set(c, key, true, time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen, err = m.Get(c, key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !seen {
		t.Error("expected the recorded key to report seen")
	}
}

func TestMemoryExpires(t *testing.T) {
	m := NewMemory()
	c := context.Background()
	key := []string{"fedicore", "https://example.com/activities/2"}

	if err := m.Set(c, key, true, -time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen, err := m.Get(c, key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen {
		t.Error("expected an already-expired key to report unseen")
	}
}

func TestMemoryDistinctKeys(t *testing.T) {
	m := NewMemory()
	c := context.Background()

	if err := m.Set(c, []string{"a", "1"}, true, time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seen, err := m.Get(c, []string{"a", "2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen {
		t.Error("expected a distinct key to be unaffected by another key's record")
	}
}
