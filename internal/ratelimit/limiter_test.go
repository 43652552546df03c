package ratelimit

import (
	"testing"
	"time"
)

func TestAllowConsumesTokens(t *testing.T) {
	l := New(2, 0)
	base := time.Now()
	l.now = func() time.Time { return base }

	if !l.Allow() {
		t.Fatal("first poll should be allowed")
	}
	if !l.Allow() {
		t.Fatal("second poll should be allowed")
	}
	if l.Allow() {
		t.Error("bucket empty, third poll should be denied")
	}
}

func TestRefill(t *testing.T) {
	l := New(1, 2) // 2 tokens/sec
	base := time.Now()
	now := base
	l.now = func() time.Time { return now }

	if !l.Allow() {
		t.Fatal("expected initial token")
	}
	if l.Allow() {
		t.Fatal("expected empty bucket")
	}

	now = base.Add(600 * time.Millisecond)
	if !l.Allow() {
		t.Error("expected refill of one token after 600ms at 2/s")
	}
}

func TestRefillCapsAtCapacity(t *testing.T) {
	l := New(2, 100)
	base := time.Now()
	now := base
	l.now = func() time.Time { return now }

	now = base.Add(time.Hour)
	l.Allow()
	if got := l.Tokens(); got != 1 {
		t.Errorf("expected 1 token left after capped refill and one consume, got %v", got)
	}
}
