package ratelimit

import (
	"testing"
	"time"
)

func TestAllowWithinBurst(t *testing.T) {
	l := New(30)
	for i := 0; i < 30; i++ {
		if !l.Allow(1) {
			t.Fatalf("update %d rejected inside burst", i+1)
		}
	}
	if l.Allow(1) {
		t.Fatal("31st immediate update must be rejected")
	}
}

func TestChatsAreIndependent(t *testing.T) {
	l := New(2)
	l.Allow(1)
	l.Allow(1)
	if l.Allow(1) {
		t.Fatal("chat 1 should be exhausted")
	}
	if !l.Allow(2) {
		t.Fatal("chat 2 must have its own bucket")
	}
}

func TestRefillOverTime(t *testing.T) {
	l := New(30)
	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 0; i < 30; i++ {
		l.Allow(1)
	}
	if l.Allow(1) {
		t.Fatal("bucket should be empty")
	}

	// 30/min refills one token every 2 seconds.
	now = now.Add(2 * time.Second)
	if !l.Allow(1) {
		t.Fatal("one token should have refilled after 2s")
	}
	if l.Allow(1) {
		t.Fatal("only one token should have refilled")
	}
}

func TestIdleChatsArePruned(t *testing.T) {
	l := New(30)
	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Allow(1)
	l.Allow(2)

	now = now.Add(5 * time.Minute)
	l.Allow(3) // triggers the scan

	l.mu.Lock()
	_, stale := l.perChat[1]
	_, fresh := l.perChat[3]
	l.mu.Unlock()
	if stale {
		t.Fatal("idle chat 1 should have been pruned")
	}
	if !fresh {
		t.Fatal("chat 3 must survive the scan it triggered")
	}
}
