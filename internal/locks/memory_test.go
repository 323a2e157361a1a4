package locks

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryLockerMutualExclusion(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker()

	token, ok, err := l.Acquire(ctx, "k", time.Minute)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !ok || token == "" {
		t.Fatalf("expected first acquire to win, got ok=%v token=%q", ok, token)
	}

	_, ok, err = l.Acquire(ctx, "k", time.Minute)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if ok {
		t.Fatal("expected second acquire to lose while lock is held")
	}

	if err := l.Release(ctx, "k", token); err != nil {
		t.Fatalf("release: %v", err)
	}
	_, ok, err = l.Acquire(ctx, "k", time.Minute)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	if !ok {
		t.Fatal("expected acquire to succeed after release")
	}
}

func TestMemoryLockerReleaseChecksToken(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker()

	token, ok, _ := l.Acquire(ctx, "k", time.Minute)
	if !ok {
		t.Fatal("expected acquire to win")
	}

	if err := l.Release(ctx, "k", "not-the-token"); err != nil {
		t.Fatalf("release with wrong token: %v", err)
	}
	held, err := l.Held(ctx, "k")
	if err != nil {
		t.Fatalf("held: %v", err)
	}
	if !held {
		t.Fatal("release with a stale token must not free the lock")
	}

	if err := l.Release(ctx, "k", token); err != nil {
		t.Fatalf("release: %v", err)
	}
	held, _ = l.Held(ctx, "k")
	if held {
		t.Fatal("expected lock to be free after owner release")
	}
}

func TestMemoryLockerTTLExpiry(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker()

	if _, ok, _ := l.Acquire(ctx, "k", 10*time.Millisecond); !ok {
		t.Fatal("expected acquire to win")
	}
	time.Sleep(20 * time.Millisecond)

	held, err := l.Held(ctx, "k")
	if err != nil {
		t.Fatalf("held: %v", err)
	}
	if held {
		t.Fatal("expected lock to expire after its TTL")
	}
	if _, ok, _ := l.Acquire(ctx, "k", time.Minute); !ok {
		t.Fatal("expected acquire to win after expiry")
	}
}

func TestMemoryLockerSingleWinnerUnderContention(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker()

	const n = 32
	var wg sync.WaitGroup
	wins := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if token, ok, err := l.Acquire(ctx, "contended", time.Minute); err == nil && ok {
				wins <- token
			}
		}()
	}
	wg.Wait()
	close(wins)

	var count int
	for range wins {
		count++
	}
	if count != 1 {
		t.Fatalf("expected exactly one winner, got %d", count)
	}
}
