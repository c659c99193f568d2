package otpinfra

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kyfplatform/kyf-api/pkg/iam/otp"
	"github.com/kyfplatform/kyf-api/pkg/kernel"
)

func newChallenge(channel string, code string, attempts int, now time.Time) *otp.Challenge {
	return &otp.Challenge{
		ID:                "challenge-1",
		Channel:           kernel.Channel(channel),
		Code:              code,
		CreatedAt:         now,
		ExpiresAt:         now.Add(5 * time.Minute),
		AttemptsRemaining: attempts,
	}
}

func TestMemoryStore_PutPeek(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	if ch, err := s.Peek(ctx, "user@example.com"); err != nil || ch != nil {
		t.Fatalf("expected empty store, got %v, %v", ch, err)
	}

	if err := s.Put(ctx, newChallenge("user@example.com", "123456", 5, now)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	ch, err := s.Peek(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("Peek: %v", err)
	}
	if ch == nil || ch.Code != "123456" {
		t.Fatalf("expected stored challenge, got %+v", ch)
	}
}

func TestMemoryStore_PutReplaces(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	_ = s.Put(ctx, newChallenge("user@example.com", "111111", 5, now))
	_ = s.Put(ctx, newChallenge("user@example.com", "222222", 5, now))

	// The first code is dead; guessing it burns an attempt.
	result, err := s.Consume(ctx, "user@example.com", "111111")
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if result.Status != otp.ConsumeMismatch {
		t.Fatalf("expected mismatch for replaced code, got %v", result.Status)
	}

	result, _ = s.Consume(ctx, "user@example.com", "222222")
	if result.Status != otp.ConsumeOK {
		t.Fatalf("expected OK for current code, got %v", result.Status)
	}
}

func TestMemoryStore_ConsumeDestroysChallenge(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_ = s.Put(ctx, newChallenge("user@example.com", "123456", 5, time.Now()))

	result, _ := s.Consume(ctx, "user@example.com", "123456")
	if result.Status != otp.ConsumeOK {
		t.Fatalf("expected OK, got %v", result.Status)
	}

	// Replay must find nothing.
	result, _ = s.Consume(ctx, "user@example.com", "123456")
	if result.Status != otp.ConsumeNoChallenge {
		t.Fatalf("expected no challenge after consume, got %v", result.Status)
	}
}

func TestMemoryStore_AttemptExhaustion(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_ = s.Put(ctx, newChallenge("user@example.com", "123456", 3, time.Now()))

	for i := 2; i >= 1; i-- {
		result, _ := s.Consume(ctx, "user@example.com", "000000")
		if result.Status != otp.ConsumeMismatch {
			t.Fatalf("expected mismatch, got %v", result.Status)
		}
		if result.AttemptsRemaining != i {
			t.Fatalf("expected %d attempts remaining, got %d", i, result.AttemptsRemaining)
		}
	}

	// Final wrong attempt locks and destroys the challenge.
	result, _ := s.Consume(ctx, "user@example.com", "000000")
	if result.Status != otp.ConsumeLocked {
		t.Fatalf("expected locked, got %v", result.Status)
	}

	// Even the correct code is dead now.
	result, _ = s.Consume(ctx, "user@example.com", "123456")
	if result.Status != otp.ConsumeNoChallenge {
		t.Fatalf("expected no challenge after lockout, got %v", result.Status)
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	issued := time.Now()
	s.now = func() time.Time { return issued }
	_ = s.Put(ctx, newChallenge("user@example.com", "123456", 5, issued))

	s.now = func() time.Time { return issued.Add(5*time.Minute + time.Second) }

	if ch, _ := s.Peek(ctx, "user@example.com"); ch != nil {
		t.Fatalf("expected expired challenge to be invisible, got %+v", ch)
	}

	result, _ := s.Consume(ctx, "user@example.com", "123456")
	if result.Status != otp.ConsumeNoChallenge {
		t.Fatalf("expected no challenge for expired code, got %v", result.Status)
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_ = s.Put(ctx, newChallenge("user@example.com", "123456", 5, time.Now()))
	if err := s.Delete(ctx, "user@example.com"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if ch, _ := s.Peek(ctx, "user@example.com"); ch != nil {
		t.Fatal("expected challenge gone after delete")
	}
}

// Concurrent guesses against one challenge: exactly one goroutine may win.
func TestMemoryStore_ConcurrentConsume(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_ = s.Put(ctx, newChallenge("user@example.com", "123456", 100, time.Now()))

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := s.Consume(ctx, "user@example.com", "123456")
			if err != nil {
				t.Errorf("Consume: %v", err)
				return
			}
			if result.Status == otp.ConsumeOK {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one successful consume, got %d", wins)
	}
}
