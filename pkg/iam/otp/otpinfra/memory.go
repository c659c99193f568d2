package otpinfra

import (
	"context"
	"sync"
	"time"

	"github.com/kyfplatform/kyf-api/pkg/iam/otp"
	"github.com/kyfplatform/kyf-api/pkg/kernel"
)

// MemoryStore implements otp.Store with an in-process map. For development
// and tests; the mutex gives the same per-channel atomicity the Redis
// script does.
type MemoryStore struct {
	mu         sync.Mutex
	challenges map[kernel.Channel]*otp.Challenge
	now        func() time.Time
}

// NewMemoryStore creates an in-memory challenge store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		challenges: make(map[kernel.Channel]*otp.Challenge),
		now:        time.Now,
	}
}

// Put stores the challenge, replacing any live one for the channel.
func (s *MemoryStore) Put(_ context.Context, challenge *otp.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *challenge
	s.challenges[challenge.Channel] = &clone
	return nil
}

// Peek returns the live challenge, or nil when none exists. Expired
// challenges are dropped eagerly.
func (s *MemoryStore) Peek(_ context.Context, channel kernel.Channel) (*otp.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	challenge, ok := s.challenges[channel]
	if !ok {
		return nil, nil
	}
	if challenge.IsExpired(s.now()) {
		delete(s.challenges, channel)
		return nil, nil
	}

	clone := *challenge
	return &clone, nil
}

// Consume performs the read-check-decrement-or-delete unit under the lock.
func (s *MemoryStore) Consume(_ context.Context, channel kernel.Channel, code string) (otp.ConsumeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	challenge, ok := s.challenges[channel]
	if !ok {
		return otp.ConsumeResult{Status: otp.ConsumeNoChallenge}, nil
	}
	if challenge.IsExpired(s.now()) {
		delete(s.challenges, channel)
		return otp.ConsumeResult{Status: otp.ConsumeNoChallenge}, nil
	}

	if challenge.Code == code {
		delete(s.challenges, channel)
		return otp.ConsumeResult{Status: otp.ConsumeOK}, nil
	}

	challenge.AttemptsRemaining--
	if challenge.AttemptsRemaining <= 0 {
		delete(s.challenges, channel)
		return otp.ConsumeResult{Status: otp.ConsumeLocked}, nil
	}

	return otp.ConsumeResult{
		Status:            otp.ConsumeMismatch,
		AttemptsRemaining: challenge.AttemptsRemaining,
	}, nil
}

// Delete removes the live challenge, if any.
func (s *MemoryStore) Delete(_ context.Context, channel kernel.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.challenges, channel)
	return nil
}
