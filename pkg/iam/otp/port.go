package otp

import (
	"context"

	"github.com/kyfplatform/kyf-api/pkg/kernel"
)

// ConsumeStatus is the outcome of an atomic consume attempt.
type ConsumeStatus int

const (
	// ConsumeOK: code matched, challenge destroyed.
	ConsumeOK ConsumeStatus = iota
	// ConsumeNoChallenge: no live challenge for the channel.
	ConsumeNoChallenge
	// ConsumeMismatch: wrong code, one attempt spent.
	ConsumeMismatch
	// ConsumeLocked: wrong code and the budget ran out; challenge destroyed.
	ConsumeLocked
)

// ConsumeResult carries the status and, on a mismatch, the attempts left.
type ConsumeResult struct {
	Status            ConsumeStatus
	AttemptsRemaining int
}

// Store holds live challenges. Consume must be atomic per channel: two
// concurrent attempts must not share an attempt or revive a destroyed
// challenge.
type Store interface {
	// Put stores a challenge, replacing any live one for the same channel.
	Put(ctx context.Context, challenge *Challenge) error

	// Peek returns the live challenge for a channel without consuming
	// anything, or nil when there is none.
	Peek(ctx context.Context, channel kernel.Channel) (*Challenge, error)

	// Consume performs the read-check-decrement-or-delete unit.
	Consume(ctx context.Context, channel kernel.Channel, code string) (ConsumeResult, error)

	// Delete removes the challenge for a channel, if any.
	Delete(ctx context.Context, channel kernel.Channel) error
}

// Deliverer dispatches a code out-of-band to a contact channel.
type Deliverer interface {
	Send(ctx context.Context, channel kernel.Channel, code string) error
}
