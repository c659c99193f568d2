package otpsrv

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kyfplatform/kyf-api/pkg/config"
	"github.com/kyfplatform/kyf-api/pkg/iam/identity"
	"github.com/kyfplatform/kyf-api/pkg/iam/otp"
	"github.com/kyfplatform/kyf-api/pkg/kernel"
	"github.com/kyfplatform/kyf-api/pkg/logx"
)

// Service owns the OTP challenge lifecycle: generate, deliver, verify.
type Service struct {
	store      otp.Store
	identities identity.Store
	deliverer  otp.Deliverer

	ttl          time.Duration
	maxAttempts  int
	codeLength   int
	resendWindow time.Duration

	now func() time.Time
}

// NewService creates the OTP service from config.
func NewService(store otp.Store, identities identity.Store, deliverer otp.Deliverer, cfg *config.OTPConfig) *Service {
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 5
	}
	codeLength := cfg.CodeLength
	if codeLength == 0 {
		codeLength = 6
	}

	return &Service{
		store:        store,
		identities:   identities,
		deliverer:    deliverer,
		ttl:          ttl,
		maxAttempts:  maxAttempts,
		codeLength:   codeLength,
		resendWindow: cfg.ResendWindow,
		now:          time.Now,
	}
}

// Request generates a fresh challenge for the channel, replacing any live
// one, and dispatches exactly one delivery.
func (s *Service) Request(ctx context.Context, channel kernel.Channel) error {
	now := s.now()

	if s.resendWindow > 0 {
		existing, err := s.store.Peek(ctx, channel)
		if err != nil {
			return err
		}
		if existing != nil && !existing.IsExpired(now) && now.Sub(existing.CreatedAt) < s.resendWindow {
			return otp.ErrTooManyRequests().WithDetail("retry_after", s.resendWindow.String())
		}
	}

	code, err := otp.GenerateCode(s.codeLength)
	if err != nil {
		return otp.ErrRegistry.NewWithCause(otp.CodeGenerationFailed, err)
	}

	challenge := &otp.Challenge{
		ID:                uuid.NewString(),
		Channel:           channel,
		Code:              code,
		CreatedAt:         now,
		ExpiresAt:         now.Add(s.ttl),
		AttemptsRemaining: s.maxAttempts,
	}

	if err := s.store.Put(ctx, challenge); err != nil {
		return err
	}

	if err := s.deliverer.Send(ctx, channel, code); err != nil {
		// The stored challenge is useless if the code never left the
		// building; drop it so the client can re-request immediately.
		if delErr := s.store.Delete(ctx, channel); delErr != nil {
			logx.WithError(delErr).Warn("otp: failed to drop undelivered challenge")
		}
		return otp.ErrRegistry.NewWithCause(otp.CodeDeliveryFailed, err).
			WithDetail("channel", channel.String())
	}

	return nil
}

// Verify consumes the live challenge for the channel. On success the
// challenge is destroyed, the channel is marked verified on the identity
// record, and the resolved identity is returned.
func (s *Service) Verify(ctx context.Context, channel kernel.Channel, code string) (*identity.Record, error) {
	result, err := s.store.Consume(ctx, channel, code)
	if err != nil {
		return nil, err
	}

	switch result.Status {
	case otp.ConsumeNoChallenge:
		return nil, otp.ErrNoActiveChallenge()
	case otp.ConsumeLocked:
		return nil, otp.ErrChallengeLocked()
	case otp.ConsumeMismatch:
		return nil, otp.ErrInvalidCode().
			WithDetail("attempts_remaining", result.AttemptsRemaining)
	}

	record, err := s.identities.FindByChannel(ctx, channel)
	if err != nil {
		return nil, err
	}

	if err := s.identities.MarkChannelVerified(ctx, channel); err != nil {
		return nil, err
	}

	return record, nil
}
