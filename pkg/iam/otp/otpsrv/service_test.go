package otpsrv

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kyfplatform/kyf-api/pkg/config"
	"github.com/kyfplatform/kyf-api/pkg/errx"
	"github.com/kyfplatform/kyf-api/pkg/iam/identity"
	"github.com/kyfplatform/kyf-api/pkg/iam/otp"
	"github.com/kyfplatform/kyf-api/pkg/iam/otp/otpinfra"
	"github.com/kyfplatform/kyf-api/pkg/kernel"
)

// captureDeliverer records sent codes and optionally fails.
type captureDeliverer struct {
	sent []string
	fail error
}

func (d *captureDeliverer) Send(_ context.Context, _ kernel.Channel, code string) error {
	if d.fail != nil {
		return d.fail
	}
	d.sent = append(d.sent, code)
	return nil
}

// stubIdentities resolves one known channel.
type stubIdentities struct {
	record   *identity.Record
	verified []kernel.Channel
}

func (s *stubIdentities) FindByID(_ context.Context, id kernel.UserID) (*identity.Record, error) {
	if s.record != nil && s.record.ID == id {
		return s.record, nil
	}
	return nil, identity.ErrSubjectNotFound()
}

func (s *stubIdentities) FindByChannel(_ context.Context, channel kernel.Channel) (*identity.Record, error) {
	if s.record != nil && kernel.Channel(s.record.Email) == channel {
		return s.record, nil
	}
	return nil, identity.ErrSubjectNotFound()
}

func (s *stubIdentities) FindAdminByID(_ context.Context, _ kernel.UserID) (*identity.AdminRecord, error) {
	return nil, identity.ErrAdminNotFound()
}

func (s *stubIdentities) MarkChannelVerified(_ context.Context, channel kernel.Channel) error {
	s.verified = append(s.verified, channel)
	return nil
}

func (s *stubIdentities) SaveRefreshToken(_ context.Context, _ kernel.UserID, _ string) error {
	return nil
}

const channel = kernel.Channel("user@example.com")

func newTestService(deliverer *captureDeliverer) (*Service, *stubIdentities) {
	identities := &stubIdentities{
		record: &identity.Record{
			ID:       "user-1",
			Email:    "user@example.com",
			IsActive: true,
		},
	}
	svc := NewService(otpinfra.NewMemoryStore(), identities, deliverer, &config.OTPConfig{
		TTL:          5 * time.Minute,
		MaxAttempts:  3,
		CodeLength:   6,
		ResendWindow: time.Minute,
	})
	return svc, identities
}

func assertCode(t *testing.T, err error, want *errx.ErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", want.Code)
	}
	e, ok := errx.As(err)
	if !ok {
		t.Fatalf("expected *errx.Error, got %T: %v", err, err)
	}
	if e.Code != want.Code {
		t.Fatalf("expected code %s, got %s", want.Code, e.Code)
	}
}

// --- Request ---

func TestRequest_DeliversGeneratedCode(t *testing.T) {
	deliverer := &captureDeliverer{}
	svc, _ := newTestService(deliverer)
	ctx := context.Background()

	if err := svc.Request(ctx, channel); err != nil {
		t.Fatalf("Request: %v", err)
	}
	if len(deliverer.sent) != 1 {
		t.Fatalf("expected exactly one delivery, got %d", len(deliverer.sent))
	}
	if len(deliverer.sent[0]) != 6 {
		t.Fatalf("expected 6-digit code, got %q", deliverer.sent[0])
	}
}

func TestRequest_ResendThrottle(t *testing.T) {
	deliverer := &captureDeliverer{}
	svc, _ := newTestService(deliverer)
	ctx := context.Background()

	start := time.Now()
	svc.now = func() time.Time { return start }
	if err := svc.Request(ctx, channel); err != nil {
		t.Fatalf("Request: %v", err)
	}

	// Inside the window: throttled.
	svc.now = func() time.Time { return start.Add(30 * time.Second) }
	err := svc.Request(ctx, channel)
	assertCode(t, err, otp.CodeTooManyRequests)

	// Past the window: a fresh challenge goes out.
	svc.now = func() time.Time { return start.Add(61 * time.Second) }
	if err := svc.Request(ctx, channel); err != nil {
		t.Fatalf("Request after window: %v", err)
	}
	if len(deliverer.sent) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(deliverer.sent))
	}
}

func TestRequest_NewChallengeInvalidatesPrior(t *testing.T) {
	deliverer := &captureDeliverer{}
	svc, _ := newTestService(deliverer)
	ctx := context.Background()

	start := time.Now()
	svc.now = func() time.Time { return start }
	_ = svc.Request(ctx, channel)

	svc.now = func() time.Time { return start.Add(2 * time.Minute) }
	_ = svc.Request(ctx, channel)

	firstCode := deliverer.sent[0]
	secondCode := deliverer.sent[1]
	if firstCode == secondCode {
		t.Skip("codes collided; cannot distinguish challenges")
	}

	_, err := svc.Verify(ctx, channel, firstCode)
	assertCode(t, err, otp.CodeInvalidCode)

	record, err := svc.Verify(ctx, channel, secondCode)
	if err != nil {
		t.Fatalf("Verify with current code: %v", err)
	}
	if record.ID != "user-1" {
		t.Fatalf("expected resolved identity, got %+v", record)
	}
}

func TestRequest_DeliveryFailureDropsChallenge(t *testing.T) {
	deliverer := &captureDeliverer{fail: errors.New("smtp down")}
	svc, _ := newTestService(deliverer)
	ctx := context.Background()

	err := svc.Request(ctx, channel)
	assertCode(t, err, otp.CodeDeliveryFailed)

	// The challenge was dropped, so a retry is not throttled.
	deliverer.fail = nil
	if err := svc.Request(ctx, channel); err != nil {
		t.Fatalf("Request after delivery failure: %v", err)
	}
}

// --- Verify ---

func TestVerify_HappyPath(t *testing.T) {
	deliverer := &captureDeliverer{}
	svc, identities := newTestService(deliverer)
	ctx := context.Background()

	if err := svc.Request(ctx, channel); err != nil {
		t.Fatalf("Request: %v", err)
	}

	record, err := svc.Verify(ctx, channel, deliverer.sent[0])
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if record.ID != "user-1" {
		t.Fatalf("expected user-1, got %s", record.ID)
	}
	if len(identities.verified) != 1 || identities.verified[0] != channel {
		t.Fatalf("expected channel marked verified, got %v", identities.verified)
	}

	// The challenge is single-use.
	_, err = svc.Verify(ctx, channel, deliverer.sent[0])
	assertCode(t, err, otp.CodeNoActiveChallenge)
}

func TestVerify_NoChallenge(t *testing.T) {
	svc, _ := newTestService(&captureDeliverer{})

	_, err := svc.Verify(context.Background(), channel, "123456")
	assertCode(t, err, otp.CodeNoActiveChallenge)
}

func TestVerify_WrongCodeThenLockout(t *testing.T) {
	deliverer := &captureDeliverer{}
	svc, _ := newTestService(deliverer)
	ctx := context.Background()

	_ = svc.Request(ctx, channel)
	code := deliverer.sent[0]
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	// maxAttempts is 3: two mismatches, then the third locks.
	_, err := svc.Verify(ctx, channel, wrong)
	assertCode(t, err, otp.CodeInvalidCode)
	_, err = svc.Verify(ctx, channel, wrong)
	assertCode(t, err, otp.CodeInvalidCode)
	_, err = svc.Verify(ctx, channel, wrong)
	assertCode(t, err, otp.CodeChallengeLocked)

	// Correct code after lockout is worthless.
	_, err = svc.Verify(ctx, channel, code)
	assertCode(t, err, otp.CodeNoActiveChallenge)
}

func TestVerify_UnknownChannelAfterConsume(t *testing.T) {
	deliverer := &captureDeliverer{}
	svc, identities := newTestService(deliverer)
	identities.record = nil
	ctx := context.Background()

	_ = svc.Request(ctx, channel)

	_, err := svc.Verify(ctx, channel, deliverer.sent[0])
	assertCode(t, err, identity.CodeSubjectNotFound)
}
