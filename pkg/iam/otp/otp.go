package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/kyfplatform/kyf-api/pkg/errx"
	"github.com/kyfplatform/kyf-api/pkg/kernel"
)

// Challenge is a live one-time code for a contact channel. At most one
// challenge exists per channel; storing a new one replaces the old.
type Challenge struct {
	ID                string         `json:"id"`
	Channel           kernel.Channel `json:"channel"`
	Code              string         `json:"code"`
	CreatedAt         time.Time      `json:"created_at"`
	ExpiresAt         time.Time      `json:"expires_at"`
	AttemptsRemaining int            `json:"attempts_remaining"`
}

// IsExpired reports whether the challenge has passed its TTL.
func (c *Challenge) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// GenerateCode produces a cryptographically random numeric code of the
// given length, zero-padded.
func GenerateCode(length int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(fmt.Sprintf("%%0%dd", length), n), nil
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("OTP")

var (
	CodeNoActiveChallenge = ErrRegistry.Register("NO_ACTIVE_CHALLENGE", errx.TypeValidation, http.StatusBadRequest, "No active verification code for this contact")
	CodeInvalidCode       = ErrRegistry.Register("INVALID_CODE", errx.TypeValidation, http.StatusBadRequest, "Invalid or incorrect verification code")
	CodeChallengeLocked   = ErrRegistry.Register("CHALLENGE_LOCKED", errx.TypeBusiness, http.StatusTooManyRequests, "Too many verification attempts")
	CodeTooManyRequests   = ErrRegistry.Register("TOO_MANY_REQUESTS", errx.TypeBusiness, http.StatusTooManyRequests, "Too many verification code requests")
	CodeDeliveryFailed    = ErrRegistry.Register("DELIVERY_FAILED", errx.TypeExternal, http.StatusBadGateway, "Failed to send verification code")
	CodeGenerationFailed  = ErrRegistry.Register("GENERATION_FAILED", errx.TypeInternal, http.StatusInternalServerError, "An unexpected error occurred")
)

func ErrNoActiveChallenge() *errx.Error { return ErrRegistry.New(CodeNoActiveChallenge) }
func ErrInvalidCode() *errx.Error       { return ErrRegistry.New(CodeInvalidCode) }
func ErrChallengeLocked() *errx.Error   { return ErrRegistry.New(CodeChallengeLocked) }
func ErrTooManyRequests() *errx.Error   { return ErrRegistry.New(CodeTooManyRequests) }
func ErrDeliveryFailed() *errx.Error    { return ErrRegistry.New(CodeDeliveryFailed) }
func ErrGenerationFailed() *errx.Error  { return ErrRegistry.New(CodeGenerationFailed) }
