package authsrv

import (
	"context"

	"github.com/kyfplatform/kyf-api/pkg/errx"
	"github.com/kyfplatform/kyf-api/pkg/iam/auth"
	"github.com/kyfplatform/kyf-api/pkg/iam/identity"
	"github.com/kyfplatform/kyf-api/pkg/iam/otp/otpsrv"
	"github.com/kyfplatform/kyf-api/pkg/kernel"
)

// Service glues OTP verification to token issuance and owns the refresh
// flow.
type Service struct {
	tokens     auth.TokenService
	identities identity.Store
	otps       *otpsrv.Service
}

// NewService creates the auth service.
func NewService(tokens auth.TokenService, identities identity.Store, otps *otpsrv.Service) *Service {
	return &Service{
		tokens:     tokens,
		identities: identities,
		otps:       otps,
	}
}

// RequestOTP starts a challenge for the channel.
func (s *Service) RequestOTP(ctx context.Context, channel kernel.Channel) error {
	return s.otps.Request(ctx, channel)
}

// VerifyOTP consumes the challenge and, on success, issues a token pair.
// The new refresh token overwrites the user's single slot, so sessions on
// other devices stop refreshing.
func (s *Service) VerifyOTP(ctx context.Context, channel kernel.Channel, code string) (*identity.Record, auth.TokenPair, error) {
	record, err := s.otps.Verify(ctx, channel, code)
	if err != nil {
		return nil, auth.TokenPair{}, err
	}

	pair, err := s.IssueTokens(ctx, record)
	if err != nil {
		return nil, auth.TokenPair{}, err
	}
	return record, pair, nil
}

// IssueTokens issues an access/refresh pair for an established identity
// and stores the refresh token in the user's slot.
func (s *Service) IssueTokens(ctx context.Context, record *identity.Record) (auth.TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(record)
	if err != nil {
		return auth.TokenPair{}, err
	}

	refresh, err := s.tokens.IssueRefreshToken(record.ID)
	if err != nil {
		return auth.TokenPair{}, err
	}

	if err := s.identities.SaveRefreshToken(ctx, record.ID, refresh); err != nil {
		return auth.TokenPair{}, err
	}

	return auth.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a refresh token for a new access token. The identity
// is re-resolved so role changes since issuance take effect. The refresh
// token itself is not rotated.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.Verify(refreshToken, auth.KindRefresh)
	if err != nil {
		return "", err
	}

	record, err := s.identities.FindByID(ctx, claims.SubjectID)
	if err != nil {
		if e, ok := errx.As(err); ok && e.Type == errx.TypeNotFound {
			return "", auth.ErrInvalidSubject().WithDetail("user_id", claims.SubjectID.String())
		}
		return "", err
	}

	// Only the token in the user's slot refreshes. A token displaced by a
	// later login verifies fine cryptographically but is no longer honored.
	if record.RefreshToken != refreshToken {
		return "", auth.ErrInvalidToken().WithDetail("reason", "refresh token superseded")
	}

	return s.tokens.IssueAccessToken(record)
}
