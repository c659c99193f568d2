package auth

import (
	"context"

	"github.com/kyfplatform/kyf-api/pkg/iam/identity"
	"github.com/kyfplatform/kyf-api/pkg/kernel"
)

// TokenService issues and verifies signed, encrypted tokens.
type TokenService interface {
	IssueAccessToken(record *identity.Record) (string, error)
	IssueRefreshToken(id kernel.UserID) (string, error)
	Verify(token string, kind TokenKind) (*TokenClaims, error)
}

// AuditService records security-relevant events. Implementations must not
// fail the request path; auditing is fire-and-forget.
type AuditService interface {
	LogTokenRejected(ctx context.Context, code string, ip string, path string)
	LogTokenRefresh(ctx context.Context, userID kernel.UserID, ip string)
	LogOTPRequested(ctx context.Context, contact string, ip string)
	LogOTPVerification(ctx context.Context, contact string, success bool, ip string)
	LogAdminDenied(ctx context.Context, userID kernel.UserID, path string, ip string)
}
