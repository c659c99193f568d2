package auth

import (
	"net/http"
	"time"

	"github.com/kyfplatform/kyf-api/pkg/errx"
	"github.com/kyfplatform/kyf-api/pkg/kernel"
)

// ============================================================================
// Token Types
// ============================================================================

// Issuer and Audience are fixed claim constants. The verifier rejects any
// token carrying different values.
const (
	Issuer   = "KYF"
	Audience = "kyf-api"
)

// TokenKind selects which secret and TTL policy a token is issued and
// verified under.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// TokenClaims is the plaintext claim set. It is serialized, encrypted, and
// carried as the only payload of the signed envelope; it exists in clear
// form only inside the process.
type TokenClaims struct {
	SubjectID kernel.UserID     `json:"sub"`
	Issuer    string            `json:"iss"`
	Audience  string            `json:"aud"`
	IssuedAt  time.Time         `json:"iat"`
	ExpiresAt time.Time         `json:"exp"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// TokenPair is the result of a successful authentication.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// ============================================================================
// Error Registry
// ============================================================================

// Codes stay distinct so logs and tests can tell failure categories apart.
// The registered messages are what clients see: integrity failures all read
// "Invalid token" and temporal failures all read "Invalid or expired token"
// so the boundary leaks no oracle about which check tripped.
var ErrRegistry = errx.NewRegistry("AUTH")

var (
	CodeNoToken          = ErrRegistry.Register("NO_TOKEN", errx.TypeAuthentication, http.StatusUnauthorized, "Authentication required")
	CodeInvalidSignature = ErrRegistry.Register("INVALID_SIGNATURE", errx.TypeAuthentication, http.StatusUnauthorized, "Invalid token")
	CodeInvalidToken     = ErrRegistry.Register("INVALID_TOKEN", errx.TypeAuthentication, http.StatusUnauthorized, "Invalid token")
	CodeMalformedClaims  = ErrRegistry.Register("MALFORMED_CLAIMS", errx.TypeAuthentication, http.StatusUnauthorized, "Invalid token")
	CodeTokenExpired     = ErrRegistry.Register("TOKEN_EXPIRED", errx.TypeAuthentication, http.StatusUnauthorized, "Invalid or expired token")
	CodeInvalidIssuer    = ErrRegistry.Register("INVALID_ISSUER", errx.TypeAuthentication, http.StatusUnauthorized, "Invalid token")
	CodeInvalidAudience  = ErrRegistry.Register("INVALID_AUDIENCE", errx.TypeAuthentication, http.StatusUnauthorized, "Invalid token")
	CodeTokenNotYetValid = ErrRegistry.Register("TOKEN_NOT_YET_VALID", errx.TypeAuthentication, http.StatusUnauthorized, "Invalid or expired token")
	CodeInvalidSubject   = ErrRegistry.Register("INVALID_SUBJECT", errx.TypeAuthentication, http.StatusUnauthorized, "Invalid token")
	CodeMFARequired      = ErrRegistry.Register("MFA_REQUIRED", errx.TypeAuthentication, http.StatusUnauthorized, "MFA secret key is required")
	CodeMFAInvalid       = ErrRegistry.Register("MFA_INVALID", errx.TypeAuthentication, http.StatusUnauthorized, "Invalid MFA secret key")
	CodeAdminRequired    = ErrRegistry.Register("ADMIN_REQUIRED", errx.TypeAuthorization, http.StatusForbidden, "Administrator access required")
	CodeForbidden        = ErrRegistry.Register("FORBIDDEN", errx.TypeAuthorization, http.StatusForbidden, "Access denied")
	CodeIssueFailed      = ErrRegistry.Register("ISSUE_FAILED", errx.TypeInternal, http.StatusInternalServerError, "An unexpected error occurred")
)

func ErrNoToken() *errx.Error          { return ErrRegistry.New(CodeNoToken) }
func ErrInvalidSignature() *errx.Error { return ErrRegistry.New(CodeInvalidSignature) }
func ErrInvalidToken() *errx.Error     { return ErrRegistry.New(CodeInvalidToken) }
func ErrMalformedClaims() *errx.Error  { return ErrRegistry.New(CodeMalformedClaims) }
func ErrTokenExpired() *errx.Error     { return ErrRegistry.New(CodeTokenExpired) }
func ErrInvalidIssuer() *errx.Error    { return ErrRegistry.New(CodeInvalidIssuer) }
func ErrInvalidAudience() *errx.Error  { return ErrRegistry.New(CodeInvalidAudience) }
func ErrTokenNotYetValid() *errx.Error { return ErrRegistry.New(CodeTokenNotYetValid) }
func ErrInvalidSubject() *errx.Error   { return ErrRegistry.New(CodeInvalidSubject) }
func ErrMFARequired() *errx.Error      { return ErrRegistry.New(CodeMFARequired) }
func ErrMFAInvalid() *errx.Error       { return ErrRegistry.New(CodeMFAInvalid) }
func ErrAdminRequired() *errx.Error    { return ErrRegistry.New(CodeAdminRequired) }
func ErrForbidden() *errx.Error        { return ErrRegistry.New(CodeForbidden) }
func ErrIssueFailed() *errx.Error      { return ErrRegistry.New(CodeIssueFailed) }
