package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/kyfplatform/kyf-api/pkg/cryptox"
	"github.com/kyfplatform/kyf-api/pkg/errx"
	"github.com/kyfplatform/kyf-api/pkg/iam/identity"
	"github.com/kyfplatform/kyf-api/pkg/kernel"
)

// AccessTokenCookie is the cookie the access token is read from. The
// cookie takes precedence over the Authorization header.
const AccessTokenCookie = "access_token"

// RefreshTokenCookie carries the refresh token for the refresh endpoint.
const RefreshTokenCookie = "refresh_token"

const (
	localsPrincipal = "principal"
	localsRecord    = "identity_record"
)

// TokenMiddleware is the per-request authentication pipeline: extract,
// verify, resolve identity, then optional MFA and admin gates.
type TokenMiddleware struct {
	tokens TokenService
	store  identity.Store
	crypto *cryptox.Engine
	audit  AuditService
}

// NewTokenMiddleware creates the middleware chain.
func NewTokenMiddleware(tokens TokenService, store identity.Store, crypto *cryptox.Engine, audit AuditService) *TokenMiddleware {
	return &TokenMiddleware{
		tokens: tokens,
		store:  store,
		crypto: crypto,
		audit:  audit,
	}
}

// Authenticate verifies the access token and attaches the resolved
// Principal to the request. Exactly one identity-store read happens here;
// downstream gates reuse the resolved record.
func (m *TokenMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractToken(c)
		if token == "" {
			return ErrNoToken()
		}

		claims, err := m.tokens.Verify(token, KindAccess)
		if err != nil {
			m.auditRejection(c, err)
			return err
		}

		record, err := m.store.FindByID(c.Context(), claims.SubjectID)
		if err != nil {
			if e, ok := errx.As(err); ok && e.Type == errx.TypeNotFound {
				rejection := ErrInvalidSubject().WithDetail("user_id", claims.SubjectID.String())
				m.auditRejection(c, rejection)
				return rejection
			}
			return err
		}

		if err := record.ValidateMFAInvariant(); err != nil {
			return err
		}

		principal := record.Principal()
		c.Locals(localsPrincipal, &principal)
		c.Locals(localsRecord, record)

		return c.Next()
	}
}

// mfaBody is the request-body shape the MFA gate reads.
type mfaBody struct {
	MFASecretKey string `json:"MFASecretKey"`
}

// RequireMFA steps up verification for identities that have MFA enabled.
// Identities without MFA pass through untouched.
func (m *TokenMiddleware) RequireMFA() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromCtx(c)
		if !ok {
			return ErrNoToken()
		}

		if !principal.IsMFAEnabled {
			return c.Next()
		}

		record, ok := c.Locals(localsRecord).(*identity.Record)
		if !ok {
			return ErrNoToken()
		}

		var body mfaBody
		if err := c.BodyParser(&body); err != nil || body.MFASecretKey == "" {
			return ErrMFARequired()
		}

		if !m.crypto.Compare(body.MFASecretKey, record.MFASecretHash) {
			return ErrMFAInvalid()
		}

		return c.Next()
	}
}

// RequireAdmin gates a route group on an administrator record. The gate is
// bound to a path prefix: a request outside that prefix is rejected
// outright, so wiring the gate onto the wrong route can never grant
// access.
func (m *TokenMiddleware) RequireAdmin(pathPrefix string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !strings.HasPrefix(c.Path(), pathPrefix) {
			return ErrForbidden().WithDetail("path", c.Path())
		}

		principal, ok := PrincipalFromCtx(c)
		if !ok {
			return ErrNoToken()
		}

		if _, err := m.store.FindAdminByID(c.Context(), principal.ID); err != nil {
			if e, ok := errx.As(err); ok && e.Type == errx.TypeNotFound {
				if m.audit != nil {
					m.audit.LogAdminDenied(c.Context(), principal.ID, c.Path(), c.IP())
				}
				return ErrAdminRequired()
			}
			return err
		}

		return c.Next()
	}
}

// PrincipalFromCtx returns the authenticated principal attached by
// Authenticate.
func PrincipalFromCtx(c *fiber.Ctx) (*kernel.Principal, bool) {
	principal, ok := c.Locals(localsPrincipal).(*kernel.Principal)
	if !ok || !principal.IsValid() {
		return nil, false
	}
	return principal, true
}

func (m *TokenMiddleware) auditRejection(c *fiber.Ctx, err error) {
	if m.audit == nil {
		return
	}
	code := "UNKNOWN"
	if e, ok := errx.As(err); ok {
		code = e.Code
	}
	m.audit.LogTokenRejected(c.Context(), code, c.IP(), c.Path())
}

func extractToken(c *fiber.Ctx) string {
	if cookie := c.Cookies(AccessTokenCookie); cookie != "" {
		return cookie
	}

	authHeader := c.Get(fiber.HeaderAuthorization)
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}
