package authsrv

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kyfplatform/kyf-api/pkg/config"
	"github.com/kyfplatform/kyf-api/pkg/errx"
	"github.com/kyfplatform/kyf-api/pkg/iam/auth"
	"github.com/kyfplatform/kyf-api/pkg/kernel"
)

// AdminPathPrefix scopes the admin gate. Routes registered outside this
// prefix can never pass RequireAdmin.
const AdminPathPrefix = "/api/v1/admin"

// Handlers exposes the auth endpoints.
type Handlers struct {
	svc        *Service
	middleware *auth.TokenMiddleware
	audit      auth.AuditService
	tokenCfg   *config.TokenConfig
	secureCkie bool
}

// NewHandlers creates the HTTP handlers for the gate.
func NewHandlers(svc *Service, middleware *auth.TokenMiddleware, audit auth.AuditService, cfg *config.Config) *Handlers {
	return &Handlers{
		svc:        svc,
		middleware: middleware,
		audit:      audit,
		tokenCfg:   &cfg.Token,
		secureCkie: cfg.App.Env == "production",
	}
}

// RegisterRoutes mounts the auth endpoints and the admin route group.
func (h *Handlers) RegisterRoutes(app *fiber.App) {
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/generate_otp", h.GenerateOTP)
	authGroup.Post("/verify_otp", h.VerifyOTP)
	authGroup.Post("/refresh_token", h.RefreshToken)
	authGroup.Get("/me", h.middleware.Authenticate(), h.Me)

	adminGroup := app.Group(AdminPathPrefix,
		h.middleware.Authenticate(),
		h.middleware.RequireAdmin(AdminPathPrefix),
	)
	adminGroup.Get("/session", h.AdminSession)
}

type generateOTPRequest struct {
	Channel string `json:"channel"`
}

// GenerateOTP starts a challenge for an email or phone channel.
func (h *Handlers) GenerateOTP(c *fiber.Ctx) error {
	var req generateOTPRequest
	if err := c.BodyParser(&req); err != nil || req.Channel == "" {
		return errx.New("channel is required", errx.TypeValidation)
	}

	channel := kernel.NewChannel(req.Channel)
	if err := h.svc.RequestOTP(c.Context(), channel); err != nil {
		return err
	}

	if h.audit != nil {
		h.audit.LogOTPRequested(c.Context(), req.Channel, c.IP())
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Verification code sent",
	})
}

type verifyOTPRequest struct {
	Channel string `json:"channel"`
	Code    string `json:"code"`
}

// VerifyOTP consumes the challenge and returns a token pair. The tokens
// are also set as HTTP-only cookies.
func (h *Handlers) VerifyOTP(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := c.BodyParser(&req); err != nil || req.Channel == "" || req.Code == "" {
		return errx.New("channel and code are required", errx.TypeValidation)
	}

	channel := kernel.NewChannel(req.Channel)
	record, pair, err := h.svc.VerifyOTP(c.Context(), channel, req.Code)
	if err != nil {
		if h.audit != nil {
			h.audit.LogOTPVerification(c.Context(), req.Channel, false, c.IP())
		}
		return err
	}

	if h.audit != nil {
		h.audit.LogOTPVerification(c.Context(), req.Channel, true, c.IP())
	}

	h.setTokenCookie(c, auth.AccessTokenCookie, pair.AccessToken, h.tokenCfg.AccessTTL)
	h.setTokenCookie(c, auth.RefreshTokenCookie, pair.RefreshToken, h.tokenCfg.RefreshTTL)

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"user_id":       record.ID,
			"access_token":  pair.AccessToken,
			"refresh_token": pair.RefreshToken,
		},
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken exchanges a refresh token (body field or cookie) for a new
// access token.
func (h *Handlers) RefreshToken(c *fiber.Ctx) error {
	var req refreshRequest
	_ = c.BodyParser(&req)

	token := req.RefreshToken
	if token == "" {
		token = c.Cookies(auth.RefreshTokenCookie)
	}
	if token == "" {
		return auth.ErrNoToken()
	}

	access, err := h.svc.Refresh(c.Context(), token)
	if err != nil {
		return err
	}

	h.setTokenCookie(c, auth.AccessTokenCookie, access, h.tokenCfg.AccessTTL)

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"access_token": access,
		},
	})
}

// Me returns the authenticated principal.
func (h *Handlers) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromCtx(c)
	if !ok {
		return auth.ErrNoToken()
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    principal,
	})
}

// AdminSession returns the principal for a verified administrator.
func (h *Handlers) AdminSession(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromCtx(c)
	if !ok {
		return auth.ErrNoToken()
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    principal,
	})
}

func (h *Handlers) setTokenCookie(c *fiber.Ctx, name, value string, ttl time.Duration) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Expires:  time.Now().Add(ttl),
		HTTPOnly: true,
		Secure:   h.secureCkie,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})
}
