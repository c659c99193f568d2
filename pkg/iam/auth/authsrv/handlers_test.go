package authsrv_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kyfplatform/kyf-api/pkg/config"
	"github.com/kyfplatform/kyf-api/pkg/cryptox"
	"github.com/kyfplatform/kyf-api/pkg/errx"
	"github.com/kyfplatform/kyf-api/pkg/iam/auth"
	"github.com/kyfplatform/kyf-api/pkg/iam/auth/authsrv"
	"github.com/kyfplatform/kyf-api/pkg/iam/identity"
	"github.com/kyfplatform/kyf-api/pkg/iam/otp/otpinfra"
	"github.com/kyfplatform/kyf-api/pkg/iam/otp/otpsrv"
	"github.com/kyfplatform/kyf-api/pkg/kernel"
)

type httpFixture struct {
	app       *fiber.App
	store     *memStore
	deliverer *sinkDeliverer
}

func newHTTPFixture(t *testing.T) *httpFixture {
	t.Helper()

	cfg := &config.Config{
		App: config.AppConfig{
			Name: "kyf-api-test",
			Env:  "test",
		},
		Token: config.TokenConfig{
			AccessSecret:  "access-secret-for-tests",
			RefreshSecret: "refresh-secret-for-tests",
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
		},
		OTP: config.OTPConfig{
			TTL:         5 * time.Minute,
			MaxAttempts: 5,
			CodeLength:  6,
		},
	}

	engine, err := cryptox.NewEngine(testPayloadKey, 4)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	tokens := auth.NewJWTService(&cfg.Token, engine)
	store := &memStore{
		records: map[kernel.UserID]*identity.Record{
			"user-1": {
				ID:       "user-1",
				Email:    "user@example.com",
				Username: "testuser",
				IsActive: true,
			},
			"admin-1": {
				ID:       "admin-1",
				Email:    "admin@example.com",
				Username: "admin",
				IsAdmin:  true,
				IsActive: true,
			},
		},
		admins: map[kernel.UserID]*identity.AdminRecord{
			"admin-1": {ID: "admin-1", Email: "admin@example.com", Role: "superadmin"},
		},
	}

	deliverer := &sinkDeliverer{}
	otps := otpsrv.NewService(otpinfra.NewMemoryStore(), store, deliverer, &cfg.OTP)
	svc := authsrv.NewService(tokens, store, otps)
	middleware := auth.NewTokenMiddleware(tokens, store, engine, nil)
	handlers := authsrv.NewHandlers(svc, middleware, nil, cfg)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := errx.As(err); ok {
				return c.Status(e.HTTPStatus).JSON(e.ToEnvelope())
			}
			return c.Status(fiber.StatusInternalServerError).JSON(errx.InternalEnvelope())
		},
	})
	handlers.RegisterRoutes(app)

	return &httpFixture{app: app, store: store, deliverer: deliverer}
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) (*http.Response, map[string]any) {
	t.Helper()

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	var parsed map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&parsed)
	return resp, parsed
}

func login(t *testing.T, f *httpFixture, channel string) (access, refresh string) {
	t.Helper()

	resp, _ := postJSON(t, f.app, "/api/v1/auth/generate_otp", map[string]string{"channel": channel})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("generate_otp: status %d", resp.StatusCode)
	}

	resp, body := postJSON(t, f.app, "/api/v1/auth/verify_otp", map[string]string{
		"channel": channel,
		"code":    f.deliverer.lastCode,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify_otp: status %d, body %v", resp.StatusCode, body)
	}

	data, _ := body["data"].(map[string]any)
	access, _ = data["access_token"].(string)
	refresh, _ = data["refresh_token"].(string)
	if access == "" || refresh == "" {
		t.Fatalf("expected token pair, got %v", body)
	}
	return access, refresh
}

// --- Full flow ---

func TestHTTP_OTPLoginFlow(t *testing.T) {
	f := newHTTPFixture(t)
	access, _ := login(t, f, "user@example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	resp, err := f.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", resp.StatusCode)
	}

	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	data, _ := body["data"].(map[string]any)
	if data["id"] != "user-1" {
		t.Fatalf("expected principal user-1, got %v", body)
	}
}

func TestHTTP_VerifyOTPSetsCookies(t *testing.T) {
	f := newHTTPFixture(t)

	postJSON(t, f.app, "/api/v1/auth/generate_otp", map[string]string{"channel": "user@example.com"})
	resp, _ := postJSON(t, f.app, "/api/v1/auth/verify_otp", map[string]string{
		"channel": "user@example.com",
		"code":    f.deliverer.lastCode,
	})

	names := map[string]bool{}
	for _, c := range resp.Cookies() {
		names[c.Name] = true
		if !c.HttpOnly {
			t.Fatalf("cookie %s must be HTTP-only", c.Name)
		}
	}
	if !names[auth.AccessTokenCookie] || !names[auth.RefreshTokenCookie] {
		t.Fatalf("expected both token cookies, got %v", names)
	}
}

func TestHTTP_GenerateOTPValidation(t *testing.T) {
	f := newHTTPFixture(t)

	resp, body := postJSON(t, f.app, "/api/v1/auth/generate_otp", map[string]string{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing channel, got %d", resp.StatusCode)
	}
	if success, _ := body["success"].(bool); success {
		t.Fatal("expected failure envelope")
	}
}

func TestHTTP_VerifyOTPWrongCode(t *testing.T) {
	f := newHTTPFixture(t)

	postJSON(t, f.app, "/api/v1/auth/generate_otp", map[string]string{"channel": "user@example.com"})

	wrong := "000000"
	if wrong == f.deliverer.lastCode {
		wrong = "000001"
	}
	resp, _ := postJSON(t, f.app, "/api/v1/auth/verify_otp", map[string]string{
		"channel": "user@example.com",
		"code":    wrong,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for wrong code, got %d", resp.StatusCode)
	}
}

func TestHTTP_RefreshFromBody(t *testing.T) {
	f := newHTTPFixture(t)
	_, refresh := login(t, f, "user@example.com")

	resp, body := postJSON(t, f.app, "/api/v1/auth/refresh_token", map[string]string{
		"refreshToken": refresh,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d (%v)", resp.StatusCode, body)
	}
	data, _ := body["data"].(map[string]any)
	if token, _ := data["access_token"].(string); token == "" {
		t.Fatalf("expected new access token, got %v", body)
	}
}

func TestHTTP_RefreshFromCookie(t *testing.T) {
	f := newHTTPFixture(t)
	_, refresh := login(t, f, "user@example.com")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh_token", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: auth.RefreshTokenCookie, Value: refresh})

	resp, err := f.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh from cookie: expected 200, got %d", resp.StatusCode)
	}
}

func TestHTTP_RefreshWithoutToken(t *testing.T) {
	f := newHTTPFixture(t)

	resp, _ := postJSON(t, f.app, "/api/v1/auth/refresh_token", map[string]string{})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a refresh token, got %d", resp.StatusCode)
	}
}

// --- Admin group ---

func TestHTTP_AdminSession(t *testing.T) {
	f := newHTTPFixture(t)
	adminAccess, _ := login(t, f, "admin@example.com")
	userAccess, _ := login(t, f, "user@example.com")

	adminReq := httptest.NewRequest(http.MethodGet, "/api/v1/admin/session", nil)
	adminReq.Header.Set("Authorization", "Bearer "+adminAccess)
	resp, err := f.app.Test(adminReq)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin session: expected 200, got %d", resp.StatusCode)
	}

	userReq := httptest.NewRequest(http.MethodGet, "/api/v1/admin/session", nil)
	userReq.Header.Set("Authorization", "Bearer "+userAccess)
	resp, err = f.app.Test(userReq)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("non-admin on admin route: expected 403, got %d", resp.StatusCode)
	}
}
