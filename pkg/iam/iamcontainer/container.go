package iamcontainer

import (
	"github.com/jmoiron/sqlx"
	"github.com/kyfplatform/kyf-api/pkg/config"
	"github.com/kyfplatform/kyf-api/pkg/cryptox"
	"github.com/kyfplatform/kyf-api/pkg/iam/auth"
	"github.com/kyfplatform/kyf-api/pkg/iam/auth/authinfra"
	"github.com/kyfplatform/kyf-api/pkg/iam/auth/authsrv"
	"github.com/kyfplatform/kyf-api/pkg/iam/identity"
	"github.com/kyfplatform/kyf-api/pkg/iam/identity/identityinfra"
	"github.com/kyfplatform/kyf-api/pkg/iam/otp"
	"github.com/kyfplatform/kyf-api/pkg/iam/otp/otpinfra"
	"github.com/kyfplatform/kyf-api/pkg/iam/otp/otpsrv"
	"github.com/kyfplatform/kyf-api/pkg/logx"
	"github.com/redis/go-redis/v9"
)

// ---------------------------------------------------------------------------
// Deps: explicit external dependencies this bounded context requires.
// No hidden globals, no ambient state — everything comes through here.
// ---------------------------------------------------------------------------

type Deps struct {
	DB    *sqlx.DB
	Redis *redis.Client
	Cfg   *config.Config

	// Deliverer is a cross-context dependency injected as an interface so
	// the IAM module has zero knowledge of the concrete delivery channel.
	Deliverer otp.Deliverer
}

// ---------------------------------------------------------------------------
// Container: the public surface of the IAM module.
// Only expose what cmd/ actually needs; infra details stay private.
// ---------------------------------------------------------------------------

type Container struct {
	Crypto        *cryptox.Engine
	TokenService  auth.TokenService
	IdentityStore identity.Store
	OTPService    *otpsrv.Service
	AuthService   *authsrv.Service
	AuthHandlers  *authsrv.Handlers
	Middleware    *auth.TokenMiddleware
}

// New constructs the IAM dependency graph.
// Order matters: crypto → stores → services → middleware → handlers.
func New(deps Deps) (*Container, error) {
	logx.Info("initializing IAM container")

	c := &Container{}

	crypto, err := cryptox.NewEngine(deps.Cfg.Crypto.PayloadKey, deps.Cfg.Crypto.BcryptCost)
	if err != nil {
		return nil, err
	}
	c.Crypto = crypto

	c.IdentityStore = identityinfra.NewPostgresIdentityStore(deps.DB)
	challengeStore := otpinfra.NewRedisStore(deps.Redis)
	audit := authinfra.NewLogxAuditService()

	c.TokenService = auth.NewJWTService(&deps.Cfg.Token, crypto)
	c.OTPService = otpsrv.NewService(challengeStore, c.IdentityStore, deps.Deliverer, &deps.Cfg.OTP)
	c.AuthService = authsrv.NewService(c.TokenService, c.IdentityStore, c.OTPService)

	c.Middleware = auth.NewTokenMiddleware(c.TokenService, c.IdentityStore, crypto, audit)
	c.AuthHandlers = authsrv.NewHandlers(c.AuthService, c.Middleware, audit, deps.Cfg)

	logx.Info("IAM container initialized")
	return c, nil
}
