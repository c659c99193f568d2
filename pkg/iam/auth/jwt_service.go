package auth

import (
	"encoding/json"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kyfplatform/kyf-api/pkg/config"
	"github.com/kyfplatform/kyf-api/pkg/cryptox"
	"github.com/kyfplatform/kyf-api/pkg/iam/identity"
	"github.com/kyfplatform/kyf-api/pkg/kernel"
)

// signingMethod is the only accepted algorithm. Verification hard-restricts
// to this value; anything else is treated as a signature failure.
var signingMethod = jwt.SigningMethodHS512

var validMethods = []string{signingMethod.Alg()}

// JWTService implements TokenService. The claim set is encrypted with the
// crypto engine and carried as the single "payload" claim of an HS512
// signed JWT, so the signature is checked before any decryption attempt.
type JWTService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	crypto        *cryptox.Engine

	now func() time.Time
}

// NewJWTService creates the token service from config.
func NewJWTService(cfg *config.TokenConfig, crypto *cryptox.Engine) *JWTService {
	accessTTL := cfg.AccessTTL
	if accessTTL == 0 {
		accessTTL = 15 * time.Minute
	}
	refreshTTL := cfg.RefreshTTL
	if refreshTTL == 0 {
		refreshTTL = 7 * 24 * time.Hour
	}

	return &JWTService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		crypto:        crypto,
		now:           time.Now,
	}
}

// envelopeClaims is the wire shape of the signed token: nothing but the
// encrypted payload blob.
type envelopeClaims struct {
	Payload string `json:"payload"`
	jwt.RegisteredClaims
}

func (j *JWTService) secretFor(kind TokenKind) []byte {
	if kind == KindRefresh {
		return j.refreshSecret
	}
	return j.accessSecret
}

func (j *JWTService) ttlFor(kind TokenKind) time.Duration {
	if kind == KindRefresh {
		return j.refreshTTL
	}
	return j.accessTTL
}

// IssueAccessToken issues a short-lived token carrying profile hints.
func (j *JWTService) IssueAccessToken(record *identity.Record) (string, error) {
	extra := map[string]string{
		"email":    record.Email,
		"username": record.Username,
		"city":     record.City,
	}
	return j.issue(record.ID, KindAccess, extra)
}

// IssueRefreshToken issues a longer-lived token with minimal claims.
func (j *JWTService) IssueRefreshToken(id kernel.UserID) (string, error) {
	return j.issue(id, KindRefresh, nil)
}

func (j *JWTService) issue(id kernel.UserID, kind TokenKind, extra map[string]string) (string, error) {
	now := j.now()

	claims := TokenClaims{
		SubjectID: id,
		Issuer:    Issuer,
		Audience:  Audience,
		IssuedAt:  now,
		ExpiresAt: now.Add(j.ttlFor(kind)),
		Extra:     extra,
	}

	plaintext, err := json.Marshal(claims)
	if err != nil {
		return "", ErrRegistry.NewWithCause(CodeIssueFailed, err)
	}

	payload, err := j.crypto.Encrypt(plaintext)
	if err != nil {
		return "", ErrRegistry.NewWithCause(CodeIssueFailed, err)
	}

	token := jwt.NewWithClaims(signingMethod, envelopeClaims{Payload: payload})

	signed, err := token.SignedString(j.secretFor(kind))
	if err != nil {
		return "", ErrRegistry.NewWithCause(CodeIssueFailed, err)
	}
	return signed, nil
}

// Verify runs the full ordered check sequence: signature, decryption,
// claim parse, expiry, issuer, audience, issued-at. The order is part of
// the contract; each failure keeps its own internal code.
func (j *JWTService) Verify(tokenString string, kind TokenKind) (*TokenClaims, error) {
	var envelope envelopeClaims

	token, err := jwt.ParseWithClaims(
		tokenString,
		&envelope,
		func(t *jwt.Token) (interface{}, error) {
			return j.secretFor(kind), nil
		},
		jwt.WithValidMethods(validMethods),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || !token.Valid {
		return nil, ErrRegistry.NewWithCause(CodeInvalidSignature, err)
	}

	plaintext, err := j.crypto.Decrypt(envelope.Payload)
	if err != nil {
		return nil, ErrRegistry.NewWithCause(CodeInvalidToken, err)
	}

	var claims TokenClaims
	if err := json.Unmarshal(plaintext, &claims); err != nil {
		return nil, ErrRegistry.NewWithCause(CodeMalformedClaims, err)
	}

	now := j.now()
	if !claims.ExpiresAt.After(now) {
		return nil, ErrTokenExpired()
	}
	if claims.Issuer != Issuer {
		return nil, ErrInvalidIssuer().WithDetail("issuer", claims.Issuer)
	}
	if claims.Audience != Audience {
		return nil, ErrInvalidAudience().WithDetail("audience", claims.Audience)
	}
	if claims.IssuedAt.After(now) {
		return nil, ErrTokenNotYetValid()
	}

	return &claims, nil
}
