package cryptox

import (
	"net/http"

	"github.com/kyfplatform/kyf-api/pkg/errx"
)

var ErrRegistry = errx.NewRegistry("CRYPTO")

var (
	// Decrypt failures carry the same client message as an invalid token so
	// a tampered payload is indistinguishable from a bad signature outside.
	CodeDecryptFailed = ErrRegistry.Register("DECRYPT_FAILED", errx.TypeAuthentication, http.StatusUnauthorized, "Invalid token")
	CodeEncryptFailed = ErrRegistry.Register("ENCRYPT_FAILED", errx.TypeInternal, http.StatusInternalServerError, "An unexpected error occurred")
	CodeInvalidKey    = ErrRegistry.Register("INVALID_KEY", errx.TypeInternal, http.StatusInternalServerError, "An unexpected error occurred")
	CodeHashFailed    = ErrRegistry.Register("HASH_FAILED", errx.TypeInternal, http.StatusInternalServerError, "An unexpected error occurred")
)

func ErrDecryptFailed() *errx.Error { return ErrRegistry.New(CodeDecryptFailed) }
func ErrEncryptFailed() *errx.Error { return ErrRegistry.New(CodeEncryptFailed) }
func ErrInvalidKey() *errx.Error    { return ErrRegistry.New(CodeInvalidKey) }
func ErrHashFailed() *errx.Error    { return ErrRegistry.New(CodeHashFailed) }
