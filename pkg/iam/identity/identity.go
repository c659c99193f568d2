package identity

import (
	"net/http"
	"time"

	"github.com/kyfplatform/kyf-api/pkg/errx"
	"github.com/kyfplatform/kyf-api/pkg/kernel"
)

// ============================================================================
// Records
// ============================================================================

// Record is the minimal identity projection the gate reads from the user
// store. Business profile fields beyond these are owned elsewhere.
type Record struct {
	ID            kernel.UserID `db:"id" json:"id"`
	Email         string        `db:"email" json:"email"`
	Phone         string        `db:"phone" json:"phone"`
	Username      string        `db:"username" json:"username"`
	City          string        `db:"city" json:"city"`
	IsAdmin       bool          `db:"is_admin" json:"is_admin"`
	IsExpert      bool          `db:"is_expert" json:"is_expert"`
	IsActive      bool          `db:"is_active" json:"is_active"`
	IsMFAEnabled  bool          `db:"is_mfa_enabled" json:"is_mfa_enabled"`
	MFASecretHash string        `db:"mfa_secret_hash" json:"-"`
	RefreshToken  string        `db:"refresh_token" json:"-"`
}

// AdminRecord is an administrator entry looked up by the admin gate.
type AdminRecord struct {
	ID        kernel.UserID `db:"id" json:"id"`
	Email     string        `db:"email" json:"email"`
	Role      string        `db:"role" json:"role"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

// Principal projects the record into a request-scoped principal.
func (r *Record) Principal() kernel.Principal {
	return kernel.Principal{
		ID:           r.ID,
		IsAdmin:      r.IsAdmin,
		IsExpert:     r.IsExpert,
		IsActive:     r.IsActive,
		IsMFAEnabled: r.IsMFAEnabled,
	}
}

// ValidateMFAInvariant enforces the cross-field rule: MFA enabled requires
// a stored secret hash. The user store owns the fields, but the gate must
// refuse to authenticate a record that violates it.
func (r *Record) ValidateMFAInvariant() error {
	if r.IsMFAEnabled && r.MFASecretHash == "" {
		return ErrInconsistentRecord().WithDetail("user_id", r.ID.String())
	}
	return nil
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("IDENTITY")

var (
	CodeSubjectNotFound    = ErrRegistry.Register("SUBJECT_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "User not found")
	CodeAdminNotFound      = ErrRegistry.Register("ADMIN_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Administrator not found")
	CodeInconsistentRecord = ErrRegistry.Register("INCONSISTENT_RECORD", errx.TypeInternal, http.StatusInternalServerError, "An unexpected error occurred")
)

func ErrSubjectNotFound() *errx.Error    { return ErrRegistry.New(CodeSubjectNotFound) }
func ErrAdminNotFound() *errx.Error      { return ErrRegistry.New(CodeAdminNotFound) }
func ErrInconsistentRecord() *errx.Error { return ErrRegistry.New(CodeInconsistentRecord) }
