package kernel

// ============================================================================
// Principal - the authenticated identity attached to a request
// ============================================================================

// Principal is derived per-request from verified token claims plus a fresh
// identity projection. It is never persisted; its lifetime is one request.
type Principal struct {
	ID           UserID `json:"id"`
	IsAdmin      bool   `json:"is_admin"`
	IsExpert     bool   `json:"is_expert"`
	IsActive     bool   `json:"is_active"`
	IsMFAEnabled bool   `json:"is_mfa_enabled"`
}

// IsValid reports whether the principal carries a resolved identity.
func (p *Principal) IsValid() bool {
	return p != nil && !p.ID.IsEmpty()
}

// ============================================================================
// Context Keys
// ============================================================================

type ContextKey string

const (
	// PrincipalContextKey stores the authenticated Principal on the request
	PrincipalContextKey ContextKey = "principal"

	// RequestIDKey stores the request id
	RequestIDKey ContextKey = "request_id"
)
