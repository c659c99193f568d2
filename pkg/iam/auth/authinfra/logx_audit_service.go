package authinfra

import (
	"context"

	"github.com/kyfplatform/kyf-api/pkg/asyncx"
	"github.com/kyfplatform/kyf-api/pkg/kernel"
	"github.com/kyfplatform/kyf-api/pkg/logx"
)

// LogxAuditService implements auth.AuditService through structured logx
// logging. Emission is dispatched off the request goroutine; claim and
// integrity rejections keep their internal code here even though clients
// only ever see the generic message.
type LogxAuditService struct{}

func NewLogxAuditService() *LogxAuditService {
	return &LogxAuditService{}
}

func (s *LogxAuditService) LogTokenRejected(_ context.Context, code string, ip string, path string) {
	asyncx.Do(func() {
		logx.WithFields(logx.Fields{
			"audit_event": "token_rejected",
			"code":        code,
			"ip":          ip,
			"path":        path,
		}).Warn("audit: token rejected")
	})
}

func (s *LogxAuditService) LogTokenRefresh(_ context.Context, userID kernel.UserID, ip string) {
	asyncx.Do(func() {
		logx.WithFields(logx.Fields{
			"audit_event": "token_refresh",
			"user_id":     userID,
			"ip":          ip,
		}).Info("audit: token refresh")
	})
}

func (s *LogxAuditService) LogOTPRequested(_ context.Context, contact string, ip string) {
	asyncx.Do(func() {
		logx.WithFields(logx.Fields{
			"audit_event": "otp_requested",
			"contact":     contact,
			"ip":          ip,
		}).Info("audit: OTP requested")
	})
}

func (s *LogxAuditService) LogOTPVerification(_ context.Context, contact string, success bool, ip string) {
	asyncx.Do(func() {
		logx.WithFields(logx.Fields{
			"audit_event": "otp_verification",
			"contact":     contact,
			"success":     success,
			"ip":          ip,
		}).Info("audit: OTP verification")
	})
}

func (s *LogxAuditService) LogAdminDenied(_ context.Context, userID kernel.UserID, path string, ip string) {
	asyncx.Do(func() {
		logx.WithFields(logx.Fields{
			"audit_event": "admin_denied",
			"user_id":     userID,
			"path":        path,
			"ip":          ip,
		}).Warn("audit: admin access denied")
	})
}
