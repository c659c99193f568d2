package notifxses

import "github.com/kyfplatform/kyf-api/pkg/errx"

var sesErrors = errx.NewRegistry("NOTIFX_SES")

var (
	ErrSendFailed = sesErrors.Register("SEND_FAILED", errx.TypeExternal, 502, "Failed to send email via SES")
)
