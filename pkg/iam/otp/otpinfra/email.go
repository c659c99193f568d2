package otpinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/kyfplatform/kyf-api/pkg/asyncx"
	"github.com/kyfplatform/kyf-api/pkg/kernel"
	"github.com/kyfplatform/kyf-api/pkg/notifx"
)

// OTPEmailTemplate is the registered template name for code delivery.
const OTPEmailTemplate = "otp_code"

// DefaultOTPTemplate renders the verification email body.
const DefaultOTPTemplate = `<p>Your verification code is <strong>{{.Code}}</strong>.</p>
<p>It expires in {{.TTLMinutes}} minutes. If you did not request it, ignore this email.</p>`

// EmailDeliverer implements otp.Deliverer over a notifx client. Phone
// channels go through the same mailer gateway address in this deployment;
// the gate itself stays channel-agnostic.
type EmailDeliverer struct {
	client     *notifx.Client
	from       string
	ttlMinutes int
}

// NewEmailDeliverer wires a notifx client as the OTP delivery collaborator.
func NewEmailDeliverer(client *notifx.Client, from string, ttlMinutes int) (*EmailDeliverer, error) {
	if err := client.RegisterTemplate(OTPEmailTemplate, DefaultOTPTemplate); err != nil {
		return nil, err
	}
	return &EmailDeliverer{client: client, from: from, ttlMinutes: ttlMinutes}, nil
}

// Send dispatches the email carrying the code. Transient mailer failures
// are retried with backoff; the error returned is the final attempt's.
func (d *EmailDeliverer) Send(ctx context.Context, channel kernel.Channel, code string) error {
	data := struct {
		Code       string
		TTLMinutes int
	}{Code: code, TTLMinutes: d.ttlMinutes}

	msg := notifx.EmailMessage{
		From:     d.from,
		To:       []string{channel.String()},
		Subject:  "Your KYF verification code",
		TextBody: fmt.Sprintf("Your verification code is %s", code),
	}

	return asyncx.RetryWithBackoff(ctx, 3, 200*time.Millisecond, func(ctx context.Context) error {
		return d.client.SendTemplatedEmail(ctx, OTPEmailTemplate, data, msg)
	})
}
