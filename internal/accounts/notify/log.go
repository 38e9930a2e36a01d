package notify

import (
	"context"

	"github.com/perchsocial/perch/pkg/slogx"
)

// LogSender logs codes instead of delivering them. Used in development when
// no SMTP host is configured.
type LogSender struct{}

func (LogSender) SendOTP(ctx context.Context, email, code, displayName string) error {
	slogx.FromContext(ctx).Info("otp issued (dev mode, not emailed)",
		"email", email,
		"display_name", displayName,
		"code", code,
	)
	return nil
}
