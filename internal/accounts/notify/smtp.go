package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPConfig holds the connection settings for outbound mail.
type SMTPConfig struct {
	Host     string // e.g. "smtp.gmail.com"
	Port     int    // e.g. 587
	Username string
	Password string
	From     string // sender address shown to the recipient
}

// SMTPSender delivers reset codes over plain-auth SMTP.
type SMTPSender struct {
	cfg  SMTPConfig
	addr string
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{
		cfg:  cfg,
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
	}
}

func (s *SMTPSender) SendOTP(ctx context.Context, email, code, displayName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := buildOTPMessage(s.cfg.From, email, code, displayName)

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	if err := smtp.SendMail(s.addr, auth, s.cfg.From, []string{email}, msg); err != nil {
		return fmt.Errorf("send otp mail to %s: %w", email, err)
	}
	return nil
}

func buildOTPMessage(from, to, code, displayName string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	b.WriteString("Subject: Your password reset code\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "Hi %s,\r\n\r\n", displayName)
	fmt.Fprintf(&b, "Your one-time passcode is: %s\r\n\r\n", code)
	b.WriteString("It expires in 10 minutes. If you did not request a password reset, you can ignore this email.\r\n")
	return []byte(b.String())
}
