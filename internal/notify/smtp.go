package notify

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"
)

// Dialer is the part of gomail.Dialer used to deliver messages.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender sends codes straight through an SMTP server.
type SMTPSender struct {
	dialer  Dialer
	from    string
	appName string
	codeTTL time.Duration
}

func NewSMTPSender(host string, port int, username, password, from, appName string, codeTTL time.Duration) *SMTPSender {
	return NewSMTPSenderWithDialer(gomail.NewDialer(host, port, username, password), from, appName, codeTTL)
}

func NewSMTPSenderWithDialer(d Dialer, from, appName string, codeTTL time.Duration) *SMTPSender {
	return &SMTPSender{dialer: d, from: from, appName: appName, codeTTL: codeTTL}
}

// SendOTP mails code to email.  gomail has no context support, so ctx is
// only checked before dialing.
func (s *SMTPSender) SendOTP(ctx context.Context, email, code string, purpose Purpose) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subject, body := Compose(s.appName, code, purpose, int(s.codeTTL/time.Minute))

	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("notify: smtp send: %w", err)
	}
	return nil
}
