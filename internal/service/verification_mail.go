package service

import (
	"bigfootds/auth-api/config"
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// sender is the part of gomail.Dialer the mailer needs
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer sends verification emails through an SMTP server
type SMTPMailer struct {
	from    string
	baseURL string
	timeout time.Duration
	dialer  sender
}

func NewSMTPMailer(m config.MailConfig, h config.HostConfig) *SMTPMailer {
	username := m.Username
	if username == "" {
		username = m.Sender
	}

	return &SMTPMailer{
		from:    m.Sender,
		baseURL: publicURL(h),
		timeout: m.Timeout,
		dialer:  gomail.NewDialer(m.Host, m.Port, username, m.Password),
	}
}

func publicURL(h config.HostConfig) string {
	var s string
	if h.SSLEnabled {
		s = "s"
	}

	return fmt.Sprintf("http%v://%v", s, h.Domain)
}

// VerificationLink returns the link a user follows to verify their email
func (s *SMTPMailer) VerificationLink(code string) string {
	return fmt.Sprintf("%v/api/users/verify?token=%v", s.baseURL, url.QueryEscape(code))
}

// SendVerificationEmail mails the verification link for code to recipient.
// It gives up once ctx is done or the configured timeout passes.
func (s *SMTPMailer) SendVerificationEmail(ctx context.Context, recipient, code string) error {
	if recipient == s.from {
		return errors.New("invalid email address")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", "Verify your email address")
	m.SetBody("text/html", fmt.Sprintf("Click <a href='%v'>here</a> to verify your account.", s.VerificationLink(code)))

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	// gomail can't be cancelled, so a send that outlives ctx finishes in the
	// background and only gets logged
	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(m)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		go func() {
			if err := <-done; err != nil {
				zap.L().Warn("Late verification email failed", zap.String("recipient", recipient), zap.Error(err))
				return
			}

			// The caller gave up on this mail, so its link may already be dead
			zap.L().Warn("Late verification email delivered", zap.String("recipient", recipient))
		}()

		return fmt.Errorf("verification email not sent in time, %w", ctx.Err())
	}
}
