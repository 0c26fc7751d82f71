// Package email delivers out-of-band messages: the one-time login code,
// the registration welcome, and account status updates. Delivery failures
// are surfaced as errors for the caller to log; no flow in this server
// blocks on email.
package email

import (
	"context"
	"fmt"
	"html"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mora-fusion/server/internal/config"
)

// Sender abstracts the delivery provider.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type Service struct {
	sender Sender
	from   string
	logger zerolog.Logger
}

// NewService builds the delivery service. When cfg.Enabled is false the
// service logs instead of sending, which keeps development and test
// environments offline.
func NewService(cfg config.EmailConfig, logger zerolog.Logger) *Service {
	var sender Sender
	if cfg.Enabled {
		sender = newResendSender(cfg.ResendAPIKey, cfg.From)
	}
	return &Service{
		sender: sender,
		from:   cfg.From,
		logger: logger.With().Str("component", "email").Logger(),
	}
}

// NewServiceWithSender wires an explicit sender. Used by tests.
func NewServiceWithSender(sender Sender, from string, logger zerolog.Logger) *Service {
	return &Service{
		sender: sender,
		from:   from,
		logger: logger.With().Str("component", "email").Logger(),
	}
}

// SendMFACode delivers the six-digit login code.
func (s *Service) SendMFACode(ctx context.Context, to, name, code string, expiry time.Duration) error {
	body := fmt.Sprintf(
		"<p>Hello %s,</p><p>Your verification code is <strong>%s</strong>. It expires in %d minutes.</p>",
		html.EscapeString(name), html.EscapeString(code), int(expiry.Minutes()),
	)
	return s.send(ctx, to, "Your verification code", body)
}

// SendWelcome confirms a new registration and states the account status.
func (s *Service) SendWelcome(ctx context.Context, to, name, status string) error {
	statusLine := "Your account is pending approval."
	if status == "active" {
		statusLine = "Your account is active."
	}
	body := fmt.Sprintf(
		"<p>Hello %s,</p><p>Welcome to the Mora Fusion event system. %s</p>",
		html.EscapeString(name), statusLine,
	)
	return s.send(ctx, to, "Welcome to Mora Fusion events", body)
}

// SendStatusUpdate notifies an account holder of an admin status change.
func (s *Service) SendStatusUpdate(ctx context.Context, to, name, status string) error {
	body := fmt.Sprintf(
		"<p>Hello %s,</p><p>Your account status is now <strong>%s</strong>.</p>",
		html.EscapeString(name), html.EscapeString(status),
	)
	return s.send(ctx, to, "Your account status changed", body)
}

func (s *Service) send(ctx context.Context, to, subject, body string) error {
	if err := validateAddress(to); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}

	if s.sender == nil {
		s.logger.Info().
			Str("to", to).
			Str("subject", subject).
			Msg("email delivery disabled, skipping send")
		return nil
	}

	if err := s.sender.Send(ctx, to, subject, body); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	s.logger.Info().Str("to", to).Str("subject", subject).Msg("email sent")
	return nil
}

// validateAddress rejects malformed addresses and header injection.
func validateAddress(address string) error {
	addr, err := mail.ParseAddress(address)
	if err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}
	if strings.ContainsAny(addr.Address, "\r\n") {
		return fmt.Errorf("address contains newline characters")
	}
	return nil
}
