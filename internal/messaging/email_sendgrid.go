package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/hostwise/guestline-ai-platform/pkg/logging"
)

// SendGridSender sends guest emails via the SendGrid API. Used where
// SES is not provisioned.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

// SendGridConfig holds configuration for SendGrid.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// NewSendGridSender creates a SendGrid email sender, or nil when no
// API key is configured.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = "Guestline"
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

var _ Sender = (*SendGridSender)(nil)

// Send sends one email via SendGrid. SendGrid does not return a
// message id in the v3 send response body, so a local id is minted for
// the message log.
func (s *SendGridSender) Send(ctx context.Context, msg OutboundMessage) (string, error) {
	if s.client == nil {
		return "", errors.New("messaging: sendgrid client not configured")
	}
	if msg.To == "" {
		return "", errors.New("messaging: to required")
	}

	subject := msg.Subject
	if subject == "" {
		subject = "Message about your stay"
	}

	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail("", msg.To)
	message := mail.NewSingleEmail(from, subject, to, msg.Body, msg.Body)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		s.logger.Error("sendgrid send failed", "error", err, "to", msg.To)
		return "", fmt.Errorf("messaging: sendgrid send failed: %w", err)
	}
	if response.StatusCode >= 400 {
		s.logger.Error("sendgrid returned error status", "status", response.StatusCode, "to", msg.To)
		return "", fmt.Errorf("messaging: sendgrid returned status %d", response.StatusCode)
	}

	id := "sg_" + uuid.NewString()
	s.logger.Info("email sent via sendgrid", "to", msg.To, "subject", subject, "status", response.StatusCode)
	return id, nil
}
