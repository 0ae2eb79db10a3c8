package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/hostwise/guestline-ai-platform/pkg/logging"
)

// ErrChannelUnavailable is returned when no sender is configured for
// the requested channel.
var ErrChannelUnavailable = errors.New("messaging: channel unavailable")

var twilioTracer = otel.Tracer("guestline.internal.messaging.twilio")

// TwilioSender posts SMS messages using Twilio's REST API.
type TwilioSender struct {
	accountSID string
	authToken  string
	from       string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewTwilioSender builds a sender with sane defaults.
func NewTwilioSender(accountSID, authToken, defaultFrom string, logger *logging.Logger) *TwilioSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &TwilioSender{
		accountSID: accountSID,
		authToken:  authToken,
		from:       defaultFrom,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

var _ Sender = (*TwilioSender)(nil)

// Send dispatches a single SMS. One attempt only: retry policy lives
// with the caller (the scheduler retries, the orchestrator escalates).
func (s *TwilioSender) Send(ctx context.Context, msg OutboundMessage) (string, error) {
	if s.accountSID == "" || s.authToken == "" {
		return "", errors.New("messaging: twilio credentials missing")
	}
	if msg.To == "" {
		return "", errors.New("messaging: to required")
	}
	from := msg.From
	if from == "" {
		from = s.from
	}
	if from == "" {
		return "", errors.New("messaging: from required")
	}
	if strings.TrimSpace(msg.Body) == "" {
		return "", errors.New("messaging: body required")
	}

	ctx, span := twilioTracer.Start(ctx, "messaging.twilio.send")
	defer span.End()
	span.SetAttributes(
		attribute.String("guestline.thread_id", msg.ThreadID),
		attribute.String("guestline.to", msg.To),
	)

	payload := url.Values{}
	payload.Set("To", msg.To)
	payload.Set("From", from)
	payload.Set("Body", msg.Body)

	endpoint := fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json", s.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("messaging: twilio send: %w", err)
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("messaging: twilio send failed: %s", formatTwilioError(resp.StatusCode, body))
		span.RecordError(err)
		return "", err
	}

	var parsed struct {
		SID    string `json:"sid"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.SID == "" {
		// Twilio accepted the message but the response was unreadable;
		// treat as sent with an unknown provider id.
		s.logger.Warn("twilio response missing sid", "to", msg.To)
	}

	s.logger.Info("twilio sms sent", "thread_id", msg.ThreadID, "to", msg.To, "provider_message_id", parsed.SID)
	return parsed.SID, nil
}

type twilioAPIError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

func formatTwilioError(status int, body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return fmt.Sprintf("status %d", status)
	}
	var parsed twilioAPIError
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil && parsed.Message != "" {
		if parsed.Code != 0 {
			return fmt.Sprintf("status %d code %d: %s", status, parsed.Code, parsed.Message)
		}
		return fmt.Sprintf("status %d: %s", status, parsed.Message)
	}
	return fmt.Sprintf("status %d: %s", status, trimmed)
}
