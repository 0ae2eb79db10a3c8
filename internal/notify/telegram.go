package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hostwise/guestline-ai-platform/pkg/logging"
)

// TelegramNotifier posts escalation alerts to an operator chat via the
// Telegram bot API.
type TelegramNotifier struct {
	botToken   string
	chatID     string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewTelegramNotifier creates a notifier, or nil when not configured.
func NewTelegramNotifier(botToken, chatID string, logger *logging.Logger) *TelegramNotifier {
	if botToken == "" || chatID == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  "https://api.telegram.org",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

var _ Notifier = (*TelegramNotifier)(nil)

// NotifyEscalation posts the formatted alert to the operator chat.
func (n *TelegramNotifier) NotifyEscalation(ctx context.Context, esc Escalation) error {
	if n == nil {
		return nil
	}

	payload, err := json.Marshal(map[string]string{
		"chat_id": n.chatID,
		"text":    FormatAlert(esc),
	})
	if err != nil {
		return fmt.Errorf("notify: marshal telegram payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: telegram send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("notify: telegram status %d: %s", resp.StatusCode, string(body))
	}

	n.logger.Info("escalation alert sent", "thread_id", esc.ThreadID, "intent", esc.Intent)
	return nil
}

// ErrQueueFull is returned when the escalation queue is saturated.
var ErrQueueFull = errors.New("notify: escalation queue full")
