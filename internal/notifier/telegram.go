package notifier

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

type TelegramNotifier struct {
	token   string
	chatID  string
	retries int
	delay   time.Duration
	logger  *zap.Logger
}

func NewTelegramNotifier(token, chatID string, logger *zap.Logger) *TelegramNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TelegramNotifier{
		token:   token,
		chatID:  chatID,
		retries: defaultRetries,
		delay:   defaultDelay,
		logger:  logger,
	}
}

func (t *TelegramNotifier) Send(message string) error {
	apiURL := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.token)
	resp, err := http.PostForm(apiURL, url.Values{
		"chat_id": {t.chatID},
		"text":    {message},
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram send failed: %s", resp.Status)
	}
	return nil
}

// SendWithRetry retries transient send failures before giving up.
func (t *TelegramNotifier) SendWithRetry(message string) error {
	var err error
	for attempt := 1; attempt <= t.retries; attempt++ {
		if err = t.Send(message); err == nil {
			return nil
		}
		t.logger.Warn("notification send failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", t.retries),
			zap.Error(err))
		if attempt < t.retries {
			time.Sleep(t.delay)
		}
	}
	return err
}
