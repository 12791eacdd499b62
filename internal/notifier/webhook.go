package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/wyfcoding/etfarb/internal/apperr"
	"github.com/wyfcoding/etfarb/internal/platform/logger"
)

// WebhookSender POSTs a Slack-style {text} payload to a fixed URL, grounded
// on the teacher's notification/infrastructure/sender/webhook.go. The URL
// is bound at construction rather than taken from Send's target argument,
// matching how KafkaSender binds its topic rather than relying on the
// dispatcher's generic per-notification target.
type WebhookSender struct {
	client *http.Client
	url    string
}

// NewWebhookSender builds a WebhookSender bound to url with a bounded
// request timeout.
func NewWebhookSender(url string) Sender {
	return &WebhookSender{client: &http.Client{Timeout: 10 * time.Second}, url: url}
}

func (s *WebhookSender) Send(ctx context.Context, target, subject, content string) error {
	payload := map[string]string{"text": fmt.Sprintf("*%s*\n%s", subject, content)}
	body, err := json.Marshal(payload)
	if err != nil {
		return apperr.Internal(err, "marshal webhook payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return apperr.Internal(err, "build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return apperr.Dependency("webhook delivery to %s failed: %v", s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apperr.Dependency("webhook %s returned status %d", s.url, resp.StatusCode)
	}
	logger.Debug(ctx, "webhook delivered", "url", s.url, "subject", subject)
	return nil
}
