package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/foxseedlab/dispatchd/internal/webhook"
	"golang.org/x/time/rate"
)

const sendTimeout = 5 * time.Second

var ErrAlertThrottled = errors.New("diagnostic alert throttled")

type HTTPSender struct {
	webhookURL string
	client     *http.Client
	limiter    *rate.Limiter
}

// NewHTTPSender posts alerts to webhookURL, allowing at most alertsPerMinute
// of them. Zero disables throttling.
func NewHTTPSender(webhookURL string, alertsPerMinute int) webhook.Sender {
	limit := rate.Inf
	burst := 0
	if alertsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(alertsPerMinute))
		burst = alertsPerMinute
	}
	return &HTTPSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: sendTimeout},
		limiter:    rate.NewLimiter(limit, burst),
	}
}

func (s *HTTPSender) SendAlert(ctx context.Context, alert webhook.Alert) error {
	if s.webhookURL == "" {
		return nil
	}
	if !s.limiter.Allow() {
		return ErrAlertThrottled
	}
	if alert.OccurredAt.IsZero() {
		alert.OccurredAt = time.Now().UTC()
	}

	b, err := json.Marshal(alert)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if !isHTTPSuccessStatus(resp.StatusCode) {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func isHTTPSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
