// Package notify delivers alerts to human channels. The Slack sink posts
// a formatted message per alert to an incoming-webhook URL.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/domain"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/ports"
)

// SlackConfig locates the incoming webhook.
type SlackConfig struct {
	WebhookURL string
	Channel    string
	Username   string
	Timeout    time.Duration
}

func (c *SlackConfig) ApplyDefaults() {
	if c.Username == "" {
		c.Username = "equinesync"
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
}

// SlackSink posts alerts to a Slack incoming webhook.
type SlackSink struct {
	cfg  SlackConfig
	http *http.Client
}

func NewSlackSink(cfg SlackConfig) *SlackSink {
	cfg.ApplyDefaults()
	return &SlackSink{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

func (s *SlackSink) Name() string { return "slack" }

type slackPayload struct {
	Channel  string `json:"channel,omitempty"`
	Username string `json:"username,omitempty"`
	Text     string `json:"text"`
}

// Publish posts one alert. A nil alert is a no-op.
func (s *SlackSink) Publish(ctx context.Context, alert *domain.Alert) error {
	if alert == nil {
		return nil
	}
	body, err := json.Marshal(slackPayload{
		Channel:  s.cfg.Channel,
		Username: s.cfg.Username,
		Text:     formatAlert(alert),
	})
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("slack webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("slack webhook returned %d: %s", resp.StatusCode, b)
	}
	return nil
}

func formatAlert(a *domain.Alert) string {
	var b strings.Builder
	icon := ":warning:"
	if a.Severity == domain.SeverityCritical {
		icon = ":rotating_light:"
	}
	fmt.Fprintf(&b, "%s *%s* [%s] horse `%s`", icon, a.Type, a.Severity, a.HorseID)
	if a.Leg != "" {
		fmt.Fprintf(&b, " leg `%s`", a.Leg)
	}
	fmt.Fprintf(&b, "\n%s", a.Message)
	if a.Recommendation != "" {
		fmt.Fprintf(&b, "\n_%s_", a.Recommendation)
	}
	fmt.Fprintf(&b, "\nvalue %.1f (threshold %.1f) at %s", a.Value, a.Threshold, a.Timestamp.Format(time.RFC3339))
	return b.String()
}

var _ ports.AlertSink = (*SlackSink)(nil)
