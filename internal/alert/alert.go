// Package alert delivers operator alerts: every alert is logged, and posted
// to a Slack incoming webhook when one is configured.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mesh-intelligence/eric/pkg/types"
)

const postTimeout = 5 * time.Second

// Counter is told about every alert raised.
type Counter interface {
	AlertRaised()
}

// Sink implements types.Alerter. Delivery failures are logged and never
// returned to the caller.
type Sink struct {
	logger     *slog.Logger
	webhookURL string
	http       *http.Client
	counter    Counter
}

// Option configures a Sink.
type Option func(*Sink)

// WithWebhook posts alerts to a Slack incoming webhook.
func WithWebhook(url string) Option {
	return func(s *Sink) { s.webhookURL = url }
}

// WithHTTPClient replaces the client used for webhook posts.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Sink) { s.http = hc }
}

// WithCounter counts alerts, e.g. in metrics.
func WithCounter(c Counter) Option {
	return func(s *Sink) { s.counter = c }
}

// New returns a sink logging to logger (slog.Default when nil).
func New(logger *slog.Logger, opts ...Option) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sink{
		logger: logger,
		http:   &http.Client{Timeout: postTimeout},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Alert logs msg with args at warn level and forwards it to the webhook.
func (s *Sink) Alert(ctx context.Context, msg string, args ...any) {
	if s.counter != nil {
		s.counter.AlertRaised()
	}
	s.logger.WarnContext(ctx, msg, append([]any{"alert", true}, args...)...)
	if s.webhookURL == "" {
		return
	}
	if err := s.post(ctx, Format(msg, args...)); err != nil {
		s.logger.ErrorContext(ctx, "alert delivery failed", "error", err, "alert_msg", msg)
	}
}

func (s *Sink) post(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return err
	}
	// Delivery outlives a cancelled request context.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), postTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}

// Format renders an alert as one line: the message followed by key=value
// pairs. A trailing key without a value is printed as is.
func Format(msg string, args ...any) string {
	var b strings.Builder
	b.WriteString(":rotating_light: ")
	b.WriteString(msg)
	for i := 0; i < len(args); i += 2 {
		b.WriteByte(' ')
		if i+1 == len(args) {
			fmt.Fprint(&b, args[i])
			break
		}
		fmt.Fprintf(&b, "%v=%v", args[i], args[i+1])
	}
	return b.String()
}

var _ types.Alerter = (*Sink)(nil)
