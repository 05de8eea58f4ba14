package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chrimage/content-mill/internal/config"
)

const userAgent = "content-mill/0.1.0"

// Run describes a finished run for notification purposes.
type Run struct {
	Kind     string
	Title    string
	Video    string
	Segments int
	Skipped  int
	Elapsed  time.Duration
}

// Service defines the notification surface used by the CLI.
type Service interface {
	NotifyRunCompleted(ctx context.Context, run Run) error
	NotifyRunFailed(ctx context.Context, run Run, err error) error
	TestNotification(ctx context.Context) error
	Enabled() bool
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Enabled() bool { return true }

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, run Run) error {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ %s ready: %s", kindLabel(run.Kind), titleOrUnknown(run.Title))
	fmt.Fprintf(&b, "\n%d segments in %s", run.Segments, formatElapsed(run.Elapsed))
	if run.Skipped > 0 {
		fmt.Fprintf(&b, " (%d images skipped)", run.Skipped)
	}
	if video := strings.TrimSpace(run.Video); video != "" {
		fmt.Fprintf(&b, "\nFile: %s", video)
	}
	return n.send(ctx, payload{
		title:   "content-mill - Video Ready",
		message: b.String(),
		tags:    []string{"content-mill", tagFor(run.Kind), "completed"},
	})
}

func (n *ntfyService) NotifyRunFailed(ctx context.Context, run Run, err error) error {
	reason := "unknown"
	if err != nil {
		reason = strings.TrimSpace(err.Error())
	}
	return n.send(ctx, payload{
		title:    "content-mill - Run Failed",
		message:  fmt.Sprintf("❌ %s failed: %s\n%s", kindLabel(run.Kind), titleOrUnknown(run.Title), reason),
		tags:     []string{"content-mill", tagFor(run.Kind), "error"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "content-mill - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"content-mill", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func kindLabel(kind string) string {
	kind = strings.TrimSpace(kind)
	if kind == "" {
		return "Video"
	}
	return strings.ToUpper(kind[:1]) + kind[1:]
}

func tagFor(kind string) string {
	if kind = strings.TrimSpace(kind); kind == "" {
		return "video"
	}
	return kind
}

func titleOrUnknown(title string) string {
	if title = strings.TrimSpace(title); title == "" {
		return "untitled"
	}
	return title
}

func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	return d.String()
}

type noopService struct{}

func (noopService) Enabled() bool                                     { return false }
func (noopService) NotifyRunCompleted(context.Context, Run) error     { return nil }
func (noopService) NotifyRunFailed(context.Context, Run, error) error { return nil }
func (noopService) TestNotification(context.Context) error            { return nil }
