package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"plaques2gallery/internal/config"
)

const userAgent = "plaques2gallery/0.1.0"

// Event names a notification type.
type Event string

const (
	EventRunCompleted   Event = "run_completed"
	EventQuotaExhausted Event = "quota_exhausted"
	EventError          Event = "error"
	EventTest           Event = "test"
)

// Payload carries event fields. Values are formatted with fmt.
type Payload map[string]any

// Service publishes workflow events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed service, or a no-op when no topic is
// configured.
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
		enabled: map[Event]bool{
			EventRunCompleted:   cfg.Notifications.RunCompleted,
			EventQuotaExhausted: cfg.Notifications.QuotaExhausted,
			EventError:          cfg.Notifications.Errors,
			EventTest:           true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventRunCompleted:
		resolved := intValue(payload, "resolved")
		failed := intValue(payload, "failed")
		pending := intValue(payload, "pending")
		duration := durationText(payload["duration"])
		body := fmt.Sprintf("🖼️ %d resolved, %d failed, %d pending in %s", resolved, failed, pending, duration)
		if batches := textValue(payload, "batches"); batches != "" {
			body += "\nBatches: " + batches
		}
		title := "plaques2gallery - Run Complete"
		if failed > 0 {
			title = "plaques2gallery - Run Complete (with failures)"
		}
		return message{title: title, body: body, tags: []string{"plaques2gallery", "run", "completed"}}, true
	case EventQuotaExhausted:
		body := fmt.Sprintf("⏳ Search quota used: %d/%d", intValue(payload, "used"), intValue(payload, "limit"))
		if next := textValue(payload, "next_window"); next != "" {
			body += "\nResumes after " + next
		}
		if remaining := intValue(payload, "remaining"); remaining > 0 {
			body += fmt.Sprintf("\n%d plaque(s) waiting", remaining)
		}
		return message{title: "plaques2gallery - Quota Exhausted", body: body, tags: []string{"plaques2gallery", "quota"}}, true
	case EventError:
		var builder strings.Builder
		builder.WriteString("❌ Error")
		if label := textValue(payload, "context"); label != "" {
			builder.WriteString(" with ")
			builder.WriteString(label)
		}
		builder.WriteString(": ")
		if detail := textValue(payload, "error"); detail != "" {
			builder.WriteString(detail)
		} else {
			builder.WriteString("unknown")
		}
		return message{
			title:    "plaques2gallery - Error",
			body:     builder.String(),
			tags:     []string{"plaques2gallery", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "plaques2gallery - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"plaques2gallery", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func textValue(payload Payload, key string) string {
	value, ok := payload[key]
	if !ok || value == nil {
		return ""
	}
	if err, ok := value.(error); ok {
		return strings.TrimSpace(err.Error())
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

func intValue(payload Payload, key string) int {
	switch v := payload[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func durationText(value any) string {
	d, _ := value.(time.Duration)
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	return d.String()
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
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

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
