package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"shelver/internal/config"
)

const userAgent = "shelver/0.1"

// Event names a notification type.
type Event string

const (
	EventFileMoved            Event = "file_moved"
	EventFileReviewed         Event = "file_reviewed"
	EventDuplicateQuarantined Event = "duplicate_quarantined"
	EventRetryExhausted       Event = "retry_exhausted"
	EventRelocationFailed     Event = "relocation_failed"
	EventTest                 Event = "test"
)

// Payload carries event fields such as "path", "destination", "attempts"
// and "error".
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService returns an ntfy-backed service, or a no-op when no topic is set.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := cfg.NotificationTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventFileMoved:            cfg.Notifications.Moves,
			EventDuplicateQuarantined: cfg.Notifications.Moves,
			EventFileReviewed:         cfg.Notifications.Review,
			EventRetryExhausted:       cfg.Notifications.Errors,
			EventRelocationFailed:     cfg.Notifications.Errors,
			EventTest:                 true,
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
	if n == nil || n.client == nil || !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	name := filepath.Base(payload.str("path"))
	switch event {
	case EventFileMoved:
		return message{
			title: "Shelver - Filed",
			body:  fmt.Sprintf("%s → %s", name, payload.str("destination")),
			tags:  []string{"shelver", "moved"},
		}, true
	case EventFileReviewed:
		return message{
			title: "Shelver - Needs Review",
			body:  fmt.Sprintf("No rule matched %s; parked in %s", name, filepath.Dir(payload.str("destination"))),
			tags:  []string{"shelver", "review"},
		}, true
	case EventDuplicateQuarantined:
		return message{
			title: "Shelver - Duplicate",
			body:  fmt.Sprintf("%s already exists at %s; the copy was quarantined", name, payload.str("destination")),
			tags:  []string{"shelver", "duplicate"},
		}, true
	case EventRetryExhausted:
		return message{
			title:    "Shelver - Gave Up Waiting",
			body:     fmt.Sprintf("%s stayed locked after %v attempts and was left in place", name, payload["attempts"]),
			tags:     []string{"shelver", "retry", "warning"},
			priority: "high",
		}, true
	case EventRelocationFailed:
		return message{
			title:    "Shelver - Move Failed",
			body:     fmt.Sprintf("Could not move %s: %s", name, payload.str("error")),
			tags:     []string{"shelver", "error"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Shelver - Test",
			body:     "Notification system test",
			tags:     []string{"shelver", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (p Payload) str(key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
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
	if msg.priority != "" {
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
