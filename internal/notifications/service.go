package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"stencil/internal/config"
)

const userAgent = "Stencil/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyIngestCompleted(ctx context.Context, newItems, shipped, reactivated int) error
	NotifyReviewNeeded(ctx context.Context, orderNumber, reason string) error
	NotifySheetNested(ctx context.Context, sheetID, color string, itemCount int) error
	NotifyJobRegistered(ctx context.Context, jobCode string, itemCount int) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
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
		events:   cfg.Notifications,
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
	events   config.Notifications
}

func (n *ntfyService) NotifyIngestCompleted(ctx context.Context, newItems, shipped, reactivated int) error {
	if !n.events.Ingest {
		return nil
	}
	message := fmt.Sprintf("Ingest complete: %d new, %d shipped, %d reactivated", newItems, shipped, reactivated)
	data := payload{
		title:   "Stencil - Orders Ingested",
		message: message,
		tags:    []string{"stencil", "ingest", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyReviewNeeded(ctx context.Context, orderNumber, reason string) error {
	if !n.events.Review {
		return nil
	}
	orderNumber = strings.TrimSpace(orderNumber)
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "manual review required"
	}
	data := payload{
		title:    "Stencil - Review Needed",
		message:  fmt.Sprintf("Order %s: %s", orderNumber, reason),
		tags:     []string{"stencil", "review"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySheetNested(ctx context.Context, sheetID, color string, itemCount int) error {
	if !n.events.Sheets {
		return nil
	}
	data := payload{
		title:   "Stencil - Sheet Ready",
		message: fmt.Sprintf("Sheet %s (%s) nested with %d items", sheetID, color, itemCount),
		tags:    []string{"stencil", "sheet", "nested"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobRegistered(ctx context.Context, jobCode string, itemCount int) error {
	if !n.events.Jobs {
		return nil
	}
	data := payload{
		title:   "Stencil - Job Registered",
		message: fmt.Sprintf("Production job %s registered with %d items", jobCode, itemCount),
		tags:    []string{"stencil", "job", "registered"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.events.Errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Stencil - Error",
		message:  builder.String(),
		tags:     []string{"stencil", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Stencil - Test",
		message:  "Notification system test",
		tags:     []string{"stencil", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
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

type noopService struct{}

func (noopService) NotifyIngestCompleted(context.Context, int, int, int) error      { return nil }
func (noopService) NotifyReviewNeeded(context.Context, string, string) error        { return nil }
func (noopService) NotifySheetNested(context.Context, string, string, int) error    { return nil }
func (noopService) NotifyJobRegistered(context.Context, string, int) error          { return nil }
func (noopService) NotifyError(context.Context, error, string) error                { return nil }
func (noopService) TestNotification(context.Context) error                          { return nil }
