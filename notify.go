package lifeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bloodbridge/lifeline/domain"
)

// Defaults applied when an incoming push payload omits or malforms fields.
const (
	DefaultTitle = "BloodBridge"
	DefaultBody  = "You have a new notification"
	DefaultURL   = "/"
)

// Action identifiers carried on displayed alerts.
const (
	ActionOpen    = "open"
	ActionDismiss = "dismiss"
)

// Alert is a fully resolved notification ready for display.
type Alert struct {
	Title     string
	Body      string
	Icon      string
	Badge     string
	TargetURL string
	Actions   []domain.AlertAction
}

// Alerter displays alerts to the user.
type Alerter interface {
	Show(ctx context.Context, alert Alert) error
}

// Window is one open client surface.
type Window interface {
	Location() string
	Focus(ctx context.Context) error
}

// WindowRegistry enumerates and opens client windows.
type WindowRegistry interface {
	List(ctx context.Context) ([]Window, error)
	Open(ctx context.Context, url string) error
}

// Dispatcher turns push payloads into displayed alerts and resolves
// notification clicks against open windows.
type Dispatcher struct {
	Alerter Alerter
	Windows WindowRegistry
	Icon    string
	Badge   string
	Log     LogFunc
}

// ParseNotification decodes a push payload. Missing or unparseable fields
// fall back to defaults; a push with a garbage payload still notifies.
func ParseNotification(payload []byte) domain.Notification {
	notification := domain.Notification{
		Title: DefaultTitle,
		Body:  DefaultBody,
		URL:   DefaultURL,
	}
	if len(payload) == 0 {
		return notification
	}

	var decoded domain.Notification
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return notification
	}

	if decoded.Title != "" {
		notification.Title = decoded.Title
	}
	if decoded.Body != "" {
		notification.Body = decoded.Body
	}
	if decoded.URL != "" {
		notification.URL = decoded.URL
	}
	return notification
}

// HandlePush parses the payload and displays the resulting alert with the
// standard open and dismiss actions. Without a configured alert surface the
// push is logged and dropped.
func (d *Dispatcher) HandlePush(ctx context.Context, payload []byte) error {
	if d.Alerter == nil {
		d.Log("WARN", "push dropped, no alert surface configured")
		return nil
	}

	notification := ParseNotification(payload)

	alert := Alert{
		Title:     notification.Title,
		Body:      notification.Body,
		Icon:      d.Icon,
		Badge:     d.Badge,
		TargetURL: notification.URL,
		Actions: []domain.AlertAction{
			{Action: ActionOpen, Title: "Open"},
			{Action: ActionDismiss, Title: "Dismiss"},
		},
	}

	if err := d.Alerter.Show(ctx, alert); err != nil {
		return fmt.Errorf("showing alert : %w", err)
	}
	d.Log("INFO", "push notification displayed: "+alert.Title)
	return nil
}

// HandleClick resolves a notification interaction. Dismiss is a no-op. Open,
// or a click on the notification body, focuses an existing window already at
// the target URL when one exists and opens a new one otherwise. Without a
// configured window registry the click is logged and dropped.
func (d *Dispatcher) HandleClick(ctx context.Context, action string, targetURL string) error {
	if action == ActionDismiss {
		return nil
	}
	if d.Windows == nil {
		d.Log("WARN", "notification click dropped, no window registry configured")
		return nil
	}
	if targetURL == "" {
		targetURL = DefaultURL
	}

	windows, err := d.Windows.List(ctx)
	if err != nil {
		return fmt.Errorf("listing windows : %w", err)
	}

	for _, window := range windows {
		if window.Location() != targetURL {
			continue
		}
		if err := window.Focus(ctx); err != nil {
			return fmt.Errorf("focusing window at %s : %w", targetURL, err)
		}
		return nil
	}

	if err := d.Windows.Open(ctx, targetURL); err != nil {
		return fmt.Errorf("opening window at %s : %w", targetURL, err)
	}
	return nil
}
