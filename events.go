package lifeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// EventKind identifies a gateway lifecycle or runtime event.
type EventKind string

const (
	EventInstall           EventKind = "install"
	EventActivate          EventKind = "activate"
	EventSync              EventKind = "sync"
	EventPush              EventKind = "push"
	EventNotificationClick EventKind = "notificationclick"
	EventMessage           EventKind = "message"
)

// Event carries the payload of a dispatched gateway event. Which fields are
// populated depends on the kind: Tag for sync, Payload for push and message,
// Action and TargetURL for notification clicks.
type Event struct {
	Kind      EventKind
	Tag       string
	Payload   []byte
	Action    string
	TargetURL string
}

// EventHandler reacts to one dispatched event.
type EventHandler func(ctx context.Context, event Event) error

// Control message types accepted by the message event. These are the wire
// values the embedding application sends.
const (
	MessageSkipWaiting = "SKIP_WAITING"
	MessageCacheURLs   = "CACHE_URLS"
)

// ControlMessage is the decoded form of a message event payload.
type ControlMessage struct {
	Type string   `json:"type"`
	URLs []string `json:"urls,omitempty"`
}

// On replaces the handler for an event kind. Registering overrides the
// default behavior for that kind entirely.
func (gateway *Gateway) On(kind EventKind, handler EventHandler) {
	gateway.events[kind] = handler
}

// Dispatch routes an event to its registered handler. Events of an unknown
// kind are logged and dropped rather than failing the caller.
func (gateway *Gateway) Dispatch(ctx context.Context, event Event) error {
	handler, ok := gateway.events[event.Kind]
	if !ok {
		gateway.logf("WARN", fmt.Sprintf("no handler for event kind %s", event.Kind))
		return nil
	}
	if err := handler(ctx, event); err != nil {
		return fmt.Errorf("handling %s event : %w", event.Kind, err)
	}
	return nil
}

// registerDefaultHandlers wires the built-in behavior for each event kind.
func (gateway *Gateway) registerDefaultHandlers() {
	gateway.On(EventInstall, func(ctx context.Context, event Event) error {
		return gateway.Lifecycle.Install(ctx)
	})
	gateway.On(EventActivate, func(ctx context.Context, event Event) error {
		return gateway.Lifecycle.Activate(ctx)
	})
	gateway.On(EventSync, func(ctx context.Context, event Event) error {
		return gateway.Queue.Sync(ctx, event.Tag)
	})
	gateway.On(EventPush, func(ctx context.Context, event Event) error {
		return gateway.Dispatcher.HandlePush(ctx, event.Payload)
	})
	gateway.On(EventNotificationClick, func(ctx context.Context, event Event) error {
		return gateway.Dispatcher.HandleClick(ctx, event.Action, event.TargetURL)
	})
	gateway.On(EventMessage, func(ctx context.Context, event Event) error {
		return gateway.HandleMessage(ctx, event.Payload)
	})
}

// HandleMessage processes a control message from the embedding application.
// Unknown types and malformed payloads are ignored so a misbehaving sender
// cannot disturb the gateway.
func (gateway *Gateway) HandleMessage(ctx context.Context, payload []byte) error {
	var message ControlMessage
	if err := json.Unmarshal(payload, &message); err != nil {
		gateway.logf("WARN", "discarding unparseable control message")
		return nil
	}

	switch message.Type {
	case MessageSkipWaiting:
		if err := gateway.Lifecycle.SkipWaiting(ctx); err != nil {
			return fmt.Errorf("skipping waiting : %w", err)
		}
	case MessageCacheURLs:
		urls := make([]string, 0, len(message.URLs))
		for _, u := range message.URLs {
			if strings.TrimSpace(u) == "" {
				continue
			}
			urls = append(urls, u)
		}
		if len(urls) == 0 {
			return nil
		}
		generation := gateway.Lifecycle.CurrentGeneration()
		if err := gateway.Store.AddAll(ctx, generation, urls); err != nil {
			return fmt.Errorf("caching requested urls : %w", err)
		}
		gateway.logf("INFO", fmt.Sprintf("cached %d urls on demand into %s", len(urls), generation))
	default:
		gateway.logf("WARN", fmt.Sprintf("ignoring unknown control message type %q", message.Type))
	}
	return nil
}
