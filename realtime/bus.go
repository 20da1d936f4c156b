// Package realtime distributes events derived from completed writes to the
// websocket layer, across every running instance. With Redis enabled the
// bus publishes to a shared channel and each instance's subscription loop
// delivers to its local connections; without Redis it degrades to direct
// in-process delivery.
package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"campuswatch/core"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Channel is the Redis pub/sub channel all instances share.
const Channel = "campuswatch:events"

// EventType discriminates the payload carried by an Event.
type EventType string

const (
	EventMessage      EventType = "message"
	EventNotification EventType = "notification"
	EventReport       EventType = "report"
)

// Event is the wire format on the bus. Exactly one payload field is set,
// matching Type.
type Event struct {
	Type         EventType          `json:"type"`
	Message      *core.Message      `json:"message,omitempty"`
	Notification *core.Notification `json:"notification,omitempty"`
	Report       *core.Report       `json:"report,omitempty"`
}

// Handler consumes events as they arrive, on whichever instance they were
// published.
type Handler func(event Event)

// Bus implements cross-instance event distribution. The zero client means
// single-instance mode: events go straight to the local handler.
type Bus struct {
	client *redis.Client
	logger *zap.SugaredLogger

	mu      sync.RWMutex
	handler Handler

	cancel context.CancelFunc
	done   chan struct{}
}

// NewBus creates a bus. client may be nil to run without Redis.
func NewBus(client *redis.Client, logger *zap.SugaredLogger) *Bus {
	if logger == nil {
		panic("logger is required")
	}
	return &Bus{client: client, logger: logger}
}

// SetHandler installs the local delivery callback. Must be set before
// Start; events arriving with no handler are dropped.
func (b *Bus) SetHandler(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = h
}

// Start begins consuming the shared channel. A no-op without Redis.
func (b *Bus) Start(ctx context.Context) {
	if b.client == nil {
		return
	}

	ctx, b.cancel = context.WithCancel(ctx)
	b.done = make(chan struct{})

	sub := b.client.Subscribe(ctx, Channel)
	go func() {
		defer close(b.done)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					b.logger.Warnw("Dropping malformed bus event", "error", err)
					continue
				}
				b.deliver(event)
			}
		}
	}()

	b.logger.Infow("Realtime bus subscribed", "channel", Channel)
}

// Stop tears down the subscription loop.
func (b *Bus) Stop() {
	if b.cancel != nil {
		b.cancel()
		<-b.done
	}
}

func (b *Bus) deliver(event Event) {
	b.mu.RLock()
	handler := b.handler
	b.mu.RUnlock()
	if handler != nil {
		handler(event)
	}
}

// publish sends an event to every instance, or directly to the local
// handler in single-instance mode. Publish failures are logged and
// swallowed: the durable write already succeeded and stands.
func (b *Bus) publish(ctx context.Context, event Event) {
	if b.client == nil {
		b.deliver(event)
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.Errorw("Failed to encode bus event", "type", event.Type, "error", err)
		return
	}
	if err := b.client.Publish(ctx, Channel, payload).Err(); err != nil {
		b.logger.Errorw("Failed to publish bus event", "type", event.Type, "error", err)
	}
}

// PublishMessage announces a persisted chat message.
func (b *Bus) PublishMessage(ctx context.Context, msg core.Message) {
	b.publish(ctx, Event{Type: EventMessage, Message: &msg})
}

// PublishNotification announces a persisted notification.
func (b *Bus) PublishNotification(ctx context.Context, n core.Notification) {
	b.publish(ctx, Event{Type: EventNotification, Notification: &n})
}

// PublishReport announces a newly submitted report.
func (b *Bus) PublishReport(ctx context.Context, report core.Report) {
	b.publish(ctx, Event{Type: EventReport, Report: &report})
}
