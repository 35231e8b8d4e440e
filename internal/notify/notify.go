// Package notify delivers user-facing notifications. Delivery is always
// best-effort: a failed notification is logged and never fails the operation
// that produced it.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/mmynk/rollcall/internal/broker"
	"github.com/mmynk/rollcall/internal/observability"
)

// Notification is one message for one person.
type Notification struct {
	RecipientID string `json:"recipientId"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	Link        string `json:"link,omitempty"`
}

// Notifier dispatches notifications to whatever delivery channel backs it.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// BatchNotifier delivers several notifications in one round trip.
type BatchNotifier interface {
	Notifier
	NotifyAll(ctx context.Context, notes []Notification) error
}

// Send delivers the notifications, logging failures instead of returning
// them. Notes without a recipient are skipped and a nil notifier drops
// everything.
func Send(ctx context.Context, notifier Notifier, notes ...Notification) {
	if notifier == nil {
		return
	}
	pending := make([]Notification, 0, len(notes))
	for _, n := range notes {
		if n.RecipientID != "" {
			pending = append(pending, n)
		}
	}

	if batch, ok := notifier.(BatchNotifier); ok && len(pending) > 1 {
		err := batch.NotifyAll(ctx, pending)
		for _, n := range pending {
			record(n, err)
		}
		return
	}
	for _, n := range pending {
		record(n, notifier.Notify(ctx, n))
	}
}

func record(n Notification, err error) {
	if err != nil {
		observability.RecordNotification(false)
		slog.Warn("Failed to deliver notification",
			"recipient_id", n.RecipientID,
			"title", n.Title,
			"error", err,
		)
		return
	}
	observability.RecordNotification(true)
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n Notification) error {
	slog.Info("Notification",
		"recipient_id", n.RecipientID,
		"title", n.Title,
		"message", n.Message,
		"link", n.Link,
	)
	return nil
}

// KafkaNotifier publishes notifications to a topic keyed by recipient, for a
// downstream push service to deliver.
type KafkaNotifier struct {
	writer broker.Writer
	topic  string
}

// NewKafkaNotifier creates a KafkaNotifier.
func NewKafkaNotifier(writer broker.Writer, topic string) *KafkaNotifier {
	return &KafkaNotifier{writer: writer, topic: topic}
}

var _ BatchNotifier = (*KafkaNotifier)(nil)

func (k *KafkaNotifier) Notify(ctx context.Context, n Notification) error {
	return broker.PublishJSON(ctx, k.writer, k.topic, n.RecipientID, n)
}

// NotifyAll writes every note in a single produce request.
func (k *KafkaNotifier) NotifyAll(ctx context.Context, notes []Notification) error {
	msgs := make([]kafka.Message, 0, len(notes))
	for _, n := range notes {
		msg, err := broker.JSONMessage(n.RecipientID, n)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	if err := k.writer.WriteMessages(ctx, k.topic, msgs...); err != nil {
		return fmt.Errorf("failed to write to %s: %w", k.topic, err)
	}
	return nil
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *Recorder) Notify(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
	return nil
}

// For returns the notifications sent to recipientID, oldest first.
func (r *Recorder) For(recipientID string) []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Notification
	for _, n := range r.notes {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out
}

// All returns every recorded notification.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notes...)
}
