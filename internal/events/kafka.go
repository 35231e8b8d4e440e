package events

import (
	"context"

	"github.com/mmynk/rollcall/internal/broker"
)

// KafkaForwarder writes selected event kinds to a topic keyed by activity.
type KafkaForwarder struct {
	writer broker.Writer
	topic  string
	kinds  map[Kind]bool
}

// NewKafkaForwarder forwards the given kinds; with no kinds it forwards
// settlements only.
func NewKafkaForwarder(writer broker.Writer, topic string, kinds ...Kind) *KafkaForwarder {
	if len(kinds) == 0 {
		kinds = []Kind{KindSettled}
	}
	set := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	return &KafkaForwarder{writer: writer, topic: topic, kinds: set}
}

func (f *KafkaForwarder) Forward(ctx context.Context, e Event) error {
	if !f.kinds[e.Kind] {
		return nil
	}
	return broker.PublishJSON(ctx, f.writer, f.topic, e.ActivityID, e)
}
