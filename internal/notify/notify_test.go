package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingNotifier struct {
	calls int
}

func (f *failingNotifier) Notify(context.Context, Notification) error {
	f.calls++
	return errors.New("push gateway unavailable")
}

type captureWriter struct {
	topic string
	msgs  []kafka.Message
	calls int
}

func (c *captureWriter) WriteMessages(_ context.Context, topic string, msgs ...kafka.Message) error {
	c.calls++
	c.topic = topic
	c.msgs = append(c.msgs, msgs...)
	return nil
}

func TestSendSwallowsFailures(t *testing.T) {
	f := &failingNotifier{}
	assert.NotPanics(t, func() {
		Send(context.Background(), f,
			Notification{RecipientID: "bob", Title: "a"},
			Notification{RecipientID: "carol", Title: "b"},
		)
	})
	assert.Equal(t, 2, f.calls)
}

func TestSendSkipsEmptyRecipientAndNilNotifier(t *testing.T) {
	r := &Recorder{}
	Send(context.Background(), r, Notification{Title: "nobody"}, Notification{RecipientID: "bob", Title: "hi"})
	require.Len(t, r.All(), 1)
	assert.Equal(t, "hi", r.For("bob")[0].Title)

	assert.NotPanics(t, func() {
		Send(context.Background(), nil, Notification{RecipientID: "bob"})
	})
}

func TestKafkaNotifier(t *testing.T) {
	w := &captureWriter{}
	n := NewKafkaNotifier(w, "rollcall.notifications")

	err := n.Notify(context.Background(), Notification{
		RecipientID: "bob",
		Title:       "Payment confirmed",
		Message:     "Your payment of 30.00 was confirmed",
		Link:        "/activities/act-1",
	})
	require.NoError(t, err)

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "rollcall.notifications", w.topic)
	assert.Equal(t, "bob", string(w.msgs[0].Key))

	var decoded Notification
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, "Payment confirmed", decoded.Title)
	assert.Equal(t, "/activities/act-1", decoded.Link)
}

func TestLogNotifier(t *testing.T) {
	assert.NoError(t, LogNotifier{}.Notify(context.Background(), Notification{RecipientID: "bob"}))
}

func TestSendBatchesKafkaNotifications(t *testing.T) {
	w := &captureWriter{}
	Send(context.Background(), NewKafkaNotifier(w, "rollcall.notifications"),
		Notification{RecipientID: "bob", Title: "Cost finalized"},
		Notification{Title: "no recipient"},
		Notification{RecipientID: "carol", Title: "Cost finalized"},
		Notification{RecipientID: "dave", Title: "Cost finalized"},
	)

	assert.Equal(t, 1, w.calls, "one produce request for the whole fan-out")
	require.Len(t, w.msgs, 3)
	assert.Equal(t, "bob", string(w.msgs[0].Key))
	assert.Equal(t, "dave", string(w.msgs[2].Key))
}
