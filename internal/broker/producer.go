// Package broker publishes JSON messages to Kafka topics.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Writer is the subset of KafkaProducer used by publishers.
type Writer interface {
	WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error
}

const (
	// DefaultBatchTimeout bounds how long a synchronous write waits for a
	// partial batch to fill. kafka-go's own default is one second.
	DefaultBatchTimeout = 5 * time.Millisecond
	DefaultWriteTimeout = 5 * time.Second
)

// Config holds the writer settings shared by every topic.
type Config struct {
	Brokers      []string
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = DefaultBatchTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	return c
}

// KafkaProducer keeps one writer per topic, created on first use.
type KafkaProducer struct {
	cfg Config

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

var _ Writer = (*KafkaProducer)(nil)

// NewKafkaProducer creates a KafkaProducer. Zero durations in cfg take the
// package defaults.
func NewKafkaProducer(cfg Config) *KafkaProducer {
	return &KafkaProducer{
		cfg:     cfg.withDefaults(),
		writers: make(map[string]*kafka.Writer),
	}
}

// WriteMessages writes msgs to topic and waits for the broker to acknowledge
// them.
func (p *KafkaProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	return p.writer(topic).WriteMessages(ctx, msgs...)
}

func (p *KafkaProducer) writer(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	w, ok := p.writers[topic]
	if !ok {
		w = p.newWriter(topic)
		p.writers[topic] = w
	}
	return w
}

// newWriter keys messages by activity or recipient so one key stays on one
// partition and keeps its order.
func (p *KafkaProducer) newWriter(topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(p.cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           p.cfg.BatchTimeout,
		WriteTimeout:           p.cfg.WriteTimeout,
		AllowAutoTopicCreation: true,
	}
}

// Close flushes and releases every writer.
func (p *KafkaProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for topic, w := range p.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close writer for %s: %w", topic, err)
		}
		delete(p.writers, topic)
	}
	return firstErr
}

// JSONMessage encodes payload as a message under key.
func JSONMessage(key string, payload any) (kafka.Message, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode message: %w", err)
	}
	return kafka.Message{
		Key:   []byte(key),
		Value: body,
		Time:  time.Now().UTC(),
	}, nil
}

// PublishJSON encodes payload and writes it to topic under key.
func PublishJSON(ctx context.Context, w Writer, topic, key string, payload any) error {
	msg, err := JSONMessage(key, payload)
	if err != nil {
		return err
	}
	if err := w.WriteMessages(ctx, topic, msg); err != nil {
		return fmt.Errorf("failed to write to %s: %w", topic, err)
	}
	return nil
}
