package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Publisher writes envelopes to the outcome topic.
type Publisher interface {
	Publish(ctx context.Context, key string, env *Envelope) error
	Close() error
}

// KafkaPublisher implements Publisher using segmentio/kafka-go.
type KafkaPublisher struct {
	writer *kafka.Writer
}

const (
	// publishBatchTimeout caps how long a single outcome waits for batch-mates.
	publishBatchTimeout = 10 * time.Millisecond
	publishWriteTimeout = 5 * time.Second
)

// NewKafkaPublisher creates a publisher for topic on the comma-separated brokers.
// Writes are attempted once; a failed outcome is reported to the caller, not retried.
func NewKafkaPublisher(brokers, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(splitBrokers(brokers)...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
			BatchTimeout:           publishBatchTimeout,
			WriteTimeout:           publishWriteTimeout,
			MaxAttempts:            1,
		},
	}
}

// Publish writes env keyed by key, so one chat's outcomes stay on one partition.
func (p *KafkaPublisher) Publish(ctx context.Context, key string, env *Envelope) error {
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: value}); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

// Close flushes pending writes.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// ChannelPublisher is an in-process Publisher that feeds a ChannelConsumer.
type ChannelPublisher struct {
	mu     sync.Mutex
	topic  string
	target *ChannelConsumer
	closed bool
}

// NewChannelPublisher creates a publisher delivering to target.
func NewChannelPublisher(topic string, target *ChannelConsumer) *ChannelPublisher {
	return &ChannelPublisher{topic: topic, target: target}
}

func (p *ChannelPublisher) Publish(ctx context.Context, key string, env *Envelope) error {
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("publisher closed")
	}
	select {
	case p.target.ch <- ConsumerMessage{Topic: p.topic, Key: []byte(key), Value: value}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *ChannelPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func splitBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
