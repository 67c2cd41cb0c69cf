package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Consumer reads messages from the outcome topic.
type Consumer interface {
	// Start begins consuming.
	Start(ctx context.Context) error
	// Messages returns a channel of raw messages. It is closed when consumption stops.
	Messages() <-chan ConsumerMessage
	// Close stops the consumer.
	Close() error
}

// ConsumerMessage is a raw message from Kafka.
type ConsumerMessage struct {
	Topic string
	Key   []byte
	Value []byte
}

// KafkaConsumer implements the Consumer interface using segmentio/kafka-go.
type KafkaConsumer struct {
	brokers       string
	consumerGroup string
	topic         string
	reader        *kafka.Reader
	messages      chan ConsumerMessage
}

// NewKafkaConsumer creates a Kafka consumer for topic. A new consumer group starts at the newest offset.
func NewKafkaConsumer(brokers, consumerGroup, topic string) *KafkaConsumer {
	return &KafkaConsumer{
		brokers:       brokers,
		consumerGroup: consumerGroup,
		topic:         topic,
		messages:      make(chan ConsumerMessage, 100),
	}
}

// Start begins consuming the topic.
func (c *KafkaConsumer) Start(ctx context.Context) error {
	if c.reader != nil {
		return errors.New("consumer already started")
	}
	c.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:     splitBrokers(c.brokers),
		Topic:       c.topic,
		GroupID:     c.consumerGroup,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})

	go func(r *kafka.Reader) {
		defer close(c.messages)
		failures := 0
		for {
			msg, err := r.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, io.EOF) {
					return
				}
				failures++
				wait := readBackoff(failures)
				slog.Warn("KafkaConsumer: read error", "topic", c.topic, "error", err, "retry_in", wait)
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return
				}
				continue
			}
			failures = 0
			select {
			case c.messages <- ConsumerMessage{Topic: msg.Topic, Key: msg.Key, Value: msg.Value}:
			case <-ctx.Done():
				return
			}
		}
	}(c.reader)

	return nil
}

const (
	minReadBackoff = 200 * time.Millisecond
	maxReadBackoff = 10 * time.Second
)

// readBackoff doubles the pause after each consecutive read failure, up to maxReadBackoff.
func readBackoff(failures int) time.Duration {
	wait := minReadBackoff
	for i := 1; i < failures && wait < maxReadBackoff; i++ {
		wait *= 2
	}
	if wait > maxReadBackoff {
		wait = maxReadBackoff
	}
	return wait
}

// Messages returns the channel of consumed messages.
func (c *KafkaConsumer) Messages() <-chan ConsumerMessage {
	return c.messages
}

// Close stops the reader; the message channel closes once the read loop exits.
func (c *KafkaConsumer) Close() error {
	if c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// ChannelConsumer is an in-process Consumer implementation backed by a Go channel.
type ChannelConsumer struct {
	ch chan ConsumerMessage
}

// NewChannelConsumer creates an in-process consumer.
func NewChannelConsumer() *ChannelConsumer {
	return &ChannelConsumer{
		ch: make(chan ConsumerMessage, 100),
	}
}

// Start is a no-op for the channel consumer.
func (c *ChannelConsumer) Start(ctx context.Context) error { return nil }

// Messages returns the message channel.
func (c *ChannelConsumer) Messages() <-chan ConsumerMessage { return c.ch }

// Close closes the channel.
func (c *ChannelConsumer) Close() error {
	close(c.ch)
	return nil
}

// OutcomeHandler is called for every outcome envelope Tail reads.
type OutcomeHandler func(env *Envelope, out OutcomePayload)

// Tail consumes until ctx is cancelled or the consumer is drained. Messages
// that do not decode are logged and skipped.
func Tail(ctx context.Context, consumer Consumer, fn OutcomeHandler) error {
	if err := consumer.Start(ctx); err != nil {
		return fmt.Errorf("events tail: start consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-consumer.Messages():
			if !ok {
				return nil
			}
			handleMessage(msg, fn)
		}
	}
}

func handleMessage(msg ConsumerMessage, fn OutcomeHandler) {
	var env Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		slog.Warn("events: unmarshal envelope", "error", err, "topic", msg.Topic)
		return
	}

	switch env.Type {
	case EnvelopeOutcome:
		out, err := env.Outcome()
		if err != nil {
			slog.Warn("events: bad outcome payload", "error", err, "trace_id", env.TraceID)
			return
		}
		fn(&env, out)
	default:
		slog.Debug("events: unknown envelope type", "type", env.Type)
	}
}
