package bus

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrClosed is returned by ConsumeInbound once the bus is closed and drained.
var ErrClosed = errors.New("message bus closed")

const defaultBuffer = 100

// MessageBus is a buffered inbound queue between channels and the dispatcher.
type MessageBus struct {
	inbound   chan *InboundMessage
	done      chan struct{}
	closeOnce sync.Once
}

// NewMessageBus creates a bus with the default buffer size.
func NewMessageBus() *MessageBus {
	return NewMessageBusWithBuffer(defaultBuffer)
}

// NewMessageBusWithBuffer creates a bus holding up to size pending messages.
func NewMessageBusWithBuffer(size int) *MessageBus {
	if size <= 0 {
		size = defaultBuffer
	}
	return &MessageBus{
		inbound: make(chan *InboundMessage, size),
		done:    make(chan struct{}),
	}
}

// PublishInbound queues msg. Blocks while the buffer is full until a consumer
// makes room or the bus is closed; drops msg after Close.
func (b *MessageBus) PublishInbound(msg *InboundMessage) {
	select {
	case <-b.done:
		slog.Warn("bus: publish after close dropped", "chat_id", msg.ChatID, "id", msg.ID)
		return
	default:
	}

	select {
	case b.inbound <- msg:
	case <-b.done:
		slog.Warn("bus: publish after close dropped", "chat_id", msg.ChatID, "id", msg.ID)
	}
}

// ConsumeInbound waits for the next message or ctx cancellation. After Close
// it returns the remaining queued messages, then ErrClosed.
func (b *MessageBus) ConsumeInbound(ctx context.Context) (*InboundMessage, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg := <-b.inbound:
		return msg, nil
	case <-b.done:
		select {
		case msg := <-b.inbound:
			return msg, nil
		default:
			return nil, ErrClosed
		}
	}
}

// Close stops accepting messages and releases blocked publishers. Already
// queued messages can still be consumed.
func (b *MessageBus) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}
