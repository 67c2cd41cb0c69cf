// Package channels connects chat transports to the message bus.
package channels

import (
	"context"

	"github.com/kamir/recepbot/internal/bus"
)

// Channel is a transport the gateway starts and stops.
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
}

// BaseChannel holds what every channel shares.
type BaseChannel struct {
	Bus *bus.MessageBus
}

// publish stamps the channel name and queues msg for the dispatcher.
func (b *BaseChannel) publish(name string, msg *bus.InboundMessage) {
	if b.Bus == nil {
		return
	}
	msg.Channel = name
	b.Bus.PublishInbound(msg)
}
