package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goCred/otp"
)

// ErrNoRoute is returned by Router.Send for channels without a sender.
var ErrNoRoute = errors.New("notify: no sender for channel")

// Sender delivers content to a target over one channel.
type Sender interface {
	Send(ctx context.Context, target, content string) error
}

// SenderFunc adapts a function to [Sender].
type SenderFunc func(ctx context.Context, target, content string) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, target, content string) error {
	return f(ctx, target, content)
}

// Router dispatches each channel to its own [Sender]. A Router is immutable
// after construction.
type Router struct {
	senders map[otp.Channel]Sender
}

// NewRouter copies routes into a new Router. Nil senders are skipped.
func NewRouter(routes map[otp.Channel]Sender) *Router {
	senders := make(map[otp.Channel]Sender, len(routes))
	for ch, s := range routes {
		if s != nil {
			senders[ch] = s
		}
	}
	return &Router{senders: senders}
}

// Supports reports whether a sender is registered for channel.
func (r *Router) Supports(channel otp.Channel) bool {
	_, ok := r.senders[channel]
	return ok
}

// Send implements otp.Dispatcher.
func (r *Router) Send(ctx context.Context, channel otp.Channel, destination, message string) error {
	s, ok := r.senders[channel]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoRoute, channel)
	}
	return s.Send(ctx, destination, message)
}

// ChannelSender binds an otp.Dispatcher to one channel so it can be mounted
// on a Router.
func ChannelSender(d otp.Dispatcher, channel otp.Channel) Sender {
	return SenderFunc(func(ctx context.Context, target, content string) error {
		return d.Send(ctx, channel, target, content)
	})
}

var (
	_ otp.Dispatcher       = (*Router)(nil)
	_ otp.ChannelSupporter = (*Router)(nil)
)
