package notify

import (
	"context"
	"strings"

	"github.com/MrEthical07/goCred/otp"
	"github.com/rs/zerolog"
)

// LogDispatcher logs dispatches instead of delivering them. Destinations
// are masked and message bodies are omitted unless IncludeContent is set,
// which is meant for local development only.
type LogDispatcher struct {
	logger         zerolog.Logger
	IncludeContent bool
}

// NewLogDispatcher creates a LogDispatcher writing to logger.
func NewLogDispatcher(logger zerolog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

// Send implements otp.Dispatcher. It never fails unless ctx is done.
func (d *LogDispatcher) Send(ctx context.Context, channel otp.Channel, destination, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ev := d.logger.Info().
		Str("component", "notify").
		Str("channel", string(channel)).
		Str("destination", MaskDestination(destination)).
		Int("message_len", len(message))
	if d.IncludeContent {
		ev = ev.Str("message", message)
	}
	ev.Msg("notification dispatched to log fallback")
	return nil
}

// MaskDestination keeps the first character and the domain of an email
// address, or the last four digits of a phone number.
func MaskDestination(destination string) string {
	if at := strings.LastIndexByte(destination, '@'); at > 0 {
		return destination[:1] + "***" + destination[at:]
	}
	if len(destination) > 4 {
		return strings.Repeat("*", len(destination)-4) + destination[len(destination)-4:]
	}
	return "****"
}
