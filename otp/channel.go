package otp

import (
	"fmt"
	"regexp"
	"strings"
)

// Channel is the delivery medium of a code.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{6,14}$`)
	phoneStrip   = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")
)

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	return c == ChannelEmail || c == ChannelSMS
}

// NormalizeIdentifier validates identifier for channel and returns its
// canonical form: emails are trimmed and lowercased, phone numbers lose
// spaces, dashes, dots and parentheses.
func NormalizeIdentifier(channel Channel, identifier string) (string, error) {
	identifier = strings.TrimSpace(identifier)

	switch channel {
	case ChannelEmail:
		identifier = strings.ToLower(identifier)
		if !emailPattern.MatchString(identifier) {
			return "", fmt.Errorf("%w: invalid email address", ErrValidation)
		}
	case ChannelSMS:
		identifier = phoneStrip.Replace(identifier)
		if !phonePattern.MatchString(identifier) {
			return "", fmt.Errorf("%w: invalid phone number", ErrValidation)
		}
	default:
		return "", fmt.Errorf("%w: unsupported channel %q", ErrValidation, channel)
	}

	return identifier, nil
}
