// Package l10n renders user-facing notification text through go-i18n. Message
// catalogs are embedded; the locale travels in the request context.
package l10n

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

type localeKey struct{}

// WithLocale returns a context carrying tag for message rendering.
func WithLocale(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, localeKey{}, tag)
}

// LocaleFrom returns the tag stored by WithLocale.
func LocaleFrom(ctx context.Context) (language.Tag, bool) {
	tag, ok := ctx.Value(localeKey{}).(language.Tag)
	return tag, ok
}

// Catalog holds the loaded bundle and one localizer per supported tag.
type Catalog struct {
	tags       []language.Tag
	localizers map[string]*i18n.Localizer
	logger     zerolog.Logger
}

// SupportedTags lists the embedded locales. English comes first and is the
// fallback.
var SupportedTags = []language.Tag{language.English, language.Spanish}

// New loads the embedded catalogs.
func New(logger zerolog.Logger) (*Catalog, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	c := &Catalog{
		tags:       SupportedTags,
		localizers: make(map[string]*i18n.Localizer, len(SupportedTags)),
		logger:     logger,
	}
	for _, tag := range SupportedTags {
		canonical := tag.String()
		if _, err := bundle.LoadMessageFileFS(localeFS, fmt.Sprintf("locales/%s.json", canonical)); err != nil {
			return nil, fmt.Errorf("load locale %s: %w", canonical, err)
		}
		c.localizers[canonical] = i18n.NewLocalizer(bundle, canonical)
	}
	return c, nil
}

func (c *Catalog) localizer(ctx context.Context) *i18n.Localizer {
	tag, ok := LocaleFrom(ctx)
	if !ok {
		return c.localizers[c.tags[0].String()]
	}
	matcher := language.NewMatcher(c.tags)
	_, idx, _ := matcher.Match(tag)
	return c.localizers[c.tags[idx].String()]
}

// OTPMessage renders the notification carrying code for channel ("email" or
// "sms"). Unknown channels use the email template. Rendering errors fall back
// to a fixed English sentence and are logged without the code.
func (c *Catalog) OTPMessage(ctx context.Context, channel, purpose, code string, expiry time.Duration) string {
	id := "otp_message_email"
	if channel == "sms" {
		id = "otp_message_sms"
	}
	minutes := int(expiry / time.Minute)

	str, err := c.localizer(ctx).Localize(&i18n.LocalizeConfig{
		MessageID: id,
		TemplateData: map[string]any{
			"Code":    code,
			"Purpose": purpose,
			"Minutes": minutes,
		},
		PluralCount: minutes,
	})
	if err != nil {
		c.logger.Error().Err(err).Str("id", id).Msg("Error getting localized message")
		return fmt.Sprintf("Your verification code is %s.", code)
	}
	return str
}
