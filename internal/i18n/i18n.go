// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package i18n

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed translations/*.toml
var translationFS embed.FS

var (
	bundle   *i18n.Bundle
	matcher  language.Matcher
	initOnce sync.Once
	initErr  error
)

type localeKey struct{}

// Init initializes the i18n bundle with embedded translations.
// Calling it more than once is harmless.
func Init() error {
	initOnce.Do(func() {
		initErr = load()
	})
	return initErr
}

// load reads every embedded translations/active.*.toml file. English is
// the default language and must be present.
func load() error {
	b := i18n.NewBundle(language.English)
	b.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	files, err := fs.Glob(translationFS, "translations/active.*.toml")
	if err != nil {
		return err
	}
	for _, file := range files {
		if _, err := b.LoadMessageFileFS(translationFS, file); err != nil {
			return fmt.Errorf("loading %s: %w", file, err)
		}
	}

	bundle = b
	matcher = language.NewMatcher(b.LanguageTags())
	return nil
}

// locale is what WithLocale stores in a context.
type locale struct {
	lang      string
	localizer *i18n.Localizer
}

// WithLocale returns a context whose lookups use the base language of
// lang, e.g. "de" for de-AT.
func WithLocale(ctx context.Context, lang language.Tag) context.Context {
	_ = Init()
	base, _ := lang.Base()
	return context.WithValue(ctx, localeKey{}, &locale{
		lang:      base.String(),
		localizer: i18n.NewLocalizer(bundle, base.String()),
	})
}

// GetLocale returns the language set by WithLocale, or "en".
func GetLocale(ctx context.Context) string {
	if l := fromContext(ctx); l != nil {
		return l.lang
	}
	return language.English.String()
}

func fromContext(ctx context.Context) *locale {
	l, _ := ctx.Value(localeKey{}).(*locale)
	return l
}

// T translates a message by ID. Unknown IDs are returned unchanged.
func T(ctx context.Context, messageID string) string {
	return localize(ctx, &i18n.LocalizeConfig{MessageID: messageID})
}

// TData translates a message with template data.
func TData(ctx context.Context, messageID string, data map[string]any) string {
	return localize(ctx, &i18n.LocalizeConfig{MessageID: messageID, TemplateData: data})
}

// TPlural translates a message with plural support. The count is
// available to the template as {{.Count}}.
func TPlural(ctx context.Context, messageID string, count int) string {
	return localize(ctx, &i18n.LocalizeConfig{
		MessageID:    messageID,
		PluralCount:  count,
		TemplateData: map[string]any{"Count": count},
	})
}

func localize(ctx context.Context, cfg *i18n.LocalizeConfig) string {
	msg, err := getLocalizer(ctx).Localize(cfg)
	if err != nil {
		return cfg.MessageID
	}
	return msg
}

// MatchLanguage matches the best language from Accept-Language header.
// Only languages with a translation file are candidates.
func MatchLanguage(acceptLanguage string) language.Tag {
	if err := Init(); err != nil {
		return language.English
	}
	tag, _ := language.MatchStrings(matcher, acceptLanguage)
	return tag
}

func getLocalizer(ctx context.Context) *i18n.Localizer {
	if l := fromContext(ctx); l != nil {
		return l.localizer
	}
	_ = Init()
	return i18n.NewLocalizer(bundle, language.English.String())
}
