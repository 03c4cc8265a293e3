package authguard

import (
	"embed"
	"log/slog"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed messages/*.toml
var messageFiles embed.FS

// Message IDs and their English defaults.
var (
	msgAuthRequired = &i18n.Message{
		ID:    "AuthRequired",
		Other: "Authentication required.",
	}
	msgAlreadyAuthenticated = &i18n.Message{
		ID:    "AlreadyAuthenticated",
		Other: "Already authenticated",
	}
	msgSessionExpired = &i18n.Message{
		ID:    "SessionExpired",
		Other: "Your session has expired. Please sign in again.",
	}
)

var loadBundle = sync.OnceValues(func() (*i18n.Bundle, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	entries, err := messageFiles.ReadDir("messages")
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if _, err := bundle.LoadMessageFileFS(messageFiles, "messages/"+e.Name()); err != nil {
			return nil, err
		}
	}
	return bundle, nil
})

// Languages returns the languages with embedded messages.
func Languages() []language.Tag {
	bundle, err := loadBundle()
	if err != nil {
		return []language.Tag{language.English}
	}
	return bundle.LanguageTags()
}

// Messages localizes the reasons shown when the guard rejects a navigation.
type Messages struct {
	localizer *i18n.Localizer
	tag       language.Tag
}

// NewMessages returns messages for lang (a BCP 47 tag such as "en" or
// "de-AT"). Unknown or invalid languages fall back to English.
func NewMessages(lang string) *Messages {
	tag, err := language.Parse(lang)
	if err != nil {
		if lang != "" {
			slog.Default().Warn("authguard: invalid language, using English", "language", lang, "error", err)
		}
		tag = language.English
	}

	m := &Messages{tag: tag}
	bundle, err := loadBundle()
	if err != nil {
		slog.Default().Error("authguard: message files", "error", err)
		return m
	}
	m.localizer = i18n.NewLocalizer(bundle, tag.String())
	return m
}

// Language returns the requested language tag.
func (m *Messages) Language() language.Tag {
	return m.tag
}

// AuthRequired is the reason for redirecting to the login page.
func (m *Messages) AuthRequired() string {
	return m.localize(msgAuthRequired)
}

// AlreadyAuthenticated is the reason for leaving a guest-only page.
func (m *Messages) AlreadyAuthenticated() string {
	return m.localize(msgAlreadyAuthenticated)
}

// SessionExpired is shown when a signed-in user loses the session.
func (m *Messages) SessionExpired() string {
	return m.localize(msgSessionExpired)
}

func (m *Messages) localize(msg *i18n.Message) string {
	if m == nil || m.localizer == nil {
		return msg.Other
	}
	// A missing translation still yields the default message.
	s, _ := m.localizer.Localize(&i18n.LocalizeConfig{DefaultMessage: msg})
	if s == "" {
		return msg.Other
	}
	return s
}
