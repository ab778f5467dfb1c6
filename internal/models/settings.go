package models

import "time"

// SettingsID is the fixed key of the settings singleton, in the store and in the cache
const SettingsID = "site"

// Special is the highlighted offer shown on the home page
type Special struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image,omitempty"`
	Badge       string `json:"badge,omitempty"`
}

// Integrations holds the credentials for the messaging bot and the remote store
type Integrations struct {
	TelegramBotToken  string `json:"telegramBotToken,omitempty"`
	TelegramChatID    string `json:"telegramChatId,omitempty"`
	StoreClientID     string `json:"storeClientId,omitempty"`
	StoreClientSecret string `json:"storeClientSecret,omitempty"`
}

// Settings is the site-wide branding and integration record. There is exactly
// one per deployment.
type Settings struct {
	ID           string       `json:"id" gorm:"primaryKey"`
	Logo         string       `json:"logo"`
	Phone        string       `json:"phone"`
	Special      Special      `json:"special" gorm:"embedded;embeddedPrefix:special_"`
	Integrations Integrations `json:"integrations" gorm:"embedded"`
	UpdatedAt    time.Time    `json:"-"`
}

// DefaultSettings is returned when no settings were ever saved
func DefaultSettings() Settings {
	return Settings{
		ID:    SettingsID,
		Logo:  "/static/logo.png",
		Phone: "+380000000000",
		Special: Special{
			Title:       "Pizza of the day",
			Description: "Ask about today's special",
			Badge:       "HOT",
		},
	}
}

// Redacted returns a copy without integration credentials, safe to serve publicly
func (s Settings) Redacted() Settings {
	s.Integrations = Integrations{}
	return s
}

// HasTelegram reports whether the messaging bot is configured
func (s Settings) HasTelegram() bool {
	return s.Integrations.TelegramBotToken != "" && s.Integrations.TelegramChatID != ""
}

// WithIntegrationDefaults fills empty integration credentials from fallback
func (s Settings) WithIntegrationDefaults(fallback Integrations) Settings {
	if s.Integrations.TelegramBotToken == "" {
		s.Integrations.TelegramBotToken = fallback.TelegramBotToken
	}
	if s.Integrations.TelegramChatID == "" {
		s.Integrations.TelegramChatID = fallback.TelegramChatID
	}
	if s.Integrations.StoreClientID == "" {
		s.Integrations.StoreClientID = fallback.StoreClientID
	}
	if s.Integrations.StoreClientSecret == "" {
		s.Integrations.StoreClientSecret = fallback.StoreClientSecret
	}
	return s
}
