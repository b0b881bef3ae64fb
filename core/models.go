package core

import "time"

// AIProvider identifies a third-party AI service an API key belongs to.
type AIProvider string

const (
	ProviderOpenAI    AIProvider = "openai"
	ProviderAnthropic AIProvider = "anthropic"
	ProviderGemini    AIProvider = "gemini"
)

func (p AIProvider) Valid() bool {
	switch p {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini:
		return true
	}
	return false
}

// SiteAuthorization holds the current Webflow access token for a site.
// One row per site; re-authorization overwrites the previous token.
type SiteAuthorization struct {
	SiteID      string
	AccessToken string
	UpdatedAt   time.Time
}

// UserAuthorization records an access token obtained on behalf of a user.
// Repeated logins append rows; the most recent row is authoritative.
type UserAuthorization struct {
	UserID      string
	AccessToken string
	CreatedAt   time.Time
}

// APIKeyEntry is an encrypted AI-provider API key scoped to a user and site.
// The key is encrypted before it reaches the store and is never persisted
// or logged in plaintext.
type APIKeyEntry struct {
	UserID       string
	SiteID       string
	Provider     AIProvider
	EncryptedKey string
	CreatedAt    time.Time
}

// ProviderSelection marks which provider a user last configured for a site.
// It always points at a provider that has a stored APIKeyEntry.
type ProviderSelection struct {
	UserID   string
	SiteID   string
	Provider AIProvider
}

// Identity is a verified Webflow user identity.
type Identity struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}
