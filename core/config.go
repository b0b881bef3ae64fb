package core

import "fmt"

// Config holds the secrets and tuning the core components need. Secrets
// come from the environment at startup; a missing secret is fatal there,
// never a per-request failure.
type Config struct {
	// MasterKey derives the per-record encryption keys for stored API keys.
	MasterKey string

	// SessionSecret signs session tokens.
	SessionSecret string

	// SessionTTLSeconds is the fixed session token lifetime.
	SessionTTLSeconds int
}

func (c *Config) Validate() error {
	if c.MasterKey == "" {
		return fmt.Errorf("MASTER_KEY is required: %w", ErrMissingMasterKey)
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if c.SessionTTLSeconds <= 0 {
		c.SessionTTLSeconds = 3600
	}
	return nil
}
