package verifyreset

import "time"

// Config controls token shape, expiry windows and identity rules.
type Config struct {
	LongTokenLen  int
	ShortTokenLen int
	// ShortTokenAlphanumeric draws short tokens from [0-9A-Za-z] instead
	// of digits only.
	ShortTokenAlphanumeric bool
	ResetDelay             time.Duration
	VerifyDelay            time.Duration
	// IdentityFields is the allow-list of fields a short token may be
	// paired with to identify a user.
	IdentityFields []string
	// UniqueFields is the allow-list checked by CheckUnique.
	UniqueFields        []string
	SkipIsVerifiedCheck bool
	// SkipEmailChangeVerify applies a new email on verified users right
	// away instead of staging it until the new address is confirmed.
	SkipEmailChangeVerify bool
	SanitizeUser          func(*User) *User
	Notifier              Notifier
	Hasher                PasswordHasher
}

// The zero value of every field selects its default.

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	return Config{
		LongTokenLen:   15,
		ShortTokenLen:  6,
		ResetDelay:     2 * time.Hour,
		VerifyDelay:    5 * 24 * time.Hour,
		IdentityFields: []string{FieldEmail},
		UniqueFields:   []string{FieldEmail, FieldUsername},
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.LongTokenLen <= 0 {
		c.LongTokenLen = def.LongTokenLen
	}
	if c.ShortTokenLen <= 0 {
		c.ShortTokenLen = def.ShortTokenLen
	}
	if c.ResetDelay <= 0 {
		c.ResetDelay = def.ResetDelay
	}
	if c.VerifyDelay <= 0 {
		c.VerifyDelay = def.VerifyDelay
	}
	if len(c.IdentityFields) == 0 {
		c.IdentityFields = def.IdentityFields
	}
	if len(c.UniqueFields) == 0 {
		c.UniqueFields = def.UniqueFields
	}
	if c.SanitizeUser == nil {
		c.SanitizeUser = SanitizeUserForClient
	}
	if c.Hasher == nil {
		c.Hasher = BcryptHasher{}
	}
	return c
}

func normalizeFields(fields []string) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = NormalizeField(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
