package main

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	verifyreset "github.com/goliatone/go-verify-reset"
)

type BaseConfig struct {
	App         AppSettings `koanf:"app" json:"app"`
	Persistence Persistence `koanf:"persistence" json:"persistence"`
	Tokens      Tokens      `koanf:"tokens" json:"tokens"`
	Auth        Auth        `koanf:"auth" json:"auth"`
	Mail        Mail        `koanf:"mail" json:"mail"`
	Seed        Seed        `koanf:"seed" json:"seed"`
}

type AppSettings struct {
	Name    string `koanf:"name" json:"name"`
	Address string `koanf:"address" json:"address"`
	BaseURL string `koanf:"base_url" json:"base_url"`
	Debug   bool   `koanf:"debug" json:"debug"`
}

type Persistence struct {
	DSN string `koanf:"dsn" json:"dsn"`
}

type Tokens struct {
	LongTokenLen           int      `koanf:"long_token_len" json:"long_token_len"`
	ShortTokenLen          int      `koanf:"short_token_len" json:"short_token_len"`
	ShortTokenAlphanumeric bool     `koanf:"short_token_alphanumeric" json:"short_token_alphanumeric"`
	ResetDelayExpression   string   `koanf:"reset_delay" json:"reset_delay"`
	VerifyDelayExpression  string   `koanf:"verify_delay" json:"verify_delay"`
	IdentityFields         []string `koanf:"identity_fields" json:"identity_fields"`
	UniqueFields           []string `koanf:"unique_fields" json:"unique_fields"`
	SkipIsVerifiedCheck    bool     `koanf:"skip_is_verified_check" json:"skip_is_verified_check"`
	SkipEmailChangeVerify  bool     `koanf:"skip_email_change_verify" json:"skip_email_change_verify"`
}

type Auth struct {
	SigningKey                string   `koanf:"signing_key" json:"signing_key"`
	TokenExpirationExpression string   `koanf:"token_expiration" json:"token_expiration"`
	Issuer                    string   `koanf:"issuer" json:"issuer"`
	Audience                  []string `koanf:"audience" json:"audience"`
}

type Mail struct {
	Transport          string `koanf:"transport" json:"transport"`
	Host               string `koanf:"host" json:"host"`
	Port               int    `koanf:"port" json:"port"`
	User               string `koanf:"user" json:"user"`
	Password           string `koanf:"password" json:"password"`
	From               string `koanf:"from" json:"from"`
	InsecureSkipVerify bool   `koanf:"insecure_skip_verify" json:"insecure_skip_verify"`
}

type Seed struct {
	Email    string `koanf:"email" json:"email"`
	Password string `koanf:"password" json:"password"`
}

func (c BaseConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.App),
		validation.Field(&c.Auth),
		validation.Field(&c.Tokens),
	)
}

func (a AppSettings) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Address, validation.Required),
		validation.Field(&a.BaseURL, is.URL),
	)
}

func (a Auth) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.SigningKey, validation.Required, validation.Length(16, 0)),
	)
}

func (t Tokens) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.LongTokenLen, validation.Min(8)),
		validation.Field(&t.ShortTokenLen, validation.Min(4)),
	)
}

func (t Tokens) GetResetDelay() time.Duration {
	return mustDuration(t.ResetDelayExpression, 2*time.Hour)
}

func (t Tokens) GetVerifyDelay() time.Duration {
	return mustDuration(t.VerifyDelayExpression, 5*24*time.Hour)
}

func (a Auth) GetTokenExpiration() time.Duration {
	return mustDuration(a.TokenExpirationExpression, 24*time.Hour)
}

// ToConfig maps the token section onto the library configuration.
func (t Tokens) ToConfig() verifyreset.Config {
	cfg := verifyreset.DefaultConfig()
	if t.LongTokenLen > 0 {
		cfg.LongTokenLen = t.LongTokenLen
	}
	if t.ShortTokenLen > 0 {
		cfg.ShortTokenLen = t.ShortTokenLen
	}
	cfg.ShortTokenAlphanumeric = t.ShortTokenAlphanumeric
	cfg.ResetDelay = t.GetResetDelay()
	cfg.VerifyDelay = t.GetVerifyDelay()
	if len(t.IdentityFields) > 0 {
		cfg.IdentityFields = t.IdentityFields
	}
	if len(t.UniqueFields) > 0 {
		cfg.UniqueFields = t.UniqueFields
	}
	cfg.SkipIsVerifiedCheck = t.SkipIsVerifiedCheck
	cfg.SkipEmailChangeVerify = t.SkipEmailChangeVerify
	return cfg
}

func mustDuration(expr string, def time.Duration) time.Duration {
	dur, err := verifyreset.ParseDelay(expr, def)
	if err != nil {
		panic(
			fmt.Sprintf("unable to parse time: expr %s", expr),
		)
	}
	return dur
}
