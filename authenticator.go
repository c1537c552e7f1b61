package verifyreset

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// AuthConfig configures session tokens issued by the Authenticator.
type AuthConfig struct {
	SigningKey      string
	TokenExpiration time.Duration
	Issuer          string
	Audience        []string
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

// LoginProvider performs a credential login.
type LoginProvider interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
}

// LogoutProvider is implemented by login providers that keep the session
// token of the last login, such as HTTPTransport.
type LogoutProvider interface {
	Logout()
}

// Authenticator checks credentials against the user repository and issues
// HS256 session tokens. It does not check verification, see
// Client.Authenticate.
type Authenticator struct {
	repo       UserRepository
	hasher     PasswordHasher
	signingKey []byte
	ttl        time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
	activity   ActivitySink
	clock      Clock

	missOnce sync.Once
	missHash string
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(repo UserRepository, cfg AuthConfig) *Authenticator {
	ttl := cfg.TokenExpiration
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Authenticator{
		repo:       repo,
		hasher:     BcryptHasher{},
		signingKey: []byte(cfg.SigningKey),
		ttl:        ttl,
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		logger:     defLogger{},
		activity:   noopActivitySink{},
	}
}

func (a *Authenticator) WithLogger(logger Logger) *Authenticator {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// WithActivitySink configures an ActivitySink for login events.
func (a *Authenticator) WithActivitySink(sink ActivitySink) *Authenticator {
	a.activity = normalizeActivitySink(sink)
	return a
}

// WithHasher overrides the password hasher.
func (a *Authenticator) WithHasher(h PasswordHasher) *Authenticator {
	if h != nil {
		a.hasher = h
	}
	return a
}

func (a *Authenticator) WithClock(c Clock) *Authenticator {
	a.clock = c
	return a
}

// Login verifies email and password. Unknown users and wrong passwords
// fail the same way.
func (a *Authenticator) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	res, err := a.repo.Find(ctx, Query{FieldEmail: email})
	if err != nil {
		a.logger.Error("Login find user error", "error", err)
		return nil, internalError(err, "failed to find user")
	}

	users := usersFrom(res)
	if len(users) != 1 {
		a.hasher.Compare(password, a.unknownUserHash())
		a.emit(ctx, ActivityEventLoginFailure, nil, map[string]any{"identifier": email})
		return nil, ErrMismatchedHashAndPassword
	}

	if !a.hasher.Compare(password, users[0].PasswordHash) {
		a.emit(ctx, ActivityEventLoginFailure, nil, map[string]any{"identifier": email})
		return nil, ErrMismatchedHashAndPassword
	}

	user := users[0]
	token, exp, err := a.sign(user)
	if err != nil {
		a.emit(ctx, ActivityEventLoginFailure, user, map[string]any{"error": err.Error()})
		return nil, err
	}

	a.emit(ctx, ActivityEventLoginSuccess, user, map[string]any{"identifier": email})

	return &LoginResult{
		Token:     token,
		ExpiresAt: exp,
		User:      SanitizeUserForClient(user),
	}, nil
}

// Validate parses a signed session token.
func (a *Authenticator) Validate(raw string) (*jwt.RegisteredClaims, error) {
	opts := []jwt.ParserOption{jwt.WithTimeFunc(a.clock.now)}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	if len(a.audience) > 0 {
		opts = append(opts, jwt.WithAudience(a.audience[0]))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.signingKey, nil
	}, opts...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, errors.Wrap(err, errors.CategoryAuth, "malformed session token").
			WithTextCode(TextCodeSessionMalformed).
			WithCode(errors.CodeUnauthorized)
	}

	if !token.Valid {
		return nil, ErrNotAuthenticated
	}

	return claims, nil
}

// UserFromToken validates raw and loads the user it was issued for.
func (a *Authenticator) UserFromToken(ctx context.Context, raw string) (*User, error) {
	claims, err := a.Validate(raw)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrNotAuthenticated
	}

	user, err := a.repo.Get(ctx, id)
	if err != nil {
		a.logger.Error("UserFromToken get user error", "error", err)
		return nil, ErrNotAuthenticated
	}

	return user, nil
}

// unknownUserHash is compared against when no user matches so that a miss
// costs the same as a wrong password.
func (a *Authenticator) unknownUserHash() string {
	a.missOnce.Do(func() {
		hash, err := a.hasher.Hash(uuid.NewString())
		if err != nil {
			a.logger.Error("failed to hash unknown user secret", "error", err)
			return
		}
		a.missHash = hash
	})
	return a.missHash
}

func (a *Authenticator) sign(user *User) (string, time.Time, error) {
	now := a.clock.now()
	exp := now.Add(a.ttl)

	var aud jwt.ClaimStrings
	if len(a.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(a.audience))
		copy(aud, a.audience)
	}

	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    a.issuer,
		Subject:   user.ID.String(),
		Audience:  aud,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.signingKey)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}
	return signed, exp, nil
}

func (a *Authenticator) emit(ctx context.Context, kind ActivityEventType, user *User, meta map[string]any) {
	actor := "user"
	if user == nil {
		actor = "unknown"
	}
	if err := normalizeActivitySink(a.activity).Record(ctx, userEvent(kind, user, actor, a.clock.now(), meta)); err != nil {
		a.logger.Warn("activity sink record error", "error", err)
	}
}
