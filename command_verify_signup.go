package verifyreset

import (
	"context"
	"slices"
	"time"
)

// verifyLookupFields are accepted by ResendVerify on top of the identity
// allow-list.
var verifyLookupFields = []string{FieldVerifyToken, FieldVerifyShortToken}

// changeableFields may be staged in verify_changes and merged on verify.
var changeableFields = []string{FieldEmail, FieldUsername, FieldPhone}

// ResendVerify re-issues the verify token pair for the user matched by
// query. query holds identity fields or a current verify token.
func (s *Service) ResendVerify(ctx context.Context, query map[string]any, notifierOptions map[string]any) (*User, error) {
	if err := cancelled(ctx, "resend verification"); err != nil {
		return nil, err
	}

	allowed := slices.Concat(s.cfg.IdentityFields, verifyLookupFields)
	q, err := identityQuery(query, allowed)
	if err != nil {
		return nil, err
	}

	user, err := s.findOne(ctx, q, ErrUserNotFound)
	if err != nil {
		return nil, err
	}

	if alreadyVerified(user) {
		return nil, ErrAlreadyVerified
	}

	pair, err := issueTokens(s.tokens)
	if err != nil {
		return nil, err
	}

	user, err = s.patch(ctx, user.ID, Patch{
		FieldVerifyToken:      stringPtr(pair.long),
		FieldVerifyShortToken: stringPtr(pair.short),
		FieldVerifyExpires:    timePtr(s.clock.now().Add(s.cfg.VerifyDelay)),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("verify token reissued", "user", user.ID.String())

	return s.finish(ctx, NotifyResendVerifySignup, ActivityEventVerifyIssued, user, notifierOptions, "")
}

// VerifySignupLong consumes a long verify token.
func (s *Service) VerifySignupLong(ctx context.Context, token string) (*User, error) {
	if err := cancelled(ctx, "signup verification"); err != nil {
		return nil, err
	}

	if token == "" {
		return nil, ErrInvalidToken
	}

	user, err := s.findOne(ctx, Query{FieldVerifyToken: token}, ErrInvalidToken)
	if err != nil {
		return nil, err
	}

	if !tokensEqual(user.VerifyToken, token) {
		return nil, ErrInvalidToken
	}

	return s.consumeVerify(ctx, user)
}

// VerifySignupShort consumes a short verify token for the user resolved
// by identFields.
func (s *Service) VerifySignupShort(ctx context.Context, token string, identFields map[string]any) (*User, error) {
	if err := cancelled(ctx, "signup verification"); err != nil {
		return nil, err
	}

	user, err := s.identifyUser(ctx, identFields)
	if err != nil {
		return nil, err
	}

	if !tokensEqual(user.VerifyShortToken, token) {
		return nil, ErrInvalidToken
	}

	return s.consumeVerify(ctx, user)
}

func (s *Service) consumeVerify(ctx context.Context, user *User) (*User, error) {
	if alreadyVerified(user) {
		return nil, ErrAlreadyVerified
	}

	if IsExpired(user.VerifyExpires, s.clock.now()) {
		if _, err := s.patch(ctx, user.ID, clearVerify()); err != nil {
			s.logger.Warn("failed to clear expired verify token", "user", user.ID.String(), "error", err)
		}
		return nil, ErrInvalidToken
	}

	p := clearVerify()
	p[FieldIsVerified] = true
	for k, v := range user.VerifyChanges {
		col := NormalizeField(k)
		val, ok := v.(string)
		if !ok || !slices.Contains(changeableFields, col) {
			s.logger.Warn("ignoring staged change", "user", user.ID.String(), "field", k)
			continue
		}
		p[col] = val
	}

	updated, err := s.patch(ctx, user.ID, p)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user verified", "user", updated.ID.String())

	return s.finish(ctx, NotifyVerifySignup, ActivityEventVerified, updated, nil, "")
}

func clearVerify() Patch {
	return Patch{
		FieldVerifyToken:      (*string)(nil),
		FieldVerifyShortToken: (*string)(nil),
		FieldVerifyExpires:    (*time.Time)(nil),
		FieldVerifyChanges:    map[string]any(nil),
	}
}
