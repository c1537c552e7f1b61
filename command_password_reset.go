package verifyreset

import (
	"context"
	"time"
)

// SendResetPwd issues a reset token pair for the verified user matched by
// the identity fields in query.
func (s *Service) SendResetPwd(ctx context.Context, query map[string]any, notifierOptions map[string]any) (*User, error) {
	if err := cancelled(ctx, "password reset request"); err != nil {
		return nil, err
	}

	user, err := s.identifyUser(ctx, query)
	if err != nil {
		return nil, err
	}

	if !s.cfg.SkipIsVerifiedCheck && !user.IsVerified {
		return nil, ErrUserNotVerified
	}

	pair, err := issueTokens(s.tokens)
	if err != nil {
		return nil, err
	}

	user, err = s.patch(ctx, user.ID, Patch{
		FieldResetToken:      stringPtr(pair.long),
		FieldResetShortToken: stringPtr(pair.short),
		FieldResetExpires:    timePtr(s.clock.now().Add(s.cfg.ResetDelay)),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("reset token issued", "user", user.ID.String())

	return s.finish(ctx, NotifySendResetPwd, ActivityEventResetIssued, user, notifierOptions, "")
}

// ResetPwdLong consumes a long reset token and stores the new password.
func (s *Service) ResetPwdLong(ctx context.Context, token, password string) (*User, error) {
	if err := cancelled(ctx, "password reset"); err != nil {
		return nil, err
	}

	if token == "" {
		return nil, ErrInvalidToken
	}

	user, err := s.findOne(ctx, Query{FieldResetToken: token}, ErrInvalidToken)
	if err != nil {
		return nil, err
	}

	if !tokensEqual(user.ResetToken, token) {
		return nil, ErrInvalidToken
	}

	return s.consumeReset(ctx, user, password)
}

// ResetPwdShort consumes a short reset token for the user resolved by
// identFields.
func (s *Service) ResetPwdShort(ctx context.Context, token string, identFields map[string]any, password string) (*User, error) {
	if err := cancelled(ctx, "password reset"); err != nil {
		return nil, err
	}

	user, err := s.identifyUser(ctx, identFields)
	if err != nil {
		return nil, err
	}

	if !tokensEqual(user.ResetShortToken, token) {
		return nil, ErrInvalidToken
	}

	return s.consumeReset(ctx, user, password)
}

func (s *Service) consumeReset(ctx context.Context, user *User, password string) (*User, error) {
	if !s.cfg.SkipIsVerifiedCheck && !user.IsVerified {
		return nil, ErrUserNotVerified
	}

	if IsExpired(user.ResetExpires, s.clock.now()) {
		if _, err := s.patch(ctx, user.ID, clearReset()); err != nil {
			s.logger.Warn("failed to clear expired reset token", "user", user.ID.String(), "error", err)
		}
		return nil, ErrInvalidToken
	}

	hash, err := s.cfg.Hasher.Hash(password)
	if err != nil {
		return nil, invalidPayload(err, "invalid new password provided")
	}

	p := clearReset()
	p[FieldPasswordHash] = hash

	updated, err := s.patch(ctx, user.ID, p)
	if err != nil {
		return nil, err
	}

	s.logger.Info("password reset", "user", updated.ID.String())

	return s.finish(ctx, NotifyResetPwd, ActivityEventPasswordReset, updated, nil, "")
}

func clearReset() Patch {
	return Patch{
		FieldResetToken:      (*string)(nil),
		FieldResetShortToken: (*string)(nil),
		FieldResetExpires:    (*time.Time)(nil),
	}
}
