package verifyreset

import (
	"context"
	"strings"
)

// PasswordChange replaces the password of an authenticated user after
// checking oldPassword. The caller is trusted to have authenticated
// authUser.
func (s *Service) PasswordChange(ctx context.Context, oldPassword, newPassword string, authUser *User) (*User, error) {
	if err := cancelled(ctx, "password change"); err != nil {
		return nil, err
	}

	user, err := s.reload(ctx, authUser)
	if err != nil {
		return nil, err
	}

	if !s.cfg.Hasher.Compare(oldPassword, user.PasswordHash) {
		return nil, ErrMismatchedHashAndPassword
	}

	hash, err := s.cfg.Hasher.Hash(newPassword)
	if err != nil {
		return nil, invalidPayload(err, "invalid new password provided")
	}

	user, err = s.patch(ctx, user.ID, Patch{FieldPasswordHash: hash})
	if err != nil {
		return nil, err
	}

	s.logger.Info("password changed", "user", user.ID.String())

	return s.finish(ctx, NotifyPasswordChange, ActivityEventPasswordChanged, user, nil, "")
}

// EmailChange moves an authenticated user to newEmail. Verified users get
// the address staged in verify_changes with a fresh verify token pair when
// SkipEmailChangeVerify is unset; otherwise the email is applied directly.
func (s *Service) EmailChange(ctx context.Context, password, newEmail string, authUser *User) (*User, error) {
	if err := cancelled(ctx, "email change"); err != nil {
		return nil, err
	}

	newEmail = strings.TrimSpace(newEmail)

	user, err := s.reload(ctx, authUser)
	if err != nil {
		return nil, err
	}

	if !s.cfg.Hasher.Compare(password, user.PasswordHash) {
		return nil, ErrMismatchedHashAndPassword
	}

	kind := ActivityEventEmailChanged
	p := Patch{}

	if user.IsVerified && !s.cfg.SkipEmailChangeVerify {
		pair, err := issueTokens(s.tokens)
		if err != nil {
			return nil, err
		}
		p[FieldVerifyChanges] = map[string]any{FieldEmail: newEmail}
		p[FieldVerifyToken] = stringPtr(pair.long)
		p[FieldVerifyShortToken] = stringPtr(pair.short)
		p[FieldVerifyExpires] = timePtr(s.clock.now().Add(s.cfg.VerifyDelay))
		kind = ActivityEventEmailChangeStaged
	} else {
		p[FieldEmail] = newEmail
	}

	user, err = s.patch(ctx, user.ID, p)
	if err != nil {
		return nil, err
	}

	s.logger.Info("email change", "user", user.ID.String(), "staged", kind == ActivityEventEmailChangeStaged)

	return s.finish(ctx, NotifyEmailChange, kind, user, nil, newEmail)
}
