package verifyreset_test

import (
	"context"
	"testing"
	"time"

	verifyreset "github.com/goliatone/go-verify-reset"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordChange(t *testing.T) {
	modes(t, func(t *testing.T, paginated bool) {
		ctx := context.Background()
		f := newFixture(t, paginated)
		original := mustHash(t, "old-password")
		u := f.repo.Insert(&verifyreset.User{Email: "a", IsVerified: true, PasswordHash: original})

		t.Run("wrong old password leaves the hash", func(t *testing.T) {
			_, err := f.svc.PasswordChange(ctx, "nope", "new-password", u)
			require.ErrorIs(t, err, verifyreset.ErrMismatchedHashAndPassword)

			stored, err := f.repo.Get(ctx, u.ID)
			require.NoError(t, err)
			assert.Equal(t, original, stored.PasswordHash)
		})

		t.Run("correct old password replaces the hash", func(t *testing.T) {
			got, err := f.svc.PasswordChange(ctx, "old-password", "new-password", u)
			require.NoError(t, err)
			assert.Empty(t, got.PasswordHash)

			stored, err := f.repo.Get(ctx, u.ID)
			require.NoError(t, err)
			assert.True(t, verifyreset.BcryptHasher{}.Compare("new-password", stored.PasswordHash))
			assert.Equal(t, verifyreset.NotifyPasswordChange, f.notifier.last(t).Action)
		})

		t.Run("missing user is not authenticated", func(t *testing.T) {
			_, err := f.svc.PasswordChange(ctx, "a", "b", nil)
			require.ErrorIs(t, err, verifyreset.ErrNotAuthenticated)
		})

		t.Run("deleted user is not found", func(t *testing.T) {
			_, err := f.svc.PasswordChange(ctx, "a", "b", &verifyreset.User{ID: uuid.New()})
			require.ErrorIs(t, err, verifyreset.ErrUserNotFound)
		})
	})
}

func TestEmailChange(t *testing.T) {
	modes(t, func(t *testing.T, paginated bool) {
		ctx := context.Background()

		t.Run("verified user stages the change", func(t *testing.T) {
			f := newFixture(t, paginated)
			u := f.repo.Insert(&verifyreset.User{Email: "old@example.com", IsVerified: true, PasswordHash: mustHash(t, "pw")})

			_, err := f.svc.EmailChange(ctx, "pw", "new@example.com", u)
			require.NoError(t, err)

			stored, err := f.repo.Get(ctx, u.ID)
			require.NoError(t, err)
			assert.Equal(t, "old@example.com", stored.Email)
			assert.Equal(t, map[string]any{"email": "new@example.com"}, stored.VerifyChanges)
			require.NotNil(t, stored.VerifyToken)
			assert.Equal(t, fixedNow.Add(5*24*time.Hour), *stored.VerifyExpires)

			n := f.notifier.last(t)
			assert.Equal(t, verifyreset.NotifyEmailChange, n.Action)
			assert.Equal(t, "new@example.com", n.NewEmail)

			_, err = f.svc.VerifySignupShort(ctx, *stored.VerifyShortToken, map[string]any{"email": "old@example.com"})
			require.NoError(t, err)

			stored, err = f.repo.Get(ctx, u.ID)
			require.NoError(t, err)
			assert.Equal(t, "new@example.com", stored.Email)
			assert.True(t, stored.IsVerified)
			assert.Nil(t, stored.VerifyChanges)
		})

		t.Run("unverified user changes directly", func(t *testing.T) {
			f := newFixture(t, paginated)
			u := f.repo.Insert(&verifyreset.User{Email: "old@example.com", PasswordHash: mustHash(t, "pw")})

			got, err := f.svc.EmailChange(ctx, "pw", " new@example.com ", u)
			require.NoError(t, err)
			assert.Equal(t, "new@example.com", got.Email)
		})

		t.Run("direct change when verification is disabled", func(t *testing.T) {
			cfg := verifyreset.DefaultConfig()
			cfg.SkipEmailChangeVerify = true
			f := newFixture(t, paginated, cfg)
			u := f.repo.Insert(&verifyreset.User{Email: "old@example.com", IsVerified: true, PasswordHash: mustHash(t, "pw")})

			got, err := f.svc.EmailChange(ctx, "pw", "new@example.com", u)
			require.NoError(t, err)
			assert.Equal(t, "new@example.com", got.Email)
			assert.True(t, got.IsVerified)
		})

		t.Run("wrong password fails", func(t *testing.T) {
			f := newFixture(t, paginated)
			u := f.repo.Insert(&verifyreset.User{Email: "old@example.com", PasswordHash: mustHash(t, "pw")})

			_, err := f.svc.EmailChange(ctx, "bad", "new@example.com", u)
			require.ErrorIs(t, err, verifyreset.ErrMismatchedHashAndPassword)
		})
	})
}
