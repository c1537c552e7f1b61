package verifyreset_test

import (
	"context"
	"testing"
	"time"

	verifyreset "github.com/goliatone/go-verify-reset"
	"github.com/goliatone/go-verify-reset/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServiceConfig(t *testing.T) {
	svc := verifyreset.NewService(nil, verifyreset.Config{
		IdentityFields: []string{"email", "phone"},
		UniqueFields:   []string{"resetShortToken"},
	})
	cfg := svc.Config()

	assert.Equal(t, []string{verifyreset.FieldEmail, verifyreset.FieldPhone}, cfg.IdentityFields)
	assert.Equal(t, []string{verifyreset.FieldResetShortToken}, cfg.UniqueFields)
	assert.Equal(t, 15, cfg.LongTokenLen)
	assert.Equal(t, 6, cfg.ShortTokenLen)
	assert.False(t, cfg.ShortTokenAlphanumeric)
	assert.Equal(t, 2*time.Hour, cfg.ResetDelay)
	assert.Equal(t, 5*24*time.Hour, cfg.VerifyDelay)
	assert.False(t, cfg.SkipIsVerifiedCheck)
	assert.False(t, cfg.SkipEmailChangeVerify)
	assert.NotNil(t, cfg.SanitizeUser)
	assert.NotNil(t, cfg.Hasher)
}

func TestZeroConfigKeepsSafeDefaults(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory(false)
	svc := verifyreset.NewService(repo, verifyreset.Config{}).
		WithNotifier(&recorder{}).
		WithLogger(testLogger{}).
		WithClock(fixedClock)

	t.Run("short tokens are digits", func(t *testing.T) {
		u := repo.Insert(&verifyreset.User{Email: "digits@example.com", IsVerified: true})

		for i := 0; i < 5; i++ {
			_, err := svc.SendResetPwd(ctx, map[string]any{"email": "digits@example.com"}, nil)
			require.NoError(t, err)

			stored, err := repo.Get(ctx, u.ID)
			require.NoError(t, err)
			require.NotNil(t, stored.ResetShortToken)
			assert.Regexp(t, `^[0-9]{6}$`, *stored.ResetShortToken)
		}
	})

	t.Run("email change on a verified user is staged", func(t *testing.T) {
		u := repo.Insert(&verifyreset.User{Email: "old@example.com", IsVerified: true, PasswordHash: mustHash(t, "pw")})

		_, err := svc.EmailChange(ctx, "pw", "new@example.com", u)
		require.NoError(t, err)

		stored, err := repo.Get(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "old@example.com", stored.Email)
		assert.Equal(t, map[string]any{verifyreset.FieldEmail: "new@example.com"}, stored.VerifyChanges)
		assert.NotNil(t, stored.VerifyShortToken)
	})
}
