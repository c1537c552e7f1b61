package verifyreset_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	verifyreset "github.com/goliatone/go-verify-reset"
	"github.com/goliatone/go-verify-reset/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loginStub struct {
	res *verifyreset.LoginResult
	err error
}

func (l loginStub) Login(context.Context, string, string) (*verifyreset.LoginResult, error) {
	return l.res, l.err
}

func TestClientInProcess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	u := f.repo.Insert(&verifyreset.User{Email: "b@example.com", IsVerified: true, PasswordHash: mustHash(t, "pw")})

	client := verifyreset.NewClient(verifyreset.NewDispatcher(f.svc))

	t.Run("legacy alias", func(t *testing.T) {
		got, err := client.Call(ctx, "sendResetPassword", verifyreset.ActionMessage{
			Value: verifyreset.StringValue("b@example.com"),
		}, verifyreset.Params{})
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
	})

	t.Run("unknown alias", func(t *testing.T) {
		_, err := client.Call(ctx, "nope", verifyreset.ActionMessage{}, verifyreset.Params{})
		require.ErrorIs(t, err, verifyreset.ErrUnknownAction)
	})

	t.Run("reset round trip", func(t *testing.T) {
		_, err := client.SendResetPwd(ctx, "b@example.com", nil)
		require.NoError(t, err)

		stored, err := f.repo.Get(ctx, u.ID)
		require.NoError(t, err)

		_, err = client.ResetPwdShort(ctx, *stored.ResetShortToken, map[string]any{"email": "b@example.com"}, "new-pw")
		require.NoError(t, err)

		_, err = client.PasswordChange(ctx, "new-pw", "newer-pw", u)
		require.NoError(t, err)
	})

	t.Run("check unique", func(t *testing.T) {
		err := client.CheckUnique(ctx, map[string]any{"email": "b@example.com"}, "", false)
		assert.Equal(t, verifyreset.TextCodeValuesTaken, richError(t, err).TextCode)

		err = client.CheckUnique(ctx, map[string]any{"email": "b@example.com"}, u.ID.String(), false)
		require.NoError(t, err)
	})
}

type sessionStub struct {
	loginStub
	loggedOut int
}

func (s *sessionStub) Logout() { s.loggedOut++ }

func TestClientAuthenticateLogsOutRejectedUsers(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		res        *verifyreset.LoginResult
		err        error
		wantLogout int
	}{
		{name: "unverified", res: &verifyreset.LoginResult{Token: "t", User: &verifyreset.User{Email: "a"}}, wantLogout: 1},
		{name: "no user", res: &verifyreset.LoginResult{Token: "t"}, wantLogout: 1},
		{name: "login error", err: verifyreset.ErrMismatchedHashAndPassword, wantLogout: 1},
		{name: "verified", res: &verifyreset.LoginResult{Token: "t", User: &verifyreset.User{Email: "a", IsVerified: true}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &sessionStub{loginStub: loginStub{res: tt.res, err: tt.err}}
			_, _ = verifyreset.NewClient(nil).WithLoginProvider(stub).Authenticate(ctx, "a", "pw")
			assert.Equal(t, tt.wantLogout, stub.loggedOut)
		})
	}
}

func TestClientAuthenticate(t *testing.T) {
	ctx := context.Background()
	verified := &verifyreset.User{Email: "a", IsVerified: true}

	tests := []struct {
		name    string
		login   verifyreset.LoginProvider
		wantErr error
	}{
		{name: "no provider", wantErr: verifyreset.ErrNotAuthenticated},
		{name: "login error", login: loginStub{err: verifyreset.ErrMismatchedHashAndPassword}, wantErr: verifyreset.ErrMismatchedHashAndPassword},
		{name: "no result", login: loginStub{}, wantErr: verifyreset.ErrNoUserReturned},
		{name: "no user", login: loginStub{res: &verifyreset.LoginResult{Token: "t"}}, wantErr: verifyreset.ErrNoUserReturned},
		{name: "unverified", login: loginStub{res: &verifyreset.LoginResult{User: &verifyreset.User{Email: "a"}}}, wantErr: verifyreset.ErrUserNotVerified},
		{name: "verified", login: loginStub{res: &verifyreset.LoginResult{Token: "t", User: verified}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := verifyreset.NewClient(nil)
			if tt.login != nil {
				client.WithLoginProvider(tt.login)
			}

			res, err := client.Authenticate(ctx, "a", "pw")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, verified, res.User)
		})
	}
}

// serve starts app on a random local port and returns its base URL.
func serve(t *testing.T, app *fiber.App) string {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })
	return "http://" + ln.Addr().String()
}

func TestHTTPTransport(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory(false)
	user := repo.Insert(&verifyreset.User{Email: "a@example.com", IsVerified: true, PasswordHash: mustHash(t, "pw")})
	pending := repo.Insert(&verifyreset.User{Email: "u@example.com", PasswordHash: mustHash(t, "pw")})

	svc := verifyreset.NewService(repo, verifyreset.DefaultConfig()).
		WithLogger(testLogger{}).
		WithClock(fixedClock)
	auth := verifyreset.NewAuthenticator(repo, newAuthConfig()).WithLogger(testLogger{})

	srv := router.NewFiberAdapter(func(*fiber.App) *fiber.App {
		return fiber.New(fiber.Config{DisableStartupMessage: true})
	})
	verifyreset.NewHTTPController(verifyreset.NewDispatcher(svc).WithLogger(testLogger{}), auth, verifyreset.HTTPConfig{}).
		WithLogger(testLogger{}).
		RegisterRoutes(srv.Router())
	srv.Init()

	transport := verifyreset.NewHTTPTransport(serve(t, srv.WrappedRouter()), verifyreset.HTTPConfig{}).
		WithTimeout(5 * time.Second)
	client := verifyreset.NewClient(transport)

	t.Run("remote error keeps its text code", func(t *testing.T) {
		_, err := client.VerifySignupLong(ctx, "missing")
		richErr := richError(t, err)
		assert.Equal(t, verifyreset.TextCodeInvalidToken, richErr.TextCode)
		assert.Equal(t, fiber.StatusBadRequest, richErr.Code)
	})

	t.Run("bad credentials", func(t *testing.T) {
		_, err := client.Authenticate(ctx, "a@example.com", "nope")
		assert.Equal(t, verifyreset.TextCodeInvalidCredentials, richError(t, err).TextCode)
	})

	t.Run("change action without a session", func(t *testing.T) {
		_, err := client.PasswordChange(ctx, "pw", "pw2", nil)
		assert.Equal(t, verifyreset.TextCodeNotAuthenticated, richError(t, err).TextCode)
	})

	t.Run("unverified login leaves the transport logged out", func(t *testing.T) {
		_, err := client.Authenticate(ctx, "u@example.com", "pw")
		require.ErrorIs(t, err, verifyreset.ErrUserNotVerified)

		_, err = client.PasswordChange(ctx, "pw", "pw2", nil)
		assert.Equal(t, verifyreset.TextCodeNotAuthenticated, richError(t, err).TextCode)

		stored, err := repo.Get(ctx, pending.ID)
		require.NoError(t, err)
		assert.True(t, verifyreset.BcryptHasher{}.Compare("pw", stored.PasswordHash))
	})

	t.Run("authenticate then change password", func(t *testing.T) {
		res, err := client.Authenticate(ctx, "a@example.com", "pw")
		require.NoError(t, err)
		assert.Equal(t, user.ID, res.User.ID)

		got, err := client.PasswordChange(ctx, "pw", "pw2", nil)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)

		stored, err := repo.Get(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, verifyreset.BcryptHasher{}.Compare("pw2", stored.PasswordHash))
	})

	t.Run("failed login drops the previous session", func(t *testing.T) {
		_, err := client.Authenticate(ctx, "a@example.com", "wrong")
		require.Error(t, err)

		_, err = client.EmailChange(ctx, "pw2", "b@example.com", nil)
		assert.Equal(t, verifyreset.TextCodeNotAuthenticated, richError(t, err).TextCode)
	})
}
