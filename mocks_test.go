package verifyreset_test

import (
	"context"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	verifyreset "github.com/goliatone/go-verify-reset"
	"github.com/goliatone/go-verify-reset/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// MockNotifier implements verifyreset.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, action string, user *verifyreset.User, opts map[string]any, newEmail string) error {
	args := m.Called(ctx, action, user, opts, newEmail)
	return args.Error(0)
}

// MockActivitySink implements verifyreset.ActivitySink
type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event verifyreset.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockUserRepository implements verifyreset.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Find(ctx context.Context, q verifyreset.Query) (verifyreset.FindResult, error) {
	args := m.Called(ctx, q)
	res, _ := args.Get(0).(verifyreset.FindResult)
	return res, args.Error(1)
}

func (m *MockUserRepository) Get(ctx context.Context, id uuid.UUID) (*verifyreset.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*verifyreset.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) Patch(ctx context.Context, id uuid.UUID, p verifyreset.Patch) (*verifyreset.User, error) {
	args := m.Called(ctx, id, p)
	u, _ := args.Get(0).(*verifyreset.User)
	return u, args.Error(1)
}

// notification is a call captured by recorder.
type notification struct {
	Action   string
	User     *verifyreset.User
	Options  map[string]any
	NewEmail string
}

type recorder struct {
	mu    sync.Mutex
	calls []notification
}

func (r *recorder) Notify(_ context.Context, action string, user *verifyreset.User, opts map[string]any, newEmail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, notification{action, user, opts, newEmail})
	return nil
}

func (r *recorder) last(t *testing.T) notification {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.calls, "expected a notification")
	return r.calls[len(r.calls)-1]
}

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type fixture struct {
	repo     *repository.Memory
	svc      *verifyreset.Service
	notifier *recorder
}

func newFixture(t *testing.T, paginated bool, cfgs ...verifyreset.Config) *fixture {
	t.Helper()
	cfg := verifyreset.DefaultConfig()
	if len(cfgs) > 0 {
		cfg = cfgs[0]
	}
	repo := repository.NewMemory(paginated)
	rec := &recorder{}
	svc := verifyreset.NewService(repo, cfg).
		WithNotifier(rec).
		WithLogger(testLogger{}).
		WithClock(fixedClock)
	return &fixture{repo: repo, svc: svc, notifier: rec}
}

// modes runs fn against both Find result shapes.
func modes(t *testing.T, fn func(t *testing.T, paginated bool)) {
	for _, tc := range []struct {
		name      string
		paginated bool
	}{
		{"paginated", true},
		{"flat", false},
	} {
		t.Run(tc.name, func(t *testing.T) { fn(t, tc.paginated) })
	}
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	h, err := verifyreset.HashPassword(password)
	require.NoError(t, err)
	return h
}

func ptr[T any](v T) *T { return &v }

// richError unwraps err into a go-errors value.
func richError(t *testing.T, err error) *goerrors.Error {
	t.Helper()
	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr), "expected a rich error, got %v", err)
	return richErr
}

var _ router.Context = (*MockContext)(nil)

// MockContext implements router.Context
type MockContext struct {
	mock.Mock
	NextCalled bool
}

func (m *MockContext) Next() error {
	m.NextCalled = true
	return nil
}

func (m *MockContext) Context() context.Context {
	args := m.Called()
	c, ok := args.Get(0).(context.Context)
	if !ok {
		panic("arg needs to be context.Context")
	}
	return c
}

func (m *MockContext) SetContext(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockContext) Path() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Method() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Body() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *MockContext) Status(code int) router.Context {
	m.Called(code)
	return m
}

func (m *MockContext) SendString(s string) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *MockContext) Send(b []byte) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockContext) JSON(code int, val any) error {
	args := m.Called(code, val)
	return args.Error(0)
}

func (m *MockContext) NoContent(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) Render(name string, bind any, layout ...string) error {
	args := m.Called(name, bind)
	return args.Error(0)
}

func (m *MockContext) Redirect(path string, status ...int) error {
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	args := m.Called(name, data)
	return args.Error(0)
}

func (m *MockContext) RedirectBack(fallback string, status ...int) error {
	args := m.Called(fallback)
	return args.Error(0)
}

func (m *MockContext) SetHeader(key, val string) router.Context {
	m.Called(key, val)
	return m
}

func (m *MockContext) Header(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Get(key string, defaultValue any) any {
	args := m.Called(key, defaultValue)
	return args.Get(0)
}

func (m *MockContext) GetString(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) GetBool(key string, defaultValue bool) bool {
	args := m.Called(key, defaultValue)
	return args.Bool(0)
}

func (m *MockContext) GetInt(key string, def int) int {
	args := m.Called(key, def)
	return args.Int(0)
}

func (m *MockContext) Set(key string, val any) {
	m.Called(key, val)
}

func (m *MockContext) Bind(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) CookieParser(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) Cookie(cookie *router.Cookie) {
	m.Called(cookie)
}

func (m *MockContext) Cookies(key string, defaultValue ...string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Param(key string, defaultValue ...string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) ParamsInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Query(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) QueryInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Queries() map[string]string {
	args := m.Called()
	return args.Get(0).(map[string]string)
}

func (m *MockContext) Locals(key any, value ...any) any {
	args := m.Called(key)
	return args.Get(0)
}

func (m *MockContext) OriginalURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Referer() string {
	args := m.Called()
	return args.String(0)
}
