package verifyreset

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
)

// HTTPTransport sends action messages to a remote HTTPController. Change
// actions authenticate with the session token obtained by Login or set
// with WithToken; Params.User is not sent.
type HTTPTransport struct {
	actionURL string
	loginURL  string
	timeout   time.Duration

	mu    sync.RWMutex
	token string
}

// NewHTTPTransport creates a transport for the controller mounted at baseURL.
func NewHTTPTransport(baseURL string, cfg HTTPConfig) *HTTPTransport {
	base := strings.TrimRight(baseURL, "/")
	if cfg.ActionPath == "" {
		cfg.ActionPath = "/verify-reset"
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/authentication"
	}
	return &HTTPTransport{
		actionURL: base + cfg.ActionPath,
		loginURL:  base + cfg.LoginPath,
		timeout:   10 * time.Second,
	}
}

// WithToken sets the bearer session token.
func (t *HTTPTransport) WithToken(token string) *HTTPTransport {
	t.mu.Lock()
	t.token = token
	t.mu.Unlock()
	return t
}

// Logout implements LogoutProvider.
func (t *HTTPTransport) Logout() {
	t.WithToken("")
}

// WithTimeout sets the request timeout.
func (t *HTTPTransport) WithTimeout(d time.Duration) *HTTPTransport {
	if d > 0 {
		t.timeout = d
	}
	return t
}

// Dispatch implements Transport.
func (t *HTTPTransport) Dispatch(ctx context.Context, msg ActionMessage, _ Params) (*User, error) {
	resp := ActionResponse{}
	if err := t.post(ctx, t.actionURL, msg, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, remoteError(resp.Error)
	}
	return resp.User, nil
}

// Login implements LoginProvider and keeps the returned token for later
// change actions.
func (t *HTTPTransport) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var raw json.RawMessage
	if err := t.post(ctx, t.loginURL, LoginRequest{Email: email, Password: password}, &raw); err != nil {
		return nil, err
	}

	failed := ActionResponse{}
	if err := json.Unmarshal(raw, &failed); err == nil && failed.Error != nil {
		t.Logout()
		return nil, remoteError(failed.Error)
	}

	res := &LoginResult{}
	if err := json.Unmarshal(raw, res); err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to decode login response")
	}

	if res.Token != "" {
		t.WithToken(res.Token)
	}
	return res, nil
}

func (t *HTTPTransport) post(ctx context.Context, url string, payload, out any) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "context cancelled before request")
	}

	agent := fiber.Post(url).
		JSON(payload).
		Timeout(t.timeout)

	t.mu.RLock()
	if t.token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+t.token)
	}
	t.mu.RUnlock()

	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return errors.Wrap(errs[0], errors.CategoryOperation, "verify reset request failed")
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to decode verify reset response").
			WithMetadata(map[string]any{"status": status})
	}
	return nil
}

func remoteError(body *ErrorBody) error {
	category := errors.CategoryBadInput
	if body.Code >= fiber.StatusInternalServerError {
		category = errors.CategoryInternal
	}
	err := errors.New(body.Message, category).
		WithCode(body.Code).
		WithTextCode(body.TextCode)
	if len(body.Metadata) > 0 {
		err = err.WithMetadata(body.Metadata)
	}
	return err
}
