package verifyreset

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// HTTPConfig configures the HTTP controller.
type HTTPConfig struct {
	// ActionPath receives action messages (default: "/verify-reset")
	ActionPath string

	// LoginPath receives credential logins (default: "/authentication")
	LoginPath string

	// AuthHeader carries the bearer session token (default: "Authorization")
	AuthHeader string

	Debug bool
}

// ErrorBody is the JSON shape of a failed call.
type ErrorBody struct {
	Message  string         `json:"message"`
	TextCode string         `json:"text_code,omitempty"`
	Code     int            `json:"code"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ActionResponse is the JSON shape returned by the action route.
type ActionResponse struct {
	User  *User      `json:"user,omitempty"`
	Error *ErrorBody `json:"error,omitempty"`
}

// LoginRequest is the payload of the login route.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// HTTPController exposes the dispatcher as a single remote action route
// plus a login route.
type HTTPController struct {
	dispatcher *Dispatcher
	auth       *Authenticator
	config     HTTPConfig
	logger     Logger
}

// NewHTTPController creates a controller. auth may be nil, in which case
// change actions are rejected and the login route is not registered.
func NewHTTPController(dispatcher *Dispatcher, auth *Authenticator, cfg HTTPConfig) *HTTPController {
	if cfg.ActionPath == "" {
		cfg.ActionPath = "/verify-reset"
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/authentication"
	}
	if cfg.AuthHeader == "" {
		cfg.AuthHeader = "Authorization"
	}
	return &HTTPController{
		dispatcher: dispatcher,
		auth:       auth,
		config:     cfg,
		logger:     defLogger{},
	}
}

func (c *HTTPController) WithLogger(logger Logger) *HTTPController {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// RegisterRoutes registers the controller routes.
func (c *HTTPController) RegisterRoutes(group RouteRegistrar) {
	group.Post(c.config.ActionPath, c.Action)
	if c.auth != nil {
		group.Post(c.config.LoginPath, c.Login)
	}
}

// Action binds an ActionMessage and dispatches it.
func (c *HTTPController) Action(ctx router.Context) error {
	msg := ActionMessage{}
	if err := ctx.Bind(&msg); err != nil {
		return c.fail(ctx, invalidPayload(err, "unable to decode action message"))
	}

	if c.config.Debug {
		c.logger.Debug("action request", "payload", print.MaybePrettyJSON(msg))
	}

	params := Params{}
	if raw := bearerToken(ctx.Header(c.config.AuthHeader)); raw != "" && c.auth != nil {
		user, err := c.auth.UserFromToken(ctx.Context(), raw)
		if err != nil {
			return c.fail(ctx, err)
		}
		params.User = user
	}

	user, err := c.dispatcher.Dispatch(ctx.Context(), msg, params)
	if err != nil {
		return c.fail(ctx, err)
	}

	return ctx.JSON(router.StatusOK, ActionResponse{User: user})
}

// Login checks credentials and returns a session token.
func (c *HTTPController) Login(ctx router.Context) error {
	req := LoginRequest{}
	if err := ctx.Bind(&req); err != nil {
		return c.fail(ctx, invalidPayload(err, "unable to decode login request"))
	}

	if err := req.Validate(); err != nil {
		return c.fail(ctx, invalidPayload(err, "invalid login request payload"))
	}

	res, err := c.auth.Login(ctx.Context(), req.Email, req.Password)
	if err != nil {
		return c.fail(ctx, err)
	}

	return ctx.JSON(router.StatusOK, res)
}

func (c *HTTPController) fail(ctx router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	status := richErr.Code
	if status == 0 {
		status = router.StatusInternalServerError
	}

	c.logger.Info(
		"verify reset request failed",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"status", status,
	)

	body := &ErrorBody{
		Message:  richErr.Message,
		TextCode: richErr.TextCode,
		Code:     status,
		Metadata: richErr.Metadata,
	}
	if status >= router.StatusInternalServerError {
		body.Message = "An unexpected server error occurred"
		body.Metadata = nil
	}

	return ctx.JSON(status, ActionResponse{Error: body})
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
