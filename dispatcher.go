package verifyreset

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Actions accepted by the dispatcher.
const (
	ActionCheckUnique       = "checkUnique"
	ActionResendVerify      = "resendVerify"
	ActionVerifySignupLong  = "verifySignupLong"
	ActionVerifySignupShort = "verifySignupShort"
	ActionSendResetPwd      = "sendResetPwd"
	ActionResetPwdLong      = "resetPwdLong"
	ActionResetPwdShort     = "resetPwdShort"
	ActionPasswordChange    = "passwordChange"
	ActionEmailChange       = "emailChange"
)

// Actions lists every canonical action name.
var Actions = []string{
	ActionCheckUnique,
	ActionResendVerify,
	ActionVerifySignupLong,
	ActionVerifySignupShort,
	ActionSendResetPwd,
	ActionResetPwdLong,
	ActionResetPwdShort,
	ActionPasswordChange,
	ActionEmailChange,
}

// actionAliases keeps the older action names working.
var actionAliases = map[string]string{
	"unique":            ActionCheckUnique,
	"verifySignUp":      ActionVerifySignupLong,
	"forgot":            ActionSendResetPwd,
	"sendResetPassword": ActionSendResetPwd,
	"saveResetPassword": ActionResetPwdLong,
	"changePassword":    ActionPasswordChange,
	"changeEmail":       ActionEmailChange,
}

// ResolveAction maps an action or one of its aliases to the canonical
// name. ok is false for unknown actions.
func ResolveAction(name string) (string, bool) {
	if canonical, ok := actionAliases[name]; ok {
		return canonical, true
	}
	for _, a := range Actions {
		if a == name {
			return a, true
		}
	}
	return "", false
}

// ActionMessage is the single remote call payload.
type ActionMessage struct {
	Action          string         `json:"action"`
	Value           ActionValue    `json:"value"`
	Meta            map[string]any `json:"meta,omitempty"`
	NotifierOptions map[string]any `json:"notifierOptions,omitempty"`
	OwnID           string         `json:"ownId,omitempty"`
}

// ActionValue is either a bare string (email or token) or an object.
// Object keys other than the known ones are kept in Fields, which also
// holds the known keys.
type ActionValue struct {
	Raw         string         `json:"-"`
	Token       string         `json:"token,omitempty"`
	Password    string         `json:"password,omitempty"`
	OldPassword string         `json:"oldPassword,omitempty"`
	Email       string         `json:"email,omitempty"`
	User        map[string]any `json:"user,omitempty"`
	Fields      map[string]any `json:"-"`
}

// StringValue builds a value from a bare string.
func StringValue(s string) ActionValue {
	return ActionValue{Raw: s}
}

// FieldsValue builds a value from an object.
func FieldsValue(fields map[string]any) ActionValue {
	v := ActionValue{Fields: fields}
	v.fill()
	return v
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *ActionValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = ActionValue{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = ActionValue{Raw: s}
		return nil
	}
	fields := map[string]any{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*v = ActionValue{Fields: fields}
	v.fill()
	return nil
}

// MarshalJSON implements json.Marshaler.
func (v ActionValue) MarshalJSON() ([]byte, error) {
	if v.Raw != "" && len(v.Fields) == 0 {
		return json.Marshal(v.Raw)
	}
	out := map[string]any{}
	for k, val := range v.Fields {
		out[k] = val
	}
	setIf := func(k, s string) {
		if s != "" {
			out[k] = s
		}
	}
	setIf("token", v.Token)
	setIf("password", v.Password)
	setIf("oldPassword", v.OldPassword)
	setIf("email", v.Email)
	if v.User != nil {
		out["user"] = v.User
	}
	return json.Marshal(out)
}

func (v *ActionValue) fill() {
	str := func(k string) string {
		s, _ := v.Fields[k].(string)
		return s
	}
	v.Token = str("token")
	v.Password = str("password")
	v.OldPassword = str("oldPassword")
	v.Email = str("email")
	if u, ok := v.Fields["user"].(map[string]any); ok {
		v.User = u
	}
}

// identity returns the lookup object: a bare string is read as an email.
func (v ActionValue) identity() map[string]any {
	if v.Raw != "" {
		return map[string]any{FieldEmail: v.Raw}
	}
	out := map[string]any{}
	for k, val := range v.Fields {
		out[k] = val
	}
	return out
}

func (v ActionValue) token() string {
	if v.Raw != "" {
		return v.Raw
	}
	return v.Token
}

// newEmail reads email, falling back to changes.email.
func (v ActionValue) newEmail() string {
	if v.Email != "" {
		return v.Email
	}
	if changes, ok := v.Fields["changes"].(map[string]any); ok {
		s, _ := changes[FieldEmail].(string)
		return s
	}
	return ""
}

// Params carries call context, such as the authenticated user.
type Params struct {
	User *User
}

// Result is what the callback form delivers.
type Result struct {
	User *User
	Err  error
}

// Callback receives the outcome of Go exactly once.
type Callback func(user *User, err error)

// Dispatcher routes action messages to the Service.
type Dispatcher struct {
	svc    *Service
	logger Logger
}

// NewDispatcher creates a dispatcher over svc.
func NewDispatcher(svc *Service) *Dispatcher {
	return &Dispatcher{
		svc:    svc,
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used by the dispatcher.
func (d *Dispatcher) WithLogger(logger Logger) *Dispatcher {
	if logger != nil {
		d.logger = logger
	}
	return d
}

// Service returns the underlying service.
func (d *Dispatcher) Service() *Service {
	return d.svc
}

// Dispatch runs msg synchronously. checkUnique returns a nil user on
// success.
func (d *Dispatcher) Dispatch(ctx context.Context, msg ActionMessage, params Params) (*User, error) {
	action, ok := ResolveAction(msg.Action)
	if !ok {
		return nil, goerrors.New("unknown action: "+msg.Action, goerrors.CategoryBadInput).
			WithTextCode(TextCodeUnknownAction).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"action": msg.Action})
	}

	if err := validateMessage(action, msg, params); err != nil {
		return nil, err
	}

	d.logger.Debug("dispatch", "action", action)

	v := msg.Value
	switch action {
	case ActionCheckUnique:
		ownID, err := parseOwnID(msg.OwnID)
		if err != nil {
			return nil, err
		}
		noErrMsg, _ := msg.Meta["noErrMsg"].(bool)
		return nil, d.svc.CheckUnique(ctx, v.identity(), ownID, noErrMsg)
	case ActionResendVerify:
		return d.svc.ResendVerify(ctx, v.identity(), msg.NotifierOptions)
	case ActionVerifySignupLong:
		return d.svc.VerifySignupLong(ctx, v.token())
	case ActionVerifySignupShort:
		return d.svc.VerifySignupShort(ctx, v.Token, v.User)
	case ActionSendResetPwd:
		return d.svc.SendResetPwd(ctx, v.identity(), msg.NotifierOptions)
	case ActionResetPwdLong:
		return d.svc.ResetPwdLong(ctx, v.Token, v.Password)
	case ActionResetPwdShort:
		return d.svc.ResetPwdShort(ctx, v.Token, v.User, v.Password)
	case ActionPasswordChange:
		return d.svc.PasswordChange(ctx, v.OldPassword, v.Password, params.User)
	case ActionEmailChange:
		return d.svc.EmailChange(ctx, v.Password, v.newEmail(), params.User)
	}

	return nil, ErrUnknownAction
}

// Go runs msg on its own goroutine. The returned channel yields a single
// Result and is then closed; cb, if set, is invoked once with the same
// outcome. Panics in the workflow become errors; a panic in cb is logged
// and never triggers a second invocation.
func (d *Dispatcher) Go(ctx context.Context, msg ActionMessage, params Params, cb Callback) <-chan Result {
	out := make(chan Result, 1)
	var once sync.Once

	settle := func(res Result) {
		once.Do(func() {
			out <- res
			close(out)
			d.invoke(cb, res)
		})
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("dispatch panic", "action", msg.Action, "panic", r)
				settle(Result{Err: goerrors.New(fmt.Sprintf("action %s failed: %v", msg.Action, r), goerrors.CategoryInternal)})
			}
		}()
		user, err := d.Dispatch(ctx, msg, params)
		settle(Result{User: user, Err: err})
	}()

	return out
}

func (d *Dispatcher) invoke(cb Callback, res Result) {
	if cb == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("dispatch callback panic", "panic", r)
		}
	}()
	cb(res.User, res.Err)
}

func parseOwnID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, invalidPayload(err, "ownId must be a valid uuid")
	}
	return id, nil
}

func validateMessage(action string, msg ActionMessage, params Params) error {
	v := msg.Value
	var rules validation.Errors

	switch action {
	case ActionCheckUnique:
		rules = validation.Errors{
			"value": validation.Validate(v.Fields, validation.Required),
			"ownId": validation.Validate(msg.OwnID, is.UUID),
		}
	case ActionResendVerify, ActionSendResetPwd:
		rules = validation.Errors{
			"value": validation.Validate(v.identity(), validation.Required),
		}
	case ActionVerifySignupLong:
		rules = validation.Errors{
			"token": validation.Validate(v.token(), validation.Required),
		}
	case ActionVerifySignupShort:
		rules = validation.Errors{
			"token": validation.Validate(v.Token, validation.Required),
			"user":  validation.Validate(v.User, validation.Required),
		}
	case ActionResetPwdLong:
		rules = validation.Errors{
			"token":    validation.Validate(v.Token, validation.Required),
			"password": validation.Validate(v.Password, validation.Required),
		}
	case ActionResetPwdShort:
		rules = validation.Errors{
			"token":    validation.Validate(v.Token, validation.Required),
			"user":     validation.Validate(v.User, validation.Required),
			"password": validation.Validate(v.Password, validation.Required),
		}
	case ActionPasswordChange:
		rules = validation.Errors{
			"oldPassword": validation.Validate(v.OldPassword, validation.Required),
			"password":    validation.Validate(v.Password, validation.Required),
		}
	case ActionEmailChange:
		rules = validation.Errors{
			"password": validation.Validate(v.Password, validation.Required),
			"email":    validation.Validate(v.newEmail(), validation.Required, is.Email),
		}
	}

	if err := rules.Filter(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid "+action+" payload").
			WithTextCode(TextCodeInvalidPayload).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"errors": err})
	}

	if (action == ActionPasswordChange || action == ActionEmailChange) && params.User == nil {
		return ErrNotAuthenticated
	}

	return nil
}
