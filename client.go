package verifyreset

import (
	"context"
)

// Transport carries action messages to a dispatcher, in process or remote.
type Transport interface {
	Dispatch(ctx context.Context, msg ActionMessage, params Params) (*User, error)
}

// Client exposes one method per action over a Transport.
type Client struct {
	transport Transport
	login     LoginProvider
}

// NewClient creates a client over transport. When transport also
// implements LoginProvider it is used by Authenticate.
func NewClient(transport Transport) *Client {
	c := &Client{transport: transport}
	if lp, ok := transport.(LoginProvider); ok {
		c.login = lp
	}
	return c
}

// WithLoginProvider sets the provider used by Authenticate.
func (c *Client) WithLoginProvider(lp LoginProvider) *Client {
	c.login = lp
	return c
}

// Call dispatches msg under name, which may be a canonical action or one
// of the older aliases (unique, verifySignUp, sendResetPassword, ...).
func (c *Client) Call(ctx context.Context, name string, msg ActionMessage, params Params) (*User, error) {
	action, ok := ResolveAction(name)
	if !ok {
		return nil, ErrUnknownAction
	}
	msg.Action = action
	return c.transport.Dispatch(ctx, msg, params)
}

func (c *Client) CheckUnique(ctx context.Context, uniques map[string]any, ownID string, noErrMsg bool) error {
	_, err := c.Call(ctx, ActionCheckUnique, ActionMessage{
		Value: FieldsValue(uniques),
		OwnID: ownID,
		Meta:  map[string]any{"noErrMsg": noErrMsg},
	}, Params{})
	return err
}

// ResendVerify accepts an email or the current verify token.
func (c *Client) ResendVerify(ctx context.Context, emailOrToken ActionValue, notifierOptions map[string]any) (*User, error) {
	return c.Call(ctx, ActionResendVerify, ActionMessage{
		Value:           emailOrToken,
		NotifierOptions: notifierOptions,
	}, Params{})
}

func (c *Client) VerifySignupLong(ctx context.Context, token string) (*User, error) {
	return c.Call(ctx, ActionVerifySignupLong, ActionMessage{Value: StringValue(token)}, Params{})
}

func (c *Client) VerifySignupShort(ctx context.Context, token string, userFind map[string]any) (*User, error) {
	return c.Call(ctx, ActionVerifySignupShort, ActionMessage{
		Value: ActionValue{Token: token, User: userFind},
	}, Params{})
}

func (c *Client) SendResetPwd(ctx context.Context, email string, notifierOptions map[string]any) (*User, error) {
	return c.Call(ctx, ActionSendResetPwd, ActionMessage{
		Value:           StringValue(email),
		NotifierOptions: notifierOptions,
	}, Params{})
}

func (c *Client) ResetPwdLong(ctx context.Context, token, password string) (*User, error) {
	return c.Call(ctx, ActionResetPwdLong, ActionMessage{
		Value: ActionValue{Token: token, Password: password},
	}, Params{})
}

func (c *Client) ResetPwdShort(ctx context.Context, token string, userFind map[string]any, password string) (*User, error) {
	return c.Call(ctx, ActionResetPwdShort, ActionMessage{
		Value: ActionValue{Token: token, User: userFind, Password: password},
	}, Params{})
}

// PasswordChange runs as user. Remote transports authenticate with their
// own session token instead.
func (c *Client) PasswordChange(ctx context.Context, oldPassword, password string, user *User) (*User, error) {
	return c.Call(ctx, ActionPasswordChange, ActionMessage{
		Value: ActionValue{OldPassword: oldPassword, Password: password},
	}, Params{User: user})
}

func (c *Client) EmailChange(ctx context.Context, password, email string, user *User) (*User, error) {
	return c.Call(ctx, ActionEmailChange, ActionMessage{
		Value: ActionValue{Password: password, Email: email},
	}, Params{User: user})
}

// Authenticate logs in and fails unless a verified user comes back. A
// rejected login leaves the provider logged out.
func (c *Client) Authenticate(ctx context.Context, email, password string) (*LoginResult, error) {
	if c.login == nil {
		return nil, ErrNotAuthenticated
	}

	res, err := c.login.Login(ctx, email, password)
	if err != nil {
		c.Logout()
		return nil, err
	}

	if res == nil || res.User == nil {
		c.Logout()
		return nil, ErrNoUserReturned
	}

	if !res.User.IsVerified {
		c.Logout()
		return nil, ErrUserNotVerified
	}

	return res, nil
}

// Logout drops the session kept by the login provider, if any.
func (c *Client) Logout() {
	if lp, ok := c.login.(LogoutProvider); ok {
		lp.Logout()
	}
}
