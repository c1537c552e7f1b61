package verifyreset

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

// Logger is the structured logger used across the package. A named
// glog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// UserRepository abstracts the store holding user records.
type UserRepository interface {
	Find(ctx context.Context, query Query) (FindResult, error)
	Get(ctx context.Context, id uuid.UUID) (*User, error)
	Patch(ctx context.Context, id uuid.UUID, patch Patch) (*User, error)
}

// Notifier delivers account notifications (email, SMS) for a workflow.
// user has the password stripped but keeps the issued tokens.
type Notifier interface {
	Notify(ctx context.Context, action string, user *User, notifierOptions map[string]any, newEmail string) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, action string, user *User, notifierOptions map[string]any, newEmail string) error

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, action string, user *User, notifierOptions map[string]any, newEmail string) error {
	if f == nil {
		return nil
	}
	return f(ctx, action, user, notifierOptions, newEmail)
}

// PasswordHasher hashes and compares credentials.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(password, hash string) bool
}

// Notification action tags passed to the Notifier.
const (
	NotifyResendVerifySignup = "resendVerifySignup"
	NotifyVerifySignup       = "verifySignup"
	NotifySendResetPwd       = "sendResetPwd"
	NotifyResetPwd           = "resetPwd"
	NotifyPasswordChange     = "passwordChange"
	NotifyEmailChange        = "emailChange"
)

// defLogger only reports warnings and errors, on stderr. Pass a logger
// with WithLogger to see debug and info output.
type defLogger struct{}

func (defLogger) Debug(string, ...any) {}

func (defLogger) Info(string, ...any) {}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Fprint(os.Stderr, format("WRN", msg, args...))
}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Fprint(os.Stderr, format("ERR", msg, args...))
}

func format(level, msg string, args ...any) string {
	var sb strings.Builder
	sb.WriteString("[" + level + "] VERIFY " + msg)
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(&sb, " %v=%v", args[i], args[i+1])
	}
	if len(args)%2 == 1 {
		fmt.Fprintf(&sb, " %v", args[len(args)-1])
	}
	sb.WriteString("\n")
	return sb.String()
}
