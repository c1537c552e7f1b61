package notify

import (
	"context"

	"github.com/goliatone/go-print"
	verifyreset "github.com/goliatone/go-verify-reset"
)

// LogNotifier prints notifications instead of delivering them. Useful in
// development where no mail server is running.
type LogNotifier struct {
	logger verifyreset.Logger
}

var _ verifyreset.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(logger verifyreset.Logger) *LogNotifier {
	if logger == nil {
		logger = nopLogger{}
	}
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(_ context.Context, action string, user *verifyreset.User, opts map[string]any, newEmail string) error {
	payload := map[string]any{
		"action":    action,
		"email":     user.Email,
		"new_email": newEmail,
		"options":   opts,
	}
	if user.VerifyToken != nil {
		payload["verify_token"] = *user.VerifyToken
	}
	if user.VerifyShortToken != nil {
		payload["verify_short_token"] = *user.VerifyShortToken
	}
	if user.ResetToken != nil {
		payload["reset_token"] = *user.ResetToken
	}
	if user.ResetShortToken != nil {
		payload["reset_short_token"] = *user.ResetShortToken
	}

	l.logger.Info("notification", "payload", print.MaybePrettyJSON(payload))
	return nil
}
