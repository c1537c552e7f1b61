package notify

import (
	"context"
	"testing"

	verifyreset "github.com/goliatone/go-verify-reset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingNotifier struct {
	actions []string
}

func (c *countingNotifier) Notify(_ context.Context, action string, _ *verifyreset.User, _ map[string]any, _ string) error {
	c.actions = append(c.actions, action)
	return nil
}

func TestRouter(t *testing.T) {
	ctx := context.Background()
	user := &verifyreset.User{Email: "a@example.com"}

	email := &countingNotifier{}
	sms := &countingNotifier{}
	r := NewRouter("email").Handle("email", email).Handle("sms", sms)

	require.NoError(t, r.Notify(ctx, verifyreset.NotifySendResetPwd, user, nil, ""))
	require.NoError(t, r.Notify(ctx, verifyreset.NotifySendResetPwd, user, map[string]any{TransportOption: "sms"}, ""))
	require.NoError(t, r.Notify(ctx, verifyreset.NotifyResetPwd, user, map[string]any{TransportOption: ""}, ""))

	assert.Equal(t, []string{verifyreset.NotifySendResetPwd, verifyreset.NotifyResetPwd}, email.actions)
	assert.Equal(t, []string{verifyreset.NotifySendResetPwd}, sms.actions)

	err := r.Notify(ctx, verifyreset.NotifyResetPwd, user, map[string]any{TransportOption: "pigeon"}, "")
	assert.Error(t, err)
}

func TestLogNotifier(t *testing.T) {
	n := NewLogNotifier(nil)
	err := n.Notify(context.Background(), verifyreset.NotifySendResetPwd, &verifyreset.User{
		Email:      "a@example.com",
		ResetToken: ptr("tok"),
	}, map[string]any{"lang": "en"}, "")
	assert.NoError(t, err)
}
