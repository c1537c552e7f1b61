package verifyreset_test

import (
	"testing"
	"time"

	verifyreset "github.com/goliatone/go-verify-reset"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeField(t *testing.T) {
	tests := map[string]string{
		"resetShortToken": verifyreset.FieldResetShortToken,
		"reset_token":     verifyreset.FieldResetToken,
		"isVerified":      verifyreset.FieldIsVerified,
		"phone":           verifyreset.FieldPhone,
		"_id":             verifyreset.FieldID,
		"email":           verifyreset.FieldEmail,
		"unknown":         "unknown",
	}
	for in, want := range tests {
		assert.Equal(t, want, verifyreset.NormalizeField(in), in)
	}
}

func TestUserClone(t *testing.T) {
	u := tokenUser()
	c := u.Clone()

	*c.ResetToken = "changed"
	c.VerifyChanges["email"] = "other"
	*c.VerifyExpires = c.VerifyExpires.Add(time.Hour)

	assert.Equal(t, "rt", *u.ResetToken)
	assert.Equal(t, "b@example.com", u.VerifyChanges["email"])
	assert.Equal(t, fixedNow, *u.VerifyExpires)

	var nilUser *verifyreset.User
	assert.Nil(t, nilUser.Clone())
}

func TestUserFieldValue(t *testing.T) {
	id := uuid.New()
	u := &verifyreset.User{ID: id, Email: "a", IsVerified: true, ResetToken: ptr("rt")}

	v, ok := u.FieldValue("email")
	require.True(t, ok)
	assert.Equal(t, "a", v)

	v, ok = u.FieldValue("_id")
	require.True(t, ok)
	assert.Equal(t, id.String(), v)

	v, ok = u.FieldValue("isVerified")
	require.True(t, ok)
	assert.Equal(t, true, v)

	v, ok = u.FieldValue("resetToken")
	require.True(t, ok)
	assert.Equal(t, "rt", v)

	v, ok = u.FieldValue("verify_token")
	require.True(t, ok)
	assert.Nil(t, v)

	_, ok = u.FieldValue("password_hash")
	assert.False(t, ok)
}

func TestUserApply(t *testing.T) {
	u := tokenUser()

	err := u.Apply(verifyreset.Patch{
		verifyreset.FieldIsVerified:    true,
		verifyreset.FieldEmail:         "new@example.com",
		verifyreset.FieldResetToken:    (*string)(nil),
		verifyreset.FieldResetExpires:  (*time.Time)(nil),
		verifyreset.FieldVerifyChanges: map[string]any(nil),
		verifyreset.FieldPasswordHash:  "h2",
		verifyreset.FieldVerifyToken:   ptr("fresh"),
		verifyreset.FieldVerifyExpires: ptr(fixedNow.Add(time.Hour)),
	})
	require.NoError(t, err)

	assert.True(t, u.IsVerified)
	assert.Equal(t, "new@example.com", u.Email)
	assert.Nil(t, u.ResetToken)
	assert.Nil(t, u.ResetExpires)
	assert.Nil(t, u.VerifyChanges)
	assert.Equal(t, "h2", u.PasswordHash)
	assert.Equal(t, "fresh", *u.VerifyToken)

	assert.Error(t, u.Apply(verifyreset.Patch{"nope": "x"}))
	assert.Error(t, u.Apply(verifyreset.Patch{verifyreset.FieldIsVerified: "yes"}))
}

func TestPatchColumns(t *testing.T) {
	p := verifyreset.Patch{verifyreset.FieldEmail: "a", verifyreset.FieldIsVerified: true}
	assert.ElementsMatch(t, []string{"email", "is_verified"}, p.Columns())
}

func TestFindResultShapes(t *testing.T) {
	u := &verifyreset.User{Email: "a"}

	page := &verifyreset.Page{Data: []*verifyreset.User{u}, Total: 1}
	assert.Equal(t, []*verifyreset.User{u}, page.Users())

	var nilPage *verifyreset.Page
	assert.Nil(t, nilPage.Users())

	list := verifyreset.UserList{u}
	assert.Equal(t, []*verifyreset.User{u}, list.Users())
}
