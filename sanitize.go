package verifyreset

// SanitizeUserForClient strips the password and every token field. It is
// the default Config.SanitizeUser.
func SanitizeUserForClient(u *User) *User {
	if u == nil {
		return nil
	}
	c := u.Clone()
	c.PasswordHash = ""
	c.VerifyToken = nil
	c.VerifyShortToken = nil
	c.VerifyExpires = nil
	c.VerifyChanges = nil
	c.ResetToken = nil
	c.ResetShortToken = nil
	c.ResetExpires = nil
	return c
}

// SanitizeUserForNotifier strips only the password; the notifier needs the
// tokens to build links and codes.
func SanitizeUserForNotifier(u *User) *User {
	if u == nil {
		return nil
	}
	c := u.Clone()
	c.PasswordHash = ""
	return c
}
