package verifyreset

import (
	"github.com/goliatone/go-errors"
)

const (
	TextCodeUserNotFound        = "USER_NOT_FOUND"
	TextCodeInvalidToken        = "INVALID_TOKEN"
	TextCodeAlreadyVerified     = "ALREADY_VERIFIED"
	TextCodeNotVerified         = "NOT_VERIFIED"
	TextCodeAmbiguousUser       = "AMBIGUOUS_USER"
	TextCodeIdentityRequired    = "IDENTITY_REQUIRED"
	TextCodeIdentityNotAllowed  = "IDENTITY_NOT_ALLOWED"
	TextCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	TextCodeUnknownAction       = "UNKNOWN_ACTION"
	TextCodeInvalidPayload      = "INVALID_PAYLOAD"
	TextCodeValuesTaken         = "VALUES_TAKEN"
	TextCodeEmptyPassword       = "EMPTY_PASSWORD"
	TextCodeNotAuthenticated    = "NOT_AUTHENTICATED"
	TextCodeNotificationFailure = "NOTIFICATION_FAILED"
	TextCodeSessionExpired      = "SESSION_EXPIRED"
	TextCodeSessionMalformed    = "SESSION_MALFORMED"
	TextCodeNoUserReturned      = "NO_USER_RETURNED"
)

// ErrUserNotFound is returned when a lookup matches no user.
var ErrUserNotFound = errors.New("user not found", errors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeBadRequest)

// ErrInvalidToken is returned for unknown, mismatched and expired tokens alike.
var ErrInvalidToken = errors.New("invalid or expired token", errors.CategoryBadInput).
	WithTextCode(TextCodeInvalidToken).
	WithCode(errors.CodeBadRequest)

// ErrAlreadyVerified is returned when verifying an account twice.
var ErrAlreadyVerified = errors.New("user is already verified", errors.CategoryBadInput).
	WithTextCode(TextCodeAlreadyVerified).
	WithCode(errors.CodeBadRequest)

// ErrUserNotVerified is returned when an unverified user attempts a reset or login.
var ErrUserNotVerified = errors.New("user's email is not verified", errors.CategoryBadInput).
	WithTextCode(TextCodeNotVerified).
	WithCode(errors.CodeBadRequest)

// ErrAmbiguousUser is returned when identity fields resolve to more than one user.
var ErrAmbiguousUser = errors.New("identity fields match more than one user", errors.CategoryBadInput).
	WithTextCode(TextCodeAmbiguousUser).
	WithCode(errors.CodeBadRequest)

// ErrIdentityRequired is returned when no identity field was supplied.
var ErrIdentityRequired = errors.New("user identity fields are required", errors.CategoryValidation).
	WithTextCode(TextCodeIdentityRequired).
	WithCode(errors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned when a supplied password does not match.
var ErrMismatchedHashAndPassword = errors.New("the credentials provided are invalid", errors.CategoryBadInput).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeBadRequest)

// ErrUnknownAction is returned by the dispatcher for unsupported actions.
var ErrUnknownAction = errors.New("unknown action", errors.CategoryBadInput).
	WithTextCode(TextCodeUnknownAction).
	WithCode(errors.CodeBadRequest)

// ErrNoEmptyString is returned when hashing an empty password.
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)

// ErrNotAuthenticated is returned when a change action has no authenticated user.
var ErrNotAuthenticated = errors.New("an authenticated user is required", errors.CategoryBadInput).
	WithTextCode(TextCodeNotAuthenticated).
	WithCode(errors.CodeBadRequest)

// ErrSessionExpired is returned for expired session tokens.
var ErrSessionExpired = errors.New("session token has expired", errors.CategoryAuth).
	WithTextCode(TextCodeSessionExpired).
	WithCode(errors.CodeUnauthorized)

// ErrNoUserReturned is returned by Client.Authenticate when login yields no user.
var ErrNoUserReturned = errors.New("no user returned", errors.CategoryAuth).
	WithTextCode(TextCodeNoUserReturned).
	WithCode(errors.CodeBadRequest)

func invalidPayload(err error, msg string) error {
	return errors.Wrap(err, errors.CategoryValidation, msg).
		WithTextCode(TextCodeInvalidPayload).
		WithCode(errors.CodeBadRequest)
}

func internalError(err error, msg string) error {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr
	}
	return errors.Wrap(err, errors.CategoryInternal, msg)
}

func notificationError(err error, action string) error {
	return errors.Wrap(err, errors.CategoryOperation, "notification failed").
		WithTextCode(TextCodeNotificationFailure).
		WithCode(errors.CodeBadRequest).
		WithMetadata(map[string]any{"action": action})
}
