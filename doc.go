// Package verifyreset runs the account verification and password reset
// token workflows, plus authenticated password and email changes.
//
// Tokens:
//   - Every workflow that issues tokens writes a long token (hex, meant for
//     links) and a short token (digits by default, meant to be typed) with a
//     shared expiry. Short tokens are only accepted together with identity
//     fields from Config.IdentityFields.
//   - Consumed, mismatched and expired tokens all fail with ErrInvalidToken.
//     Expired tokens are cleared on use.
//
// Dispatch:
//   - Dispatcher accepts a single ActionMessage shape so a whole account
//     flow can be served from one route. HTTPController exposes it over
//     go-router, and Client wraps either a Dispatcher or an HTTPTransport.
//
// Notifications and activity:
//   - Notifier receives the user without its password hash, after the
//     change has been persisted. A failed notification is returned to the
//     caller but never rolls back the change.
//   - ActivitySink receives one event per workflow. Sinks run best effort.
package verifyreset
