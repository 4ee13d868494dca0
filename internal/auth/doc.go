// Package auth decides whether a caller may read the monitoring endpoint.
//
// A Gate holds an ordered list of Validators and accepts a request as soon as
// one of them recognizes a credential (OR semantics, short-circuit). Each
// Validator is a self-contained credential scheme:
//
//   - SystemPasscode: a shared static secret sent in a header (X-System-Passcode).
//   - BearerPasscode: "Authorization: Bearer <passcode>".
//   - BearerJWT: "Authorization: Bearer <jwt>" signed with HS256.
//   - SafeModeAdminSession: the administrator session check, which always
//     reports false while the application runs in safe mode.
//
// Validators are stateless, safe for concurrent use and never perform I/O.
// Unconfigured schemes are fail-closed: they never accept a request.
//
// Minimal usage:
//
//	gate := auth.NewGate(
//		auth.NewSystemPasscode("", secret),
//		auth.SafeModeAdminSession{},
//		auth.NewBearerPasscode(secret),
//	)
//	if _, err := gate.Authorize(r); err != nil {
//		// respond 403
//	}
package auth
