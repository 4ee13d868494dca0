package auth

import "net/http"

const schemeAdminSession = "admin-session"

// SafeModeAdminSession is the system-administrator session check used while
// the application runs in safe mode. No authenticated session can exist before
// startup completes, so it always reports false. Keep it in the gate: once the
// endpoint runs in the fully started application, it is replaced by a real
// session-backed Validator at the same position.
type SafeModeAdminSession struct{}

// Name implements Validator.
func (SafeModeAdminSession) Name() string { return schemeAdminSession }

// IsValid implements Validator. It always returns false.
func (SafeModeAdminSession) IsValid(*http.Request) bool { return false }
