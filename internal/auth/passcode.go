package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// DefaultPasscodeHeader carries the system passcode.
const DefaultPasscodeHeader = "X-System-Passcode"

const (
	schemeSystemPasscode = "system-passcode"
	schemeBearerPasscode = "bearer-passcode"
	bearerPrefix         = "bearer "
)

// SystemPasscode accepts requests presenting the configured shared secret in
// a dedicated header. The header must appear exactly once.
type SystemPasscode struct {
	header   string
	passcode string
}

// NewSystemPasscode returns a SystemPasscode validator. An empty header falls
// back to DefaultPasscodeHeader; an empty passcode disables the scheme.
func NewSystemPasscode(header, passcode string) *SystemPasscode {
	header = strings.TrimSpace(header)
	if header == "" {
		header = DefaultPasscodeHeader
	}

	return &SystemPasscode{header: header, passcode: strings.TrimSpace(passcode)}
}

// Name implements Validator.
func (*SystemPasscode) Name() string { return schemeSystemPasscode }

// IsValid implements Validator.
func (validator *SystemPasscode) IsValid(r *http.Request) bool {
	if validator.passcode == "" {
		return false
	}

	presented, ok := singleHeaderValue(r.Header, validator.header)
	if !ok {
		return false
	}

	return constantTimeEqual(strings.TrimSpace(presented), validator.passcode)
}

// BearerPasscode accepts "Authorization: Bearer <passcode>" where passcode is
// a static secret.
type BearerPasscode struct {
	passcode string
}

// NewBearerPasscode returns a BearerPasscode validator. An empty passcode
// disables the scheme.
func NewBearerPasscode(passcode string) *BearerPasscode {
	return &BearerPasscode{passcode: strings.TrimSpace(passcode)}
}

// Name implements Validator.
func (*BearerPasscode) Name() string { return schemeBearerPasscode }

// IsValid implements Validator.
func (validator *BearerPasscode) IsValid(r *http.Request) bool {
	if validator.passcode == "" {
		return false
	}

	token, ok := bearerToken(r)
	if !ok {
		return false
	}

	return constantTimeEqual(token, validator.passcode)
}

// bearerToken extracts the token of a single "Authorization: Bearer" header.
// The scheme keyword is case-insensitive.
func bearerToken(r *http.Request) (string, bool) {
	raw, ok := singleHeaderValue(r.Header, "Authorization")
	if !ok {
		return "", false
	}

	raw = strings.TrimSpace(raw)
	if len(raw) <= len(bearerPrefix) || !strings.EqualFold(raw[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}

	token := strings.TrimSpace(raw[len(bearerPrefix):])

	return token, token != ""
}

func singleHeaderValue(header http.Header, name string) (string, bool) {
	values := header.Values(name)
	if len(values) != 1 {
		return "", false
	}

	return values[0], true
}

// constantTimeEqual compares secrets without leaking the position of the
// first mismatch. Length is not treated as sensitive.
func constantTimeEqual(presented, expected string) bool {
	return subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) == 1
}
