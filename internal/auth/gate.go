package auth

import (
	"errors"
	"net/http"
)

// ErrInsufficientPrivileges is returned by Gate.Authorize when no validator
// accepts the request.
var ErrInsufficientPrivileges = errors.New("insufficient privileges")

// Validator inspects a request and reports whether it carries a valid
// credential of its scheme.
//
// Implementations must be safe for concurrent use, fast, and must not block.
type Validator interface {
	Name() string
	IsValid(r *http.Request) bool
}

// Decision records which scheme accepted a request.
type Decision struct {
	Scheme string
}

// Gate composes validators with OR semantics.
type Gate struct {
	validators []Validator
}

// NewGate returns a Gate evaluating validators in the given order.
// nil validators are skipped. A Gate without validators denies everything.
func NewGate(validators ...Validator) *Gate {
	kept := make([]Validator, 0, len(validators))

	for _, validator := range validators {
		if validator != nil {
			kept = append(kept, validator)
		}
	}

	return &Gate{validators: kept}
}

// Schemes returns the configured scheme names in evaluation order.
func (gate *Gate) Schemes() []string {
	names := make([]string, 0, len(gate.validators))
	for _, validator := range gate.validators {
		names = append(names, validator.Name())
	}

	return names
}

// Authorize returns the first accepting scheme, or ErrInsufficientPrivileges.
// Validators after the first success are not consulted.
func (gate *Gate) Authorize(r *http.Request) (Decision, error) {
	if gate == nil || r == nil {
		return Decision{}, ErrInsufficientPrivileges
	}

	for _, validator := range gate.validators {
		if validator.IsValid(r) {
			return Decision{Scheme: validator.Name()}, nil
		}
	}

	return Decision{}, ErrInsufficientPrivileges
}
