// Package id generates the identifiers used throughout the Jupyter wire
// protocol: message IDs, session IDs, and comm IDs.
package id

import (
	"strings"

	"github.com/google/uuid"
)

// UUID is the canonical wire form of a Jupyter identifier: 32 lowercase
// hex characters, no dashes. Equality is plain string equality on that
// canonical form.
type UUID string

// Nil is the zero-value UUID, used where a field is optional and unset.
const Nil UUID = ""

// New generates a fresh UUID from a cryptographically secure source.
func New() UUID {
	return fromGoogle(uuid.New())
}

func fromGoogle(u uuid.UUID) UUID {
	return UUID(strings.ReplaceAll(u.String(), "-", ""))
}

// String implements fmt.Stringer.
func (u UUID) String() string {
	return string(u)
}

// IsNil reports whether u is the zero-value UUID.
func (u UUID) IsNil() bool {
	return u == Nil
}

// Parse validates that s is a canonical 32-character lowercase hex UUID
// and returns it as a UUID. It rejects the dashed RFC-4122 form on
// purpose: this protocol's canonical form never contains dashes.
func Parse(s string) (UUID, error) {
	if len(s) != 32 {
		return Nil, &InvalidUUIDError{Value: s}
	}
	for _, c := range s {
		isDigit := c >= '0' && c <= '9'
		isLowerHex := c >= 'a' && c <= 'f'
		if !isDigit && !isLowerHex {
			return Nil, &InvalidUUIDError{Value: s}
		}
	}
	return UUID(s), nil
}

// InvalidUUIDError reports that a string is not a canonical UUID.
type InvalidUUIDError struct {
	Value string
}

func (e *InvalidUUIDError) Error() string {
	return "id: not a canonical 32-character hex uuid: " + e.Value
}
