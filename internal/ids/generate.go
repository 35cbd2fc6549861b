// Package ids generates the 22-character identifiers used by the
// cloud protocol for todos, projects, and areas.
package ids

import (
	"encoding/base64"

	"github.com/google/uuid"
)

// Length is the identifier length the protocol requires.
const Length = 22

// New returns a fresh random 22-character identifier. The value is a
// base64url encoding (without padding) of a random UUID, which comes
// out at exactly 22 characters.
func New() string {
	u := uuid.New()
	return base64.RawURLEncoding.EncodeToString(u[:])
}

// Valid reports whether id has the shape of a protocol identifier.
func Valid(id string) bool {
	if len(id) != Length {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}
