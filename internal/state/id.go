package state

import (
	"strings"

	"github.com/google/uuid"
)

// IDLength is the full length of a run ID in hex characters.
const IDLength = 32

// ShortIDLength is the display length of a run ID.
const ShortIDLength = 12

// GenerateID returns a new 32-character hex run ID (a random UUID without
// dashes), so that any prefix of it can be used for lookups.
func GenerateID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ShortID returns the first 12 characters of an ID for display.
func ShortID(id string) string {
	if len(id) < ShortIDLength {
		return id
	}
	return id[:ShortIDLength]
}

// isHexString returns true if s contains only hexadecimal characters.
func isHexString(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
