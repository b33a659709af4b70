/*
Package randx provides cryptographically secure random identifiers.

It generates Base62 suffixes for room names and participant identities, and
UUID recording references. Private room names embed a namespace prefix, the
persona identifier, a random suffix, and a timestamp so that two independent
session starts can never collide.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the total number of characters in the Base62 character set (62).
	Base62Len = int64(len(Base62Chars))

	// SuffixLength is the fixed length of the random portion of generated names.
	SuffixLength = 6
)

// Suffix generates a Base62 string of SuffixLength characters using crypto/rand.
func Suffix() (string, error) {
	result := make([]byte, SuffixLength)

	for i := range SuffixLength {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random suffix: %v", err)
		}

		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// RoomName synthesizes a unique private room name from a namespace prefix and
// an optional scope (persona or user identifier). The random suffix plus the
// nanosecond timestamp guarantee uniqueness across concurrent requests.
func RoomName(prefix, scope string) (string, error) {
	suffix, err := Suffix()
	if err != nil {
		return "", err
	}

	parts := []string{prefix}
	if scope != "" {
		parts = append(parts, scope)
	}
	parts = append(parts, suffix, fmt.Sprintf("%d", time.Now().UnixNano()))

	return strings.Join(parts, "_"), nil
}

// Identity synthesizes a unique participant identity with the given prefix.
// Every connection attempt receives a fresh identity.
func Identity(prefix string) (string, error) {
	suffix, err := Suffix()
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s_%s_%d", prefix, suffix, time.Now().UnixMilli()), nil
}

// SessionID generates a UUID v4 string identifying one tracked session.
func SessionID() string {
	return uuid.New().String()
}

// DisabledEgressID synthesizes the placeholder recording ID returned when
// server-side recording is administratively disabled. These IDs are never
// sent to the media provider.
func DisabledEgressID() string {
	return fmt.Sprintf("dev-%d", time.Now().UnixMilli())
}

// IsDisabledEgressID reports whether id is a synthetic placeholder produced
// by DisabledEgressID.
func IsDisabledEgressID(id string) bool {
	return strings.HasPrefix(id, "dev-")
}
