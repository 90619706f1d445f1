// Package totp derives time-based one-time codes from a shared base32 seed.
package totp

import (
	"encoding/base32"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp/totp"
)

// ErrInvalidSeed indicates the seed is not decodable base32.
var ErrInvalidSeed = fmt.Errorf("invalid totp seed")

// NormalizeSeed strips whitespace and hyphens from a user-supplied seed,
// uppercases it, and re-pads it to a multiple of 8 characters so it decodes
// as standard base32. Authenticator setup pages present seeds in spaced
// lowercase groups; this accepts those verbatim.
func NormalizeSeed(seed string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '-':
			return -1
		}
		return r
	}, seed)
	cleaned = strings.ToUpper(cleaned)
	cleaned = strings.TrimRight(cleaned, "=")
	if rem := len(cleaned) % 8; rem != 0 {
		cleaned += strings.Repeat("=", 8-rem)
	}
	return cleaned
}

// Generate returns the current 6-digit code for the seed. Pure and stateless:
// two calls within the same 30-second window return the same code.
func Generate(seed string) (string, error) {
	return GenerateAt(seed, time.Now())
}

// GenerateAt returns the 6-digit code for the seed at the given time.
func GenerateAt(seed string, t time.Time) (string, error) {
	normalized := NormalizeSeed(seed)
	if normalized == "" {
		return "", ErrInvalidSeed
	}
	if _, err := base32.StdEncoding.DecodeString(normalized); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}

	code, err := totp.GenerateCode(normalized, t)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	return code, nil
}
