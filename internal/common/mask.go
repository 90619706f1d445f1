package common

import "strings"

// maskTail is the fixed-length replacement for the hidden remainder of a
// sensitive value. Its length never varies with the input, so masked output
// leaks nothing about the secret's size beyond the visible prefix.
const maskTail = "****"

// Mask returns a log-safe representation of a sensitive value. The first
// `visible` characters are retained and the remainder replaced by a fixed
// mask. When visible <= 0 the output is the mask alone, even for an empty
// value; when the value is no longer than the visible prefix the entire
// value is masked character for character.
func Mask(value string, visible int) string {
	if visible <= 0 {
		return maskTail
	}
	if len(value) <= visible {
		return strings.Repeat("*", len(value))
	}
	return value[:visible] + maskTail
}
