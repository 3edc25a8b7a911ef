// Package sanitize cleans free-text input arriving from chat clients.
package sanitize

import (
	"errors"
	"fmt"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxInputSize is 4KB (conservative default).
const DefaultMaxInputSize = 4096

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
	ErrControlChar   = errors.New("input contains control characters")
)

// Sanitizer enforces size limits, validates UTF-8 and rejects control characters.
type Sanitizer struct {
	MaxSize int
}

// New creates a Sanitizer. A non-positive limit means DefaultMaxInputSize.
func New(maxSize int) *Sanitizer {
	if maxSize <= 0 {
		maxSize = DefaultMaxInputSize
	}
	return &Sanitizer{MaxSize: maxSize}
}

// Clean returns input unchanged, or an error when it is oversized, invalid
// UTF-8, or holds a control character other than \n, \t and \r.
func (s *Sanitizer) Clean(input string) (string, error) {
	// We explicitly reject rather than truncate to ensure deterministic state.
	if len(input) > s.MaxSize {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), s.MaxSize)
	}

	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	for i, r := range input {
		if unicode.IsControl(r) && !isSafeControl(r) {
			return "", fmt.Errorf("%w: %U at byte %d", ErrControlChar, r, i)
		}
	}
	return input, nil
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}
