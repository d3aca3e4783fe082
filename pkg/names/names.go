// Package names canonicalizes human-entered domain and club names.
//
// Every component that accepts a name goes through Parse so that all of them
// agree on key identity. The display suffix is stripped once and never stored.
package names

import (
	"strings"

	dErrors "clubdomains/pkg/domain-errors"
)

// Suffix is the fixed display suffix.
const Suffix = ".club"

// MaxLength bounds the canonical form. Longer names are rejected.
const MaxLength = 64

// ErrInvalidName is returned for every rejected name.
var ErrInvalidName = dErrors.New(dErrors.CodeInvalidInput, "invalid name")

// Name is a canonical name: non-empty, [a-z0-9_]+, suffix stripped.
type Name string

// Normalize strips Suffix once if present and validates the remainder.
// Input is not lowercased or trimmed.
func Normalize(raw string) (Name, bool) {
	s := strings.TrimSuffix(raw, Suffix)
	if s == "" || len(s) > MaxLength {
		return "", false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '_' {
			return "", false
		}
	}
	return Name(s), true
}

// Parse is Normalize returning ErrInvalidName on rejection.
func Parse(raw string) (Name, error) {
	n, ok := Normalize(raw)
	if !ok {
		return "", ErrInvalidName
	}
	return n, nil
}

// MustParse panics on invalid input. Intended for tests and fixtures.
func MustParse(raw string) Name {
	n, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return n
}

func (n Name) String() string { return string(n) }

// Display returns the name with the display suffix.
func (n Name) Display() string { return string(n) + Suffix }

// Len is the pricing length of the name.
func (n Name) Len() int { return len(n) }
