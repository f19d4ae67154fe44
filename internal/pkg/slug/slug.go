// Package slug derives URL slugs for restaurants.
package slug

import (
	"crypto/rand"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	MaxLength    = 50
	suffixLength = 4
	maxAttempts  = 10
	alphabet     = "0123456789abcdefghijklmnopqrstuvwxyz"
	fallbackSlug = "restaurant"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// ErrExhausted is returned when no free slug was found.
var ErrExhausted = errors.New("could not find a free slug")

// Make lowercases name, folds accents, collapses everything that is not
// [a-z0-9] into single dashes and truncates to MaxLength.
func Make(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}

	s := nonAlnum.ReplaceAllString(strings.ToLower(folded), "-")
	s = strings.Trim(s, "-")
	if len(s) > MaxLength {
		s = strings.TrimRight(s[:MaxLength], "-")
	}
	if s == "" {
		return fallbackSlug
	}
	return s
}

// Unique returns Make(name), or a variant with a random suffix when taken
// reports a collision.
func Unique(name string, taken func(candidate string) (bool, error)) (string, error) {
	base := Make(name)
	candidate := base
	for i := 0; i < maxAttempts; i++ {
		exists, err := taken(candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}

		suffix, err := randomSuffix(suffixLength)
		if err != nil {
			return "", err
		}
		trimmed := base
		if limit := MaxLength - suffixLength - 1; len(trimmed) > limit {
			trimmed = strings.TrimRight(trimmed[:limit], "-")
		}
		candidate = trimmed + "-" + suffix
	}
	return "", ErrExhausted
}

func randomSuffix(length int) (string, error) {
	// Rejection sampling to avoid modulo bias.
	// 252 is the largest multiple of 36 below 256.
	const maxRandomByte = 252

	out := make([]byte, 0, length)
	buf := make([]byte, length*2)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read secure random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= maxRandomByte {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}
