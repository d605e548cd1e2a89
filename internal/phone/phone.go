// Package phone implements the submission validator: a pure predicate that
// decides whether a raw string is an acceptable phone number and returns its
// canonical form.
//
// Canonicalization is intentionally minimal: the input is trimmed and matched
// against a configured pattern, and the trimmed value itself is the canonical
// form. No digit reformatting, country-code inference, or normalization is
// performed; if the deployment wants a stricter national format it configures
// a stricter pattern (e.g. `^\+989[0-9]{9}$`).
package phone

import (
	"errors"
	"regexp"
	"strings"
)

// DefaultPattern accepts 7 to 15 digits with an optional leading plus sign,
// which covers E.164 and bare national formats.
const DefaultPattern = `^\+?[0-9]{7,15}$`

// ErrInvalidPhone is returned when the input does not match the configured
// pattern. Handlers map it to a 400 response with code "invalid_phone".
var ErrInvalidPhone = errors.New("invalid_phone")

// Validator checks raw submissions against a compiled pattern.
// It is immutable after construction and safe for concurrent use.
type Validator struct {
	re *regexp.Regexp
}

// New compiles pattern into a Validator. An empty pattern selects
// DefaultPattern. A malformed pattern is a configuration error and is
// returned to the caller rather than deferred to request time.
func New(pattern string) (*Validator, error) {
	if strings.TrimSpace(pattern) == "" {
		pattern = DefaultPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &Validator{re: re}, nil
}

// MustNew is like New but panics on a malformed pattern. Intended for
// process bootstrap where configuration has already been validated.
func MustNew(pattern string) *Validator {
	v, err := New(pattern)
	if err != nil {
		panic(err)
	}
	return v
}

// Validate trims surrounding whitespace and matches the result against the
// configured pattern. On success it returns the trimmed value as the
// canonical phone string; on mismatch it returns ErrInvalidPhone.
//
// Validate is side-effect free and safe to call concurrently.
func (v *Validator) Validate(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" || !v.re.MatchString(s) {
		return "", ErrInvalidPhone
	}
	return s, nil
}
