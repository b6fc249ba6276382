package service

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultEmailPattern requires a local part drawn from [A-Za-z0-9+_.-],
	// exactly one '@' and a non-empty domain.
	DefaultEmailPattern = `^[A-Za-z0-9+_.-]+@[^@\r\n]+$`
	// DefaultPasswordMinLength is counted in characters after trimming.
	DefaultPasswordMinLength = 8
)

// ValidationPolicy holds the format rules applied to emails and passwords.
type ValidationPolicy struct {
	EmailPattern      string
	PasswordMinLength int
}

// DefaultValidationPolicy returns the stock policy.
func DefaultValidationPolicy() ValidationPolicy {
	return ValidationPolicy{
		EmailPattern:      DefaultEmailPattern,
		PasswordMinLength: DefaultPasswordMinLength,
	}
}

// Validator decides whether emails and passwords meet a ValidationPolicy.
// It is safe for concurrent use.
type Validator struct {
	email          *regexp.Regexp
	minPasswordLen int
}

func NewValidator(policy ValidationPolicy) (*Validator, error) {
	re, err := regexp.Compile(policy.EmailPattern)
	if err != nil {
		return nil, fmt.Errorf("compile email pattern: %w", err)
	}
	if policy.PasswordMinLength <= 0 {
		policy.PasswordMinLength = DefaultPasswordMinLength
	}
	return &Validator{email: re, minPasswordLen: policy.PasswordMinLength}, nil
}

// MustNewValidator is like NewValidator but panics on an invalid policy.
func MustNewValidator(policy ValidationPolicy) *Validator {
	v, err := NewValidator(policy)
	if err != nil {
		panic(err)
	}
	return v
}

// ValidateEmail reports whether s is non-blank and matches the email pattern.
// No DNS or MX lookup is performed.
func (v *Validator) ValidateEmail(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	return v.email.MatchString(s)
}

// ValidatePassword reports whether s is non-blank, at least the minimum
// length once trimmed, and contains an ASCII letter and an ASCII digit.
func (v *Validator) ValidatePassword(s string) bool {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || utf8.RuneCountInString(trimmed) < v.minPasswordLen {
		return false
	}

	var hasLetter, hasDigit bool
	for _, r := range trimmed {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			hasLetter = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
		if hasLetter && hasDigit {
			return true
		}
	}
	return false
}
