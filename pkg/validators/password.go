package validators

import (
	"errors"
	"fmt"
	"unicode"
)

var (
	ErrPasswordEmpty   = errors.New("no password provided")
	ErrPasswordTooLong = errors.New("password is too long")
)

// PasswordPolicy describes how strong a password has to be
type PasswordPolicy struct {
	MinLength int
	MinLower  int
	MinUpper  int
	MinDigits int
}

// DefaultPasswordPolicy asks for 8 characters with a lowercase letter, an
// uppercase letter and a digit
var DefaultPasswordPolicy = PasswordPolicy{
	MinLength: 8,
	MinLower:  1,
	MinUpper:  1,
	MinDigits: 1,
}

func PasswordValidator(p string, policy PasswordPolicy) error {
	if p == "" {
		return ErrPasswordEmpty
	}

	// Length is counted in runes so multi-byte characters aren't punished
	length := len([]rune(p))
	if length < policy.MinLength {
		return fmt.Errorf("password must be at least %d characters long", policy.MinLength)
	}

	// argon2 doesn't care but nobody needs more than this
	if len(p) > 255 {
		return ErrPasswordTooLong
	}

	var lower, upper, digits int
	for _, r := range p {
		switch {
		case unicode.IsLower(r):
			lower++
		case unicode.IsUpper(r):
			upper++
		case unicode.IsDigit(r):
			digits++
		}
	}

	if lower < policy.MinLower {
		return fmt.Errorf("password must contain at least %d lowercase letter(s)", policy.MinLower)
	}

	if upper < policy.MinUpper {
		return fmt.Errorf("password must contain at least %d uppercase letter(s)", policy.MinUpper)
	}

	if digits < policy.MinDigits {
		return fmt.Errorf("password must contain at least %d digit(s)", policy.MinDigits)
	}

	return nil
}
