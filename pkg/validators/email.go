// Package validators contains validators found throughout the application
// that have been abstracted away from the main code
package validators

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

var (
	ErrEmailEmpty   = errors.New("no email address provided")
	ErrEmailInvalid = errors.New("invalid email address provided")
	ErrEmailTooLong = errors.New("email address is too long")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func EmailValidator(e string) error {
	if e == "" {
		return ErrEmailEmpty
	}

	if len(e) > 254 {
		return ErrEmailTooLong
	}

	if err := validate.Var(e, "email"); err != nil {
		return ErrEmailInvalid
	}

	return nil
}
