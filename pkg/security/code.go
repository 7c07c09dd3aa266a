package security

import (
	"bigfootds/auth-api/internal/model"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// Email verification codes travel inside links and are never typed by a person
	emailCodeBytes = 16

	// TVAlphabet leaves out characters that are easy to misread on a screen (0/O, 1/I/L)
	TVAlphabet   = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"
	TVCodeLength = 8
)

// GenerateCode returns a fresh random code for a single-use token of type t
func GenerateCode(t model.TokenType) (string, error) {
	switch t {
	case model.TokenEmailVerification:
		b := make([]byte, emailCodeBytes)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}

		return hex.EncodeToString(b), nil
	case model.TokenTVLogin:
		return gonanoid.Generate(TVAlphabet, TVCodeLength)
	default:
		return "", fmt.Errorf("unknown token type %q", t)
	}
}
