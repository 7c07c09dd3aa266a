package security

import (
	"bigfootds/auth-api/internal/model"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode_TVLogin(t *testing.T) {
	for i := 0; i < 2000; i++ {
		code, err := GenerateCode(model.TokenTVLogin)
		require.NoError(t, err)

		assert.Len(t, code, TVCodeLength)
		assert.False(t, strings.ContainsAny(code, "0O1IL"), "code %q has a confusable character", code)

		for _, r := range code {
			assert.True(t, strings.ContainsRune(TVAlphabet, r), "code %q has %q outside the alphabet", code, r)
		}
	}
}

func TestGenerateCode_EmailVerification(t *testing.T) {
	seen := map[string]bool{}

	for i := 0; i < 100; i++ {
		code, err := GenerateCode(model.TokenEmailVerification)
		require.NoError(t, err)

		b, err := hex.DecodeString(code)
		require.NoError(t, err)
		assert.Len(t, b, 16)

		assert.False(t, seen[code])
		seen[code] = true
	}
}

func TestGenerateCode_UnknownType(t *testing.T) {
	_, err := GenerateCode(model.TokenType("password-reset"))
	assert.Error(t, err)
}
