package internal

import (
	"bigfootds/auth-api/config"
	"bigfootds/auth-api/internal/testdb"
	"bigfootds/auth-api/pkg/security"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopMailer struct{}

func (nopMailer) SendVerificationEmail(context.Context, string, string) error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			ShortSecret: "short-secret",
			LongSecret:  "long-secret",
			ShortTTL:    time.Hour,
			LongTTL:     24 * time.Hour,
		},
		Password: config.PasswordConfig{MinLength: 8, MinLower: 1, MinUpper: 1, MinDigits: 1},
		Tokens:   config.TokensConfig{EmailVerificationTTL: time.Hour, TVLoginTTL: time.Minute},
		Mail:     config.MailConfig{ResendCooldown: time.Minute},
	}
}

func TestNewDeps(t *testing.T) {
	argon := &security.ArgonHash{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

	d, err := NewDeps(testConfig(), testdb.New(t), argon, nopMailer{})
	require.NoError(t, err)

	ctx := context.Background()

	created, err := d.Auth.Signup(ctx, "a@example.com", "Password1")
	require.NoError(t, err)

	// The stores share the hasher handed to NewDeps
	stored, err := d.Users.FindByID(ctx, created.User.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.PasswordHash, "m=1024,t=1,p=1")

	sess, err := d.Auth.Login(ctx, "a@example.com", "Password1")
	require.NoError(t, err)
	assert.Equal(t, created.User.ID, sess.User.ID)
}

func TestNewDeps_DefaultHasher(t *testing.T) {
	d, err := NewDeps(testConfig(), testdb.New(t), nil, nopMailer{})
	require.NoError(t, err)
	assert.NotNil(t, d.Users)
}

func TestNewDeps_SharedSecret(t *testing.T) {
	c := testConfig()
	c.JWT.LongSecret = c.JWT.ShortSecret

	_, err := NewDeps(c, testdb.New(t), nil, nopMailer{})
	assert.Error(t, err)
}
