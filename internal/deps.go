package internal

import (
	"bigfootds/auth-api/config"
	"bigfootds/auth-api/internal/auth"
	"bigfootds/auth-api/internal/oauth"
	"bigfootds/auth-api/internal/store"
	"bigfootds/auth-api/pkg/security"
	"bigfootds/auth-api/pkg/validators"

	"gorm.io/gorm"
)

// Deps is everything a handler may need
type Deps struct {
	Config    *config.Config
	DB        *gorm.DB
	Users     *store.UserStore
	Tokens    *store.TokenStore
	Sessions  *security.SessionCodec
	Providers *oauth.Registry
	Auth      *auth.Service
}

// NewDeps wires the stores, the session codec and the auth service on top of
// an open database. argon may be nil to use the default cost parameters.
func NewDeps(c *config.Config, db *gorm.DB, argon *security.ArgonHash, mailer auth.Mailer) (*Deps, error) {
	if argon == nil {
		argon = security.New()
	}

	sessions, err := security.NewSessionCodec(security.SessionConfig{
		ShortSecret: []byte(c.JWT.ShortSecret),
		LongSecret:  []byte(c.JWT.LongSecret),
		ShortTTL:    c.JWT.ShortTTL,
		LongTTL:     c.JWT.LongTTL,
		Issuer:      c.JWT.Issuer,
	})
	if err != nil {
		return nil, err
	}

	d := &Deps{
		Config:   c,
		DB:       db,
		Sessions: sessions,
		Users: store.NewUserStore(db, argon, validators.PasswordPolicy{
			MinLength: c.Password.MinLength,
			MinLower:  c.Password.MinLower,
			MinUpper:  c.Password.MinUpper,
			MinDigits: c.Password.MinDigits,
		}),
		Tokens: store.NewTokenStore(db, store.TokenTTLs{
			EmailVerification: c.Tokens.EmailVerificationTTL,
			TVLogin:           c.Tokens.TVLoginTTL,
		}),
		Providers: oauth.NewRegistry(c.OAuth),
	}

	d.Auth = auth.NewService(auth.Deps{
		Users:          d.Users,
		Tokens:         d.Tokens,
		Sessions:       d.Sessions,
		Mailer:         mailer,
		Providers:      d.Providers,
		ResendCooldown: c.Mail.ResendCooldown,
	})

	return d, nil
}
