package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenClass tells short and long lived session tokens apart. Each class is
// signed with its own secret.
type TokenClass string

const (
	ClassShort TokenClass = "short"
	ClassLong  TokenClass = "long"
)

// ErrInvalidToken is the only error Verify returns. Expired, tampered and
// wrongly classed tokens all look the same to callers.
var ErrInvalidToken = errors.New("session token could not be verified, please log in again")

// Identity is the minimal set of user facts a session token carries
type Identity struct {
	UserID        string
	Email         string
	EmailVerified bool
}

// SessionClaims is the JWT payload of a session token
type SessionClaims struct {
	jwt.RegisteredClaims
	Email         string     `json:"email"`
	EmailVerified bool       `json:"email_verified"`
	TokenType     TokenClass `json:"token_type"`
}

// Identity returns the user facts held by the claims
func (c *SessionClaims) Identity() Identity {
	return Identity{
		UserID:        c.Subject,
		Email:         c.Email,
		EmailVerified: c.EmailVerified,
	}
}

// TokenPair is handed back after every authenticated operation
type TokenPair struct {
	Short string `json:"short"`
	Long  string `json:"long"`
}

type SessionConfig struct {
	ShortSecret []byte
	LongSecret  []byte
	ShortTTL    time.Duration
	LongTTL     time.Duration
	Issuer      string

	// Now defaults to time.Now
	Now func() time.Time
}

// SessionCodec mints and verifies session tokens
type SessionCodec struct {
	cfg SessionConfig
}

func NewSessionCodec(cfg SessionConfig) (*SessionCodec, error) {
	if len(cfg.ShortSecret) == 0 || len(cfg.LongSecret) == 0 {
		return nil, errors.New("both session secrets are required")
	}

	if string(cfg.ShortSecret) == string(cfg.LongSecret) {
		return nil, errors.New("short and long session secrets must differ")
	}

	if cfg.ShortTTL <= 0 || cfg.LongTTL <= 0 {
		return nil, errors.New("session lifetimes must be bigger than 0")
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &SessionCodec{cfg: cfg}, nil
}

func (s *SessionCodec) params(class TokenClass) ([]byte, time.Duration, error) {
	switch class {
	case ClassShort:
		return s.cfg.ShortSecret, s.cfg.ShortTTL, nil
	case ClassLong:
		return s.cfg.LongSecret, s.cfg.LongTTL, nil
	default:
		return nil, 0, fmt.Errorf("unknown token class %q", class)
	}
}

// Mint signs a token of the given class for id
func (s *SessionCodec) Mint(class TokenClass, id Identity) (string, error) {
	secret, ttl, err := s.params(class)
	if err != nil {
		return "", err
	}

	if id.UserID == "" {
		return "", errors.New("no user ID provided")
	}

	now := s.cfg.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.UserID,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:         id.Email,
		EmailVerified: id.EmailVerified,
		TokenType:     class,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// MintPair signs a fresh short and long token for id
func (s *SessionCodec) MintPair(id Identity) (TokenPair, error) {
	short, err := s.Mint(ClassShort, id)
	if err != nil {
		return TokenPair{}, err
	}

	long, err := s.Mint(ClassLong, id)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{Short: short, Long: long}, nil
}

// Verify checks the signature, expiry and class of token
func (s *SessionCodec) Verify(class TokenClass, token string) (*SessionClaims, error) {
	secret, _, err := s.params(class)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if token == "" {
		return nil, ErrInvalidToken
	}

	var claims SessionClaims

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.cfg.Now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}

	_, err = jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		zap.L().Debug("Session token rejected", zap.String("class", string(class)), zap.Error(err))
		return nil, ErrInvalidToken
	}

	if claims.TokenType != class {
		zap.L().Debug("Session token class mismatch", zap.String("want", string(class)), zap.String("got", string(claims.TokenType)))
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" {
		zap.L().Debug("Session token has no subject")
		return nil, ErrInvalidToken
	}

	return &claims, nil
}
