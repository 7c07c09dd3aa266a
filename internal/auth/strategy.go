package auth

import (
	"bigfootds/auth-api/pkg/security"
	"context"
	"fmt"
)

// Strategy is how a caller proves who they are. Every route picks exactly one.
type Strategy int

const (
	// StrategyPassword takes an email and a password
	StrategyPassword Strategy = iota
	// StrategySessionHeader takes a session token from the Authorization header
	StrategySessionHeader
	// StrategySessionParam takes a session token from the jwt query parameter,
	// used where a browser is redirected and can't set headers
	StrategySessionParam
	// StrategyOAuthState takes the short token that went through an OAuth
	// provider as state
	StrategyOAuthState
	// StrategyTVCode takes a TV login code
	StrategyTVCode
)

func (s Strategy) String() string {
	switch s {
	case StrategyPassword:
		return "password"
	case StrategySessionHeader:
		return "session-header"
	case StrategySessionParam:
		return "session-param"
	case StrategyOAuthState:
		return "oauth-state"
	case StrategyTVCode:
		return "tv-code"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// Credentials carries the input of a strategy. Each strategy reads only the
// fields it needs.
type Credentials struct {
	Email    string
	Password string

	// Token is a session token, Class the class it has to be
	Token string
	Class security.TokenClass

	Code string
}

// Authenticate runs strategy against creds
func (s *Service) Authenticate(ctx context.Context, strategy Strategy, creds Credentials) (*Session, error) {
	switch strategy {
	case StrategyPassword:
		return s.Login(ctx, creds.Email, creds.Password)
	case StrategySessionHeader, StrategySessionParam:
		return s.Resume(ctx, creds.Class, creds.Token)
	case StrategyOAuthState:
		return s.Resume(ctx, security.ClassShort, creds.Token)
	case StrategyTVCode:
		return s.RedeemTVCode(ctx, creds.Code)
	default:
		return nil, fmt.Errorf("unknown authentication strategy %v", strategy)
	}
}
