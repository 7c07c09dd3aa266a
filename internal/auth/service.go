// Package auth is the use-case layer of the service. It composes the user and
// token stores with the session codec and emits a fresh token pair after every
// successful operation.
package auth

import (
	"bigfootds/auth-api/internal/apperr"
	"bigfootds/auth-api/internal/model"
	"bigfootds/auth-api/internal/oauth"
	"bigfootds/auth-api/internal/store"
	"bigfootds/auth-api/pkg/security"
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
)

type Users interface {
	Create(ctx context.Context, email, password string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	VerifyPassword(user *model.User, p string) bool
	VerifyAbsent(p string)
	Update(ctx context.Context, requestorID, targetID string, patch store.UserPatch) (*model.User, bool, error)
	Delete(ctx context.Context, requestorID, targetID string) (*model.User, error)
	Remove(ctx context.Context, id string) error
	SetEmailVerified(ctx context.Context, id string) (*model.User, error)
	LinkIdentity(ctx context.Context, userID, provider, profileID string) (*model.User, error)
	StartResend(ctx context.Context, userID string, cooldown time.Duration) error
	CancelResend(ctx context.Context, userID string) error
}

type Tokens interface {
	Issue(ctx context.Context, userID string, t model.TokenType) (*model.SingleUseToken, error)
	Redeem(ctx context.Context, code string, t model.TokenType) (*model.SingleUseToken, error)
	DeleteForUser(ctx context.Context, userID string, t model.TokenType) error
	DeleteOthers(ctx context.Context, userID string, t model.TokenType, keep uint) error
}

type Sessions interface {
	MintPair(id security.Identity) (security.TokenPair, error)
	Verify(class security.TokenClass, token string) (*security.SessionClaims, error)
}

type Mailer interface {
	SendVerificationEmail(ctx context.Context, recipient, code string) error
}

type Providers interface {
	Get(name string) (oauth.Provider, error)
}

// Deps is everything the Service is built from
type Deps struct {
	Users     Users
	Tokens    Tokens
	Sessions  Sessions
	Mailer    Mailer
	Providers Providers

	ResendCooldown time.Duration
}

// Session is the outcome of every operation that authenticates a caller
type Session struct {
	User   *model.User        `json:"user"`
	Tokens security.TokenPair `json:"tokens"`
}

type Service struct {
	d Deps
}

func NewService(d Deps) *Service {
	return &Service{d: d}
}

func identity(u *model.User) security.Identity {
	return security.Identity{
		UserID:        u.ID,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
	}
}

func (s *Service) session(u *model.User) (*Session, error) {
	pair, err := s.d.Sessions.MintPair(identity(u))
	if err != nil {
		return nil, err
	}

	return &Session{User: u, Tokens: pair}, nil
}

// sendVerification mails user a new verification code. Older codes stay
// valid until the new one has been delivered.
func (s *Service) sendVerification(ctx context.Context, user *model.User) error {
	token, err := s.d.Tokens.Issue(ctx, user.ID, model.TokenEmailVerification)
	if err != nil {
		return err
	}

	if err := s.d.Mailer.SendVerificationEmail(ctx, user.Email, token.Code); err != nil {
		return apperr.Wrap(apperr.ErrDeliveryFailure, err)
	}

	if err := s.d.Tokens.DeleteOthers(ctx, user.ID, model.TokenEmailVerification, token.ID); err != nil {
		zap.L().Warn("Failed to drop older verification codes", zap.String("userID", user.ID), zap.Error(err))
	}

	return nil
}

// Signup creates an unverified user and mails them a verification code. If the
// mail can't be sent the user is deleted again and never returned.
func (s *Service) Signup(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.d.Users.Create(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return nil, err
	}

	if err := s.sendVerification(ctx, user); err != nil {
		zap.L().Warn("Signup aborted, rolling back user", zap.String("userID", user.ID), zap.Error(err))

		if rerr := s.d.Users.Remove(context.WithoutCancel(ctx), user.ID); rerr != nil {
			zap.L().Error("Failed to roll back user", zap.String("userID", user.ID), zap.Error(rerr))
		}

		return nil, err
	}

	return s.session(user)
}

// Login checks email and password. Both an unknown email and a wrong password
// fail with the same error after the same amount of hashing work.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.d.Users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}

		s.d.Users.VerifyAbsent(password)
		return nil, apperr.ErrAuthentication
	}

	if !s.d.Users.VerifyPassword(user, password) {
		return nil, apperr.ErrAuthentication
	}

	return s.session(user)
}

// Resume verifies a bearer token of the given class and reloads its user. The
// user may have been changed or deleted since the token was minted, so the
// claims are never used on their own.
func (s *Service) Resume(ctx context.Context, class security.TokenClass, bearer string) (*Session, error) {
	claims, err := s.d.Sessions.Verify(class, bearer)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrInvalidToken, err)
	}

	user, err := s.d.Users.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Wrap(apperr.ErrInvalidToken, err)
		}

		return nil, err
	}

	return s.session(user)
}

// IssueTVCode creates a TV login code for the user
func (s *Service) IssueTVCode(ctx context.Context, userID string) (*model.SingleUseToken, error) {
	return s.d.Tokens.Issue(ctx, userID, model.TokenTVLogin)
}

// NormalizeTVCode undoes what people do to a code while typing it
func NormalizeTVCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// RedeemTVCode consumes a TV login code and logs its owner in. The code is the
// only credential.
func (s *Service) RedeemTVCode(ctx context.Context, code string) (*Session, error) {
	token, err := s.d.Tokens.Redeem(ctx, NormalizeTVCode(code), model.TokenTVLogin)
	if err != nil {
		return nil, err
	}

	user, err := s.d.Users.FindByID(ctx, token.UserID)
	if err != nil {
		return nil, err
	}

	return s.session(user)
}

// VerifyEmail consumes an email verification code and flags its owner's email
// as verified
func (s *Service) VerifyEmail(ctx context.Context, code string) (*model.User, error) {
	token, err := s.d.Tokens.Redeem(ctx, strings.TrimSpace(code), model.TokenEmailVerification)
	if err != nil {
		return nil, err
	}

	return s.d.Users.SetEmailVerified(ctx, token.UserID)
}

// ResendVerification mails a new verification code unless the email is
// verified already or the last one was sent too recently. A failed send keeps
// the older codes and doesn't start the cooldown.
func (s *Service) ResendVerification(ctx context.Context, userID string) error {
	user, err := s.d.Users.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if user.EmailVerified {
		return apperr.New(apperr.KindValidation, "Email is already verified")
	}

	if err := s.d.Users.StartResend(ctx, user.ID, s.d.ResendCooldown); err != nil {
		return err
	}

	if err := s.sendVerification(ctx, user); err != nil {
		// Nothing was sent, so the user may try again right away
		if cerr := s.d.Users.CancelResend(context.WithoutCancel(ctx), user.ID); cerr != nil {
			zap.L().Error("Failed to cancel resend cooldown", zap.String("userID", user.ID), zap.Error(cerr))
		}

		return err
	}

	return nil
}

// OAuthURL returns the provider URL the user of sess is sent to. The session's
// short token rides along as the OAuth state.
func (s *Service) OAuthURL(providerName string, sess *Session) (string, error) {
	p, err := s.d.Providers.Get(providerName)
	if err != nil {
		return "", err
	}

	return p.AuthCodeURL(sess.Tokens.Short), nil
}

// CompleteOAuth handles the provider's redirect back. The state is checked
// before the provider is contacted.
func (s *Service) CompleteOAuth(ctx context.Context, providerName, code, state string) (*Session, error) {
	p, err := s.d.Providers.Get(providerName)
	if err != nil {
		return nil, err
	}

	if _, err := s.d.Sessions.Verify(security.ClassShort, state); err != nil {
		return nil, apperr.Wrap(apperr.ErrInvalidToken, err)
	}

	if code == "" {
		return nil, apperr.New(apperr.KindValidation, "No authorization code provided")
	}

	profileID, err := p.Exchange(ctx, code)
	if err != nil {
		zap.L().Warn("OAuth exchange failed", zap.String("provider", providerName), zap.Error(err))
		return nil, apperr.Wrap(apperr.ErrAuthentication, err)
	}

	return s.LinkOAuth(ctx, state, p.Name(), profileID)
}

// LinkOAuth attaches a provider profile to the user behind state. The state is
// a short token that went through the provider and is verified like any other
// bearer.
func (s *Service) LinkOAuth(ctx context.Context, state, provider, profileID string) (*Session, error) {
	if !model.ValidProvider(provider) {
		return nil, apperr.ErrUnknownProvider
	}

	if profileID == "" {
		return nil, apperr.New(apperr.KindValidation, "No profile ID provided")
	}

	sess, err := s.Resume(ctx, security.ClassShort, state)
	if err != nil {
		return nil, err
	}

	user, err := s.d.Users.LinkIdentity(ctx, sess.User.ID, provider, profileID)
	if err != nil {
		return nil, err
	}

	return s.session(user)
}

// UpdateUser changes the requestor's own account. A new email address gets a
// fresh verification code; a failed mail doesn't undo the update since the
// user can ask for another one.
func (s *Service) UpdateUser(ctx context.Context, requestorID, targetID string, patch store.UserPatch) (*Session, error) {
	if patch.Email != nil {
		e := strings.TrimSpace(*patch.Email)
		patch.Email = &e
	}

	user, emailChanged, err := s.d.Users.Update(ctx, requestorID, targetID, patch)
	if err != nil {
		return nil, err
	}

	if emailChanged {
		// Codes mailed to the old address must not verify the new one
		if err := s.d.Tokens.DeleteForUser(ctx, user.ID, model.TokenEmailVerification); err != nil {
			return nil, err
		}

		if err := s.sendVerification(ctx, user); err != nil {
			zap.L().Warn("Failed to send verification for changed email", zap.String("userID", user.ID), zap.Error(err))
		}
	}

	return s.session(user)
}

// DeleteUser removes the requestor's own account and returns it as it was
func (s *Service) DeleteUser(ctx context.Context, requestorID, targetID string) (*model.User, error) {
	return s.d.Users.Delete(ctx, requestorID, targetID)
}
