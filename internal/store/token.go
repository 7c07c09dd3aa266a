package store

import (
	"bigfootds/auth-api/internal/apperr"
	"bigfootds/auth-api/internal/model"
	"bigfootds/auth-api/pkg/security"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Random codes collide so rarely that running out of attempts means something
// else is broken
const maxIssueAttempts = 16

// TokenTTLs is how long each kind of single-use token stays redeemable
type TokenTTLs struct {
	EmailVerification time.Duration
	TVLogin           time.Duration
}

// TokenStore issues and redeems single-use tokens
type TokenStore struct {
	db   *gorm.DB
	ttls TokenTTLs

	// Both are swapped out in tests
	generate func(model.TokenType) (string, error)
	now      func() time.Time
}

func NewTokenStore(db *gorm.DB, ttls TokenTTLs) *TokenStore {
	return &TokenStore{
		db:       db,
		ttls:     ttls,
		generate: security.GenerateCode,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *TokenStore) ttl(t model.TokenType) time.Duration {
	if t == model.TokenTVLogin {
		return s.ttls.TVLogin
	}

	return s.ttls.EmailVerification
}

// Issue creates a token of type t for the user. The code is unique among all
// live tokens: it's checked before the insert and the unique index rejects a
// code that was taken in the meantime, in which case a new one is drawn.
func (s *TokenStore) Issue(ctx context.Context, userID string, t model.TokenType) (*model.SingleUseToken, error) {
	if userID == "" {
		return nil, errors.New("no user ID provided")
	}

	if !t.Valid() {
		return nil, fmt.Errorf("unknown token type %q", t)
	}

	db := s.db.WithContext(ctx)

	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		code, err := s.generate(t)
		if err != nil {
			return nil, fmt.Errorf("failed to generate code, %w", err)
		}

		now := s.now()

		var holder model.SingleUseToken

		r := db.Where("code = ?", code).Limit(1).Find(&holder)
		if r.Error != nil {
			return nil, r.Error
		}

		if r.RowsAffected > 0 {
			if holder.ExpiresAt.After(now) {
				zap.L().Debug("Single-use code taken, drawing a new one", zap.String("type", string(t)))
				continue
			}

			// Dead tokens waiting for the cleanup job must not block a code
			err := db.Where("id = ? AND expires_at <= ?", holder.ID, now).
				Delete(&model.SingleUseToken{}).
				Error
			if err != nil {
				return nil, err
			}
		}

		token := &model.SingleUseToken{
			UserID:    userID,
			Code:      code,
			Type:      t,
			CreatedAt: now,
			ExpiresAt: now.Add(s.ttl(t)),
		}

		err = db.Create(token).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			zap.L().Debug("Single-use code taken at commit, drawing a new one", zap.String("type", string(t)))
			continue
		}

		if err != nil {
			return nil, err
		}

		return token, nil
	}

	return nil, fmt.Errorf("no free %s code found after %d attempts", t, maxIssueAttempts)
}

// Redeem consumes the live token holding code. Only the caller whose delete
// actually removed the row gets the token, every other caller gets NotFound.
func (s *TokenStore) Redeem(ctx context.Context, code string, t model.TokenType) (*model.SingleUseToken, error) {
	if code == "" {
		return nil, apperr.ErrNotFound
	}

	var token model.SingleUseToken

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := tx.Where("code = ? AND type = ? AND expires_at > ?", code, t, s.now()).
			Limit(1).
			Find(&token)
		if r.Error != nil {
			return r.Error
		}

		if r.RowsAffected == 0 {
			return apperr.ErrNotFound
		}

		d := tx.Where("id = ?", token.ID).Delete(&model.SingleUseToken{})
		if d.Error != nil {
			return d.Error
		}

		if d.RowsAffected != 1 {
			return apperr.ErrNotFound
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &token, nil
}

// DeleteForUser drops every token of type t the user holds
func (s *TokenStore) DeleteForUser(ctx context.Context, userID string, t model.TokenType) error {
	return s.db.WithContext(ctx).
		Where("user_id = ? AND type = ?", userID, t).
		Delete(&model.SingleUseToken{}).
		Error
}

// DeleteOthers drops every token of type t the user holds except keep
func (s *TokenStore) DeleteOthers(ctx context.Context, userID string, t model.TokenType, keep uint) error {
	return s.db.WithContext(ctx).
		Where("user_id = ? AND type = ? AND id <> ?", userID, t, keep).
		Delete(&model.SingleUseToken{}).
		Error
}

// DeleteExpired removes tokens that can no longer be redeemed and returns how
// many there were
func (s *TokenStore) DeleteExpired(ctx context.Context) (int64, error) {
	r := s.db.WithContext(ctx).
		Where("expires_at <= ?", s.now()).
		Delete(&model.SingleUseToken{})

	return r.RowsAffected, r.Error
}
