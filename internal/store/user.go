// Package store persists users, their linked identities and single-use tokens
package store

import (
	"bigfootds/auth-api/internal/apperr"
	"bigfootds/auth-api/internal/model"
	"bigfootds/auth-api/pkg/security"
	"bigfootds/auth-api/pkg/validators"
	"context"
	"errors"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const idCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// UserPatch lists the fields a user may change on their own account. Nil
// fields are left untouched.
type UserPatch struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// UserStore is the credential store. Passwords only ever reach the database
// through hashPassword.
type UserStore struct {
	db     *gorm.DB
	argon  *security.ArgonHash
	policy validators.PasswordPolicy

	dummyOnce sync.Once
	dummyHash string
}

func NewUserStore(db *gorm.DB, argon *security.ArgonHash, policy validators.PasswordPolicy) *UserStore {
	return &UserStore{
		db:     db,
		argon:  argon,
		policy: policy,
	}
}

func (s *UserStore) hashPassword(p string) (string, error) {
	if err := validators.PasswordValidator(p, s.policy); err != nil {
		return "", apperr.Validation(err)
	}

	return s.argon.Hash(p)
}

// Create validates and stores a new unverified user
func (s *UserStore) Create(ctx context.Context, email, password string) (*model.User, error) {
	// Cheap checks first, the database and the hasher come last
	if err := validators.EmailValidator(email); err != nil {
		return nil, apperr.Validation(err)
	}

	if err := validators.PasswordValidator(password, s.policy); err != nil {
		return nil, apperr.Validation(err)
	}

	var count int64

	err := s.db.WithContext(ctx).
		Model(model.User{}).
		Where("email = ?", email).
		Count(&count).
		Error
	if err != nil {
		return nil, err
	}

	if count > 0 {
		return nil, apperr.ErrDuplicateEmail
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, err
	}

	userID, err := gonanoid.Generate(idCharset, 16)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ID:              userID,
		Email:           email,
		PasswordHash:    hash,
		OAuthIdentities: []model.OAuthIdentity{},
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		// Someone registered the same email between the check and the insert
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.ErrDuplicateEmail
		}

		return nil, err
	}

	return user, nil
}

func (s *UserStore) find(ctx context.Context, query string, arg string) (*model.User, error) {
	var user model.User

	err := s.db.WithContext(ctx).
		Preload("OAuthIdentities", func(db *gorm.DB) *gorm.DB {
			return db.Order("id asc")
		}).
		Where(query, arg).
		First(&user).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "User not found")
		}

		return nil, err
	}

	return &user, nil
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*model.User, error) {
	return s.find(ctx, "id = ?", id)
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.find(ctx, "email = ?", email)
}

// VerifyPassword reports whether p matches the stored hash of user
func (s *UserStore) VerifyPassword(user *model.User, p string) bool {
	ok, err := s.argon.Verify(p, user.PasswordHash)
	if err != nil {
		zap.L().Error("Failed to verify password", zap.Error(err), zap.String("userID", user.ID))
		return false
	}

	return ok
}

// VerifyAbsent spends the same work as VerifyPassword without a user to check
// against. Login calls it for unknown emails.
func (s *UserStore) VerifyAbsent(p string) {
	s.dummyOnce.Do(func() {
		h, err := s.argon.Hash(gonanoid.Must(32))
		if err != nil {
			zap.L().Error("Failed to prepare dummy hash", zap.Error(err))
			return
		}

		s.dummyHash = h
	})

	if s.dummyHash == "" {
		return
	}

	s.argon.Verify(p, s.dummyHash)
}

// Update applies patch to the target user. Only the user themselves may do
// that. The returned user is read back after the write. The flag is set when
// the email address changed.
func (s *UserStore) Update(ctx context.Context, requestorID, targetID string, patch UserPatch) (*model.User, bool, error) {
	if requestorID == "" || requestorID != targetID {
		return nil, false, apperr.ErrAuthMismatch
	}

	user, err := s.FindByID(ctx, targetID)
	if err != nil {
		return nil, false, err
	}

	// Only the columns the patch touches are written, so a verification or an
	// OAuth link that lands in between isn't reverted
	updates := map[string]any{}

	var emailChanged bool

	if patch.Email != nil && *patch.Email != user.Email {
		if err := validators.EmailValidator(*patch.Email); err != nil {
			return nil, false, apperr.Validation(err)
		}

		updates["email"] = *patch.Email
		updates["email_verified"] = false
		emailChanged = true
	}

	if patch.Password != nil {
		hash, err := s.hashPassword(*patch.Password)
		if err != nil {
			return nil, false, err
		}

		updates["password_hash"] = hash
	}

	if len(updates) == 0 {
		return user, false, nil
	}

	updates["updated_at"] = time.Now()

	err = s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", user.ID).
		Updates(updates).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, false, apperr.ErrDuplicateEmail
		}

		return nil, false, err
	}

	user, err = s.FindByID(ctx, user.ID)
	if err != nil {
		return nil, false, err
	}

	return user, emailChanged, nil
}

// Delete removes the target user with everything they own and returns the
// record as it was. Only the user themselves may do that.
func (s *UserStore) Delete(ctx context.Context, requestorID, targetID string) (*model.User, error) {
	if requestorID == "" || requestorID != targetID {
		return nil, apperr.ErrAuthMismatch
	}

	user, err := s.FindByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&model.SingleUseToken{}).Error; err != nil {
			return err
		}

		if err := tx.Where("user_id = ?", user.ID).Delete(&model.OAuthIdentity{}).Error; err != nil {
			return err
		}

		if err := tx.Where("user_id = ?", user.ID).Delete(&model.ResendRequest{}).Error; err != nil {
			return err
		}

		r := tx.Where("id = ?", user.ID).Delete(&model.User{})
		if r.Error != nil {
			return r.Error
		}

		if r.RowsAffected == 0 {
			return apperr.New(apperr.KindNotFound, "User not found")
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// Remove deletes a user without an ownership check. It exists to undo a signup
// that could not be completed.
func (s *UserStore) Remove(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&model.SingleUseToken{}).Error; err != nil {
			return err
		}

		return tx.Where("id = ?", id).Delete(&model.User{}).Error
	})
}

// SetEmailVerified flags the user's email address as verified
func (s *UserStore) SetEmailVerified(ctx context.Context, id string) (*model.User, error) {
	r := s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"email_verified": true,
			"updated_at":     time.Now(),
		})
	if r.Error != nil {
		return nil, r.Error
	}

	if r.RowsAffected == 0 {
		return nil, apperr.New(apperr.KindNotFound, "User not found")
	}

	return s.FindByID(ctx, id)
}

// LinkIdentity attaches a provider profile to the user. Linking the profile
// that is already attached is a no-op. A different profile for the same
// provider, or a profile owned by another user, is a conflict.
func (s *UserStore) LinkIdentity(ctx context.Context, userID, provider, profileID string) (*model.User, error) {
	user, err := s.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if existing, ok := user.Identity(provider); ok {
		if existing.ProfileID != profileID {
			return nil, apperr.ErrConflictingOAuthLink
		}

		return user, nil
	}

	identity := model.OAuthIdentity{
		UserID:    user.ID,
		Provider:  provider,
		ProfileID: profileID,
	}

	err = s.db.WithContext(ctx).Create(&identity).Error
	if err == nil {
		user.OAuthIdentities = append(user.OAuthIdentities, identity)
		return user, nil
	}

	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, err
	}

	// Lost a race against another link for this user, or the profile belongs to
	// somebody else. Look again to find out which.
	user, err = s.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if existing, ok := user.Identity(provider); ok && existing.ProfileID == profileID {
		return user, nil
	}

	if _, ok := user.Identity(provider); ok {
		return nil, apperr.ErrConflictingOAuthLink
	}

	return nil, apperr.New(apperr.KindConflictingOAuthLink, "This profile is already connected to a different account")
}

// CancelResend forgets the user's last resend so a failed one doesn't hold
// them in the cooldown
func (s *UserStore) CancelResend(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.ResendRequest{}).
		Error
}

// StartResend records a verification email resend for the user unless the
// previous one is still cooling down
func (s *UserStore) StartResend(ctx context.Context, userID string, cooldown time.Duration) error {
	now := time.Now().UTC()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var req model.ResendRequest

		r := tx.Where("user_id = ?", userID).Limit(1).Find(&req)
		if r.Error != nil {
			return r.Error
		}

		if r.RowsAffected > 0 && req.Cooldown.After(now) {
			return apperr.ErrCooldown
		}

		req.UserID = userID
		req.LastResend = now
		req.Cooldown = now.Add(cooldown)

		return tx.Save(&req).Error
	})
}
