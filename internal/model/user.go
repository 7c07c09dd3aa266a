// Package model defines database models
package model

import "time"

type User struct {
	ID            string    `gorm:"primaryKey;size:16" json:"id"`
	Email         string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash  string    `gorm:"not null" json:"-"`
	EmailVerified bool      `gorm:"default:false" json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`

	OAuthIdentities []OAuthIdentity  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"oauthIdentities"`
	SingleUseTokens []SingleUseToken `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	ResendRequest   *ResendRequest   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// Identity returns the linked identity for a provider, if there is one
func (u *User) Identity(provider string) (OAuthIdentity, bool) {
	for _, i := range u.OAuthIdentities {
		if i.Provider == provider {
			return i, true
		}
	}

	return OAuthIdentity{}, false
}
