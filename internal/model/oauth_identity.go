package model

import (
	"slices"
	"time"
)

const (
	ProviderDiscord = "discord"
	ProviderTwitch  = "twitch"
)

// Providers is the closed set of OAuth providers an account can be linked with
var Providers = []string{ProviderDiscord, ProviderTwitch}

func ValidProvider(name string) bool {
	return slices.Contains(Providers, name)
}

// OAuthIdentity is owned by a User. A user holds at most one per provider and a
// provider profile belongs to at most one user.
type OAuthIdentity struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID    string    `gorm:"size:16;not null;uniqueIndex:idx_user_provider" json:"-"`
	Provider  string    `gorm:"size:32;not null;uniqueIndex:idx_user_provider;uniqueIndex:idx_provider_profile" json:"providerName"`
	ProfileID string    `gorm:"size:255;not null;uniqueIndex:idx_provider_profile" json:"profileId"`
	CreatedAt time.Time `json:"createdAt"`
}
