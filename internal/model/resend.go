package model

import "time"

// ResendRequest tracks when a user last asked for a new verification email
type ResendRequest struct {
	UserID     string `gorm:"primaryKey;size:16"`
	LastResend time.Time
	Cooldown   time.Time
}
