package model

import "time"

type TokenType string

const (
	TokenEmailVerification TokenType = "email-verification"
	TokenTVLogin           TokenType = "tv-login"
)

// Valid reports whether t is one of the known token types
func (t TokenType) Valid() bool {
	return t == TokenEmailVerification || t == TokenTVLogin
}

// SingleUseToken is consumed by deleting it. A token that can't be found is
// either used, expired or never existed and callers can't tell which.
type SingleUseToken struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	UserID    string    `gorm:"size:16;not null;index"`
	Code      string    `gorm:"size:64;not null;uniqueIndex"`
	Type      TokenType `gorm:"size:32;not null;index"`
	CreatedAt time.Time
	ExpiresAt time.Time `gorm:"not null;index"`
}
