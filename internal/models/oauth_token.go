package models

import "time"

// OAuthToken is an access token issued to a device client. Client
// credentials tokens are never refreshed, so only the access side is kept.
type OAuthToken struct {
	ID          uint   `gorm:"primaryKey"`
	ClientID    string `gorm:"not null;index"`
	OwnerID     string // id of the user the device acts for
	AccessToken string `gorm:"uniqueIndex;not null"`
	Scopes      string
	IssuedAt    time.Time `gorm:"not null"`
	ExpiresAt   time.Time `gorm:"not null;index"`
}

func (OAuthToken) TableName() string {
	return "oauth_tokens"
}

// Expired reports whether the token can no longer be used at now
func (t OAuthToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
