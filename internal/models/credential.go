package models

import (
	"time"

	"github.com/google/uuid"
)

// Credential holds the per-user OAuth tokens used for automated sending.
// Tokens are opaque strings; the access token is short-lived and refreshed
// from the refresh token when expired.
type Credential struct {
	UserID         string `json:"user_id"` // UUID
	Email          string `json:"email" binding:"required,email"`
	Name           string `json:"name,omitempty"`
	AccessToken    string `json:"-"` // EXCLUDED from JSON - bearer token
	RefreshToken   string `json:"-"` // EXCLUDED from JSON - long-lived grant
	TokenExpiresAt int64  `json:"token_expires_at"` // Unix timestamp, access token invalid at/after this
	CreatedAt      int64  `json:"created_at"`
	UpdatedAt      int64  `json:"updated_at"`
}

// NewCredential creates a credential keyed by email with a generated UUID
func NewCredential(email, name string) *Credential {
	now := time.Now().Unix()
	return &Credential{
		UserID:    uuid.New().String(),
		Email:     email,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TokenExpired reports whether the access token must be refreshed before use
func (c *Credential) TokenExpired(now time.Time) bool {
	return c.AccessToken == "" || now.Unix() >= c.TokenExpiresAt
}

// CanAutoSend reports whether this user can be processed by the scheduler.
// Without a refresh token only the interactive send path is available.
func (c *Credential) CanAutoSend() bool {
	return c.RefreshToken != ""
}
