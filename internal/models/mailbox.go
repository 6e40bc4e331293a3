package models

import (
	"time"

	"github.com/google/uuid"
)

// MailboxConnection stores the Gmail OAuth tokens for a client. One row per
// client; a new exchange overwrites the previous connection.
type MailboxConnection struct {
	ID           uuid.UUID `json:"id" db:"id"`
	ClientID     uuid.UUID `json:"client_id" db:"client_id"`
	EmailAddress string    `json:"email_address" db:"email_address"`
	AccessToken  string    `json:"-" db:"access_token"`
	RefreshToken string    `json:"-" db:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Expired reports whether the access token is past (or within a minute of)
// its expiry and needs a refresh before use.
func (m *MailboxConnection) Expired() bool {
	return time.Now().Add(time.Minute).After(m.ExpiresAt)
}
