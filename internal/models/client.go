package models

import (
	"time"

	"github.com/google/uuid"
)

// Client roles
const (
	RoleClient = "client"
	RoleAdmin  = "admin"
)

// Client is the authenticated business-user account that owns leads, chat
// sessions and the mailbox connection.
type Client struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"` // Never serialize in JSON
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	CompanyName  *string   `json:"company_name" db:"company_name"`
	Role         string    `json:"role" db:"role"`
	Status       string    `json:"status" db:"status"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// TokenResponse is returned by login/refresh.
type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	RefreshToken string    `json:"refresh_token"`
	ClientID     string    `json:"client_id"`
	IssuedAt     time.Time `json:"issued_at"`
}
