package models

import (
	"time"

	"github.com/google/uuid"
)

// WaitlistEntrant is one signup row. Email is the natural key: joining twice
// with the same email must return the existing row, never insert a second.
type WaitlistEntrant struct {
	ID              uuid.UUID `json:"id" db:"id"`
	Email           string    `json:"email" db:"email"`
	ReferralCode    string    `json:"referral_code" db:"referral_code"`
	ReferredBy      *string   `json:"referred_by" db:"referred_by"`
	Points          int       `json:"points" db:"points"`
	ReferralCount   int       `json:"referral_count" db:"referral_count"`
	Position        int       `json:"position" db:"position"`
	CommunityJoined bool      `json:"community_joined" db:"community_joined"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// Waitlist point amounts
const (
	WaitlistSignupPoints    = 100
	WaitlistReferralPoints  = 50
	WaitlistCommunityPoints = 25
)
