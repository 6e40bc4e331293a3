package models

import (
	"time"

	"github.com/google/uuid"
)

// Email job statuses. Every send attempt produces exactly one job row ending
// in a terminal status; failed jobs keep the raw provider error payload.
const (
	EmailJobPending = "pending"
	EmailJobSent    = "sent"
	EmailJobFailed  = "failed"
)

type EmailJob struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	ClientID          uuid.UUID  `json:"client_id" db:"client_id"`
	LeadID            *uuid.UUID `json:"lead_id" db:"lead_id"`
	Recipient         string     `json:"recipient" db:"recipient"`
	Subject           string     `json:"subject" db:"subject"`
	Status            string     `json:"status" db:"status"`
	ProviderMessageID *string    `json:"provider_message_id" db:"provider_message_id"`
	ProviderError     *string    `json:"provider_error" db:"provider_error"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	CompletedAt       *time.Time `json:"completed_at" db:"completed_at"`
}
