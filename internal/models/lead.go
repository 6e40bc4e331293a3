package models

import (
	"time"

	"github.com/google/uuid"
)

type JSONB map[string]interface{}

// LeadSearchFilter holds search and filter criteria for lead queries
type LeadSearchFilter struct {
	Query     string  `json:"query,omitempty"`      // Matches full name, company, email
	Status    *string `json:"status,omitempty"`     // Canonical status token
	Company   *string `json:"company,omitempty"`    // Exact company match
	SortBy    string  `json:"sort_by,omitempty"`    // Sort field: created_at, full_name, company
	SortOrder string  `json:"sort_order,omitempty"` // Sort order: asc, desc
	Limit     int     `json:"limit,omitempty"`
	Offset    int     `json:"offset,omitempty"`
}

// LeadSalesData carries the commercial fields editable independently of the
// descriptive attributes. Nil fields are left untouched.
type LeadSalesData struct {
	MRR              *float64   `json:"mrr,omitempty"`
	ARR              *float64   `json:"arr,omitempty"`
	PipelineStage    *string    `json:"pipeline_stage,omitempty"`
	CloseProbability *float64   `json:"close_probability,omitempty"` // percent, 0-100
	ExpectedCloseAt  *time.Time `json:"expected_close_at,omitempty"`
	LastActivityAt   *time.Time `json:"last_activity_at,omitempty"`
}

type Lead struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	ClientID         uuid.UUID  `json:"client_id" db:"client_id"`
	FullName         *string    `json:"full_name" db:"full_name"`
	JobTitle         *string    `json:"job_title" db:"job_title"`
	Company          *string    `json:"company" db:"company"`
	Location         *string    `json:"location" db:"location"`
	Email            *string    `json:"email" db:"email"`
	Phone            *string    `json:"phone" db:"phone"`
	LinkedinURL      *string    `json:"linkedin_url" db:"linkedin_url"`
	Status           string     `json:"status" db:"status"`
	MRR              *float64   `json:"mrr" db:"mrr"`
	ARR              *float64   `json:"arr" db:"arr"`
	PipelineStage    *string    `json:"pipeline_stage" db:"pipeline_stage"`
	CloseProbability *float64   `json:"close_probability" db:"close_probability"`
	ExpectedCloseAt  *time.Time `json:"expected_close_at" db:"expected_close_at"`
	LastActivityAt   *time.Time `json:"last_activity_at" db:"last_activity_at"`
	Source           *string    `json:"source" db:"source"`
	Enrichment       JSONB      `json:"enrichment" db:"enrichment"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// Lead source provenance values
const (
	LeadSourceManual = "manual"
	LeadSourceDemo   = "demo_generator"
	LeadSourceSearch = "external_search"
)
