// internal/model/campaign.go
package model

import "time"

type Campaign struct {
	ID             int        `db:"id" json:"id"`
	ExternalID     string     `db:"external_id" json:"external_id"`
	OrganizationID int        `db:"organization_id" json:"organization_id"`
	Name           string     `db:"name" json:"name"`
	SequenceID     *int       `db:"sequence_id" json:"sequence_id,omitempty"`
	StartDate      time.Time  `db:"start_date" json:"start_date"`
	EndDate        time.Time  `db:"end_date" json:"end_date"`
	Status         string     `db:"status" json:"status"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// Campaign lifecycle statuses.
const (
	CampaignStatusActive   = "active"
	CampaignStatusComplete = "complete"
)

// DefaultCampaignDays is the end-date fallback when a campaign has a
// sequence with no steps (or no sequence at all).
const DefaultCampaignDays = 30
