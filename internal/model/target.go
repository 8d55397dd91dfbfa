// internal/model/target.go
package model

import (
	"time"

	appErrors "github.com/outboundhq/outreach-backend/internal/errors"
)

// EntityKind distinguishes the two target populations.
type EntityKind string

const (
	EntityLead    EntityKind = "lead"
	EntityContact EntityKind = "contact"
)

// EntityRef is a tagged reference to exactly one target entity. Constructing
// one through NewEntityRef makes "both set" and "neither set" unrepresentable.
type EntityRef struct {
	Kind EntityKind `json:"kind"`
	ID   int        `json:"id"`
}

// NewEntityRef builds an EntityRef from the two nullable foreign keys the
// storage layer carries. Exactly one of leadID/contactID must be non-nil.
func NewEntityRef(leadID, contactID *int) (EntityRef, error) {
	switch {
	case leadID != nil && contactID != nil:
		return EntityRef{}, appErrors.NewValidation("entity_ref", "both lead_id and contact_id set")
	case leadID == nil && contactID == nil:
		return EntityRef{}, appErrors.NewValidation("entity_ref", "neither lead_id nor contact_id set")
	case leadID != nil:
		return EntityRef{Kind: EntityLead, ID: *leadID}, nil
	default:
		return EntityRef{Kind: EntityContact, ID: *contactID}, nil
	}
}

// LeadID returns the lead foreign key for storage, nil for contacts.
func (r EntityRef) LeadID() *int {
	if r.Kind == EntityLead {
		id := r.ID
		return &id
	}
	return nil
}

// ContactID returns the contact foreign key for storage, nil for leads.
func (r EntityRef) ContactID() *int {
	if r.Kind == EntityContact {
		id := r.ID
		return &id
	}
	return nil
}

// Target entity pipeline statuses. Won and lost are terminal; entities in a
// terminal status are excluded from "active" rollups.
const (
	TargetStatusNew       = "new"
	TargetStatusContacted = "contacted"
	TargetStatusResponded = "responded"
	TargetStatusWon       = "won"
	TargetStatusLost      = "lost"
)

// TerminalTargetStatus reports whether status ends the pipeline.
func TerminalTargetStatus(status string) bool {
	return status == TargetStatusWon || status == TargetStatusLost
}

// Lead is an individual prospect with flat attributes.
type Lead struct {
	ID              int        `db:"id" json:"id"`
	OrganizationID  int        `db:"organization_id" json:"organization_id"`
	FirstName       string     `db:"first_name" json:"first_name"`
	LastName        string     `db:"last_name" json:"last_name"`
	Email           string     `db:"email" json:"email"`
	Phone           string     `db:"phone" json:"phone"`
	Company         string     `db:"company" json:"company"`
	Status          string     `db:"status" json:"status"`
	CampaignID      *int       `db:"campaign_id" json:"campaign_id,omitempty"`
	LastContactedAt *time.Time `db:"last_contacted_at" json:"last_contacted_at,omitempty"`
}

// OrgContact is a contact scoped to a parent organization account.
type OrgContact struct {
	ID              int        `db:"id" json:"id"`
	OrganizationID  int        `db:"organization_id" json:"organization_id"`
	AccountID       int        `db:"account_id" json:"account_id"`
	FirstName       string     `db:"first_name" json:"first_name"`
	LastName        string     `db:"last_name" json:"last_name"`
	Title           string     `db:"title" json:"title"`
	Email           string     `db:"email" json:"email"`
	Phone           string     `db:"phone" json:"phone"`
	Status          string     `db:"status" json:"status"`
	CampaignID      *int       `db:"campaign_id" json:"campaign_id,omitempty"`
	LastContactedAt *time.Time `db:"last_contacted_at" json:"last_contacted_at,omitempty"`
}

// OrgPolicy is resolved once per campaign instead of branching on
// organization names inside the core.
type OrgPolicy struct {
	OrganizationID    int        `db:"organization_id" json:"organization_id"`
	EntityKind        EntityKind `db:"entity_kind" json:"entity_kind"`
	DefaultSequenceID *int       `db:"default_sequence_id" json:"default_sequence_id,omitempty"`
}
