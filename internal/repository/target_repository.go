package repository

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	appErrors "github.com/outboundhq/outreach-backend/internal/errors"
	"github.com/outboundhq/outreach-backend/internal/model"
)

// TargetRepositoryInterface defines the target-entity reads and the
// last-contacted side effect the core needs.
type TargetRepositoryInterface interface {
	GetLead(ctx context.Context, id int) (*model.Lead, error)
	GetContact(ctx context.Context, id int) (*model.OrgContact, error)
	GetPolicy(ctx context.Context, orgID int) (*model.OrgPolicy, error)
	TouchLastContacted(ctx context.Context, ref model.EntityRef, at time.Time) error
}

type TargetRepository struct {
	DB *sql.DB
}

func (r *TargetRepository) GetLead(ctx context.Context, id int) (*model.Lead, error) {
	var l model.Lead
	err := r.DB.QueryRowContext(ctx, `
        SELECT id, organization_id, first_name, last_name, email, phone, company,
               status, campaign_id, last_contacted_at
        FROM leads
        WHERE id = $1
    `, id).Scan(&l.ID, &l.OrganizationID, &l.FirstName, &l.LastName, &l.Email,
		&l.Phone, &l.Company, &l.Status, &l.CampaignID, &l.LastContactedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewNotFound("lead", strconv.Itoa(id))
		}
		return nil, err
	}
	return &l, nil
}

func (r *TargetRepository) GetContact(ctx context.Context, id int) (*model.OrgContact, error) {
	var c model.OrgContact
	err := r.DB.QueryRowContext(ctx, `
        SELECT id, organization_id, account_id, first_name, last_name, title,
               email, phone, status, campaign_id, last_contacted_at
        FROM org_contacts
        WHERE id = $1
    `, id).Scan(&c.ID, &c.OrganizationID, &c.AccountID, &c.FirstName, &c.LastName,
		&c.Title, &c.Email, &c.Phone, &c.Status, &c.CampaignID, &c.LastContactedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewNotFound("contact", strconv.Itoa(id))
		}
		return nil, err
	}
	return &c, nil
}

// GetPolicy resolves the per-organization outreach policy. A missing row
// yields the default lead-based policy rather than an error.
func (r *TargetRepository) GetPolicy(ctx context.Context, orgID int) (*model.OrgPolicy, error) {
	var p model.OrgPolicy
	err := r.DB.QueryRowContext(ctx, `
        SELECT organization_id, entity_kind, default_sequence_id
        FROM org_policies
        WHERE organization_id = $1
    `, orgID).Scan(&p.OrganizationID, &p.EntityKind, &p.DefaultSequenceID)
	if err != nil {
		if err == sql.ErrNoRows {
			return &model.OrgPolicy{OrganizationID: orgID, EntityKind: model.EntityLead}, nil
		}
		return nil, err
	}
	return &p, nil
}

// TouchLastContacted advances the entity's last_contacted_at, but only when
// at is newer than the stored value. Out-of-order reconciliation must not
// move the timestamp backwards.
func (r *TargetRepository) TouchLastContacted(ctx context.Context, ref model.EntityRef, at time.Time) error {
	table := "leads"
	if ref.Kind == model.EntityContact {
		table = "org_contacts"
	}
	_, err := r.DB.ExecContext(ctx, `
        UPDATE `+table+`
        SET last_contacted_at = $1
        WHERE id = $2 AND (last_contacted_at IS NULL OR last_contacted_at < $1)
    `, at, ref.ID)
	return err
}

var _ TargetRepositoryInterface = (*TargetRepository)(nil)
