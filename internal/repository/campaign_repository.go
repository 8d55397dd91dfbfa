package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/lib/pq"

	appErrors "github.com/outboundhq/outreach-backend/internal/errors"
	"github.com/outboundhq/outreach-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	GetByID(ctx context.Context, id int) (*model.Campaign, error)
	GetByExternalID(ctx context.Context, externalID string) (*model.Campaign, error)
	List(ctx context.Context, offset, limit int, status string) ([]*model.Campaign, int, error)
	UpdateStatus(ctx context.Context, id int, status string) error
	CreateWithSchedule(ctx context.Context, c *model.Campaign, tps []model.Touchpoint, leadIDs, contactIDs []int) error
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, external_id, organization_id, name, sequence_id, start_date, end_date, status, created_at, updated_at`

func scanCampaign(row interface{ Scan(...any) error }) (*model.Campaign, error) {
	var c model.Campaign
	err := row.Scan(&c.ID, &c.ExternalID, &c.OrganizationID, &c.Name, &c.SequenceID,
		&c.StartDate, &c.EndDate, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CampaignRepository) GetByID(ctx context.Context, id int) (*model.Campaign, error) {
	c, err := scanCampaign(r.DB.QueryRowContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, appErrors.NewNotFound("campaign", strconv.Itoa(id))
	}
	return c, err
}

func (r *CampaignRepository) GetByExternalID(ctx context.Context, externalID string) (*model.Campaign, error) {
	c, err := scanCampaign(r.DB.QueryRowContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE external_id = $1`, externalID))
	if err == sql.ErrNoRows {
		return nil, appErrors.NewNotFound("campaign", externalID)
	}
	return c, err
}

func (r *CampaignRepository) List(ctx context.Context, offset, limit int, status string) ([]*model.Campaign, int, error) {
	campaigns := []*model.Campaign{}
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE 1=1`
	args := []any{}
	argPos := 1

	if status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	countQuery := `SELECT COUNT(*) FROM campaigns WHERE 1=1`
	countArgs := []any{}
	if status != "" {
		countQuery += " AND status=$1"
		countArgs = append(countArgs, status)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

func (r *CampaignRepository) UpdateStatus(ctx context.Context, id int, status string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE campaigns SET status=$1, updated_at=$2 WHERE id=$3`, status, time.Now(), id)
	return err
}

// CreateWithSchedule persists the campaign row, its generated touchpoints
// and the entity reassignment as one transaction. Either all three land or
// none do; a rollback that itself fails is surfaced as InconsistentStateError
// so the caller knows the halves may have split.
func (r *CampaignRepository) CreateWithSchedule(ctx context.Context, c *model.Campaign, tps []model.Touchpoint, leadIDs, contactIDs []int) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	fail := func(op string, cause error) error {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return &appErrors.InconsistentStateError{Op: op, Err: fmt.Errorf("%v (rollback failed: %v)", cause, rbErr)}
		}
		return cause
	}

	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.CampaignStatusActive
	}
	err = tx.QueryRowContext(ctx, `
        INSERT INTO campaigns (external_id, organization_id, name, sequence_id, start_date, end_date, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id
    `, c.ExternalID, c.OrganizationID, c.Name, c.SequenceID, c.StartDate, c.EndDate, c.Status, c.CreatedAt).Scan(&c.ID)
	if err != nil {
		return fail("create campaign", err)
	}

	for i := range tps {
		tps[i].CampaignID = &c.ID
	}
	if len(tps) > 0 {
		if err := insertTouchpoints(ctx, tx, tps); err != nil {
			return fail("persist schedule", err)
		}
	}

	if err := reassignTargets(ctx, tx, "leads", c.ID, leadIDs); err != nil {
		return fail("reassign leads", err)
	}
	if err := reassignTargets(ctx, tx, "org_contacts", c.ID, contactIDs); err != nil {
		return fail("reassign contacts", err)
	}

	if err := tx.Commit(); err != nil {
		return fail("commit campaign unit", err)
	}
	return nil
}

// reassignTargets moves the entities onto the campaign and advances anyone
// still at "new" to "contacted". A count mismatch means a referenced entity
// does not exist, which rejects the whole unit.
func reassignTargets(ctx context.Context, ex execer, table string, campaignID int, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	res, err := ex.ExecContext(ctx, `
        UPDATE `+table+`
        SET campaign_id = $1,
            status = CASE WHEN status = 'new' THEN 'contacted' ELSE status END
        WHERE id = ANY($2)
    `, campaignID, pq.Array(ids))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if int(n) != len(ids) {
		return appErrors.NewNotFound(table, fmt.Sprintf("%d of %d ids", len(ids)-int(n), len(ids)))
	}
	return nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
