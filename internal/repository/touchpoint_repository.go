package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	appErrors "github.com/outboundhq/outreach-backend/internal/errors"
	"github.com/outboundhq/outreach-backend/internal/model"
)

// TouchpointFilter narrows touchpoint reads. Date filters apply to the
// effective day: completion day for completed touchpoints, scheduled day for
// pending ones.
type TouchpointFilter struct {
	Date       *time.Time
	DateFrom   *time.Time
	DateTo     *time.Time
	Channel    model.Channel
	CampaignID *int
	Entity     *model.EntityRef
	Status     string // "scheduled", "completed" or ""
}

type TouchpointRepositoryInterface interface {
	Create(ctx context.Context, tp *model.Touchpoint) error
	BatchCreate(ctx context.Context, tps []model.Touchpoint) error
	GetByID(ctx context.Context, id int) (*model.Touchpoint, error)
	Query(ctx context.Context, f TouchpointFilter) ([]model.Touchpoint, error)
	ListByEntity(ctx context.Context, ref model.EntityRef) ([]model.Touchpoint, error)
	CountByEntity(ctx context.Context, ref model.EntityRef) (scheduled, completed int, err error)
	FindEmailTouchpoint(ctx context.Context, campaignID int, email string) (*model.Touchpoint, error)
	CompleteIfAdvances(ctx context.Context, id int, kind model.OutcomeKind, completedAt time.Time, outcome string) (bool, error)
	CampaignSnapshot(ctx context.Context, campaignID int, dayStart, dayEnd time.Time) (*CampaignSnapshot, error)
}

type TouchpointRepository struct {
	DB *sql.DB
}

const touchpointColumns = `id, campaign_id, lead_id, contact_id, channel, scheduled_at, completed_at, COALESCE(outcome,''), outcome_kind, created_at, created_by`

func scanTouchpoint(row interface{ Scan(...any) error }) (*model.Touchpoint, error) {
	var (
		tp              model.Touchpoint
		leadID, contact *int
		kind            *string
	)
	err := row.Scan(&tp.ID, &tp.CampaignID, &leadID, &contact, &tp.Channel,
		&tp.ScheduledAt, &tp.CompletedAt, &tp.Outcome, &kind, &tp.CreatedAt, &tp.CreatedBy)
	if err != nil {
		return nil, err
	}
	ref, err := model.NewEntityRef(leadID, contact)
	if err != nil {
		return nil, err
	}
	tp.Entity = ref
	if kind != nil {
		k := model.OutcomeKind(*kind)
		tp.OutcomeKind = &k
	}
	return &tp, nil
}

func validateTouchpoint(tp *model.Touchpoint) error {
	if tp.Entity.Kind != model.EntityLead && tp.Entity.Kind != model.EntityContact {
		return appErrors.NewValidation("entity_ref", "touchpoint must reference exactly one of lead or contact")
	}
	if !tp.Channel.Valid() {
		return appErrors.NewValidation("channel", fmt.Sprintf("unknown channel %q", tp.Channel))
	}
	return nil
}

// Create inserts a single touchpoint (manual scheduling path).
func (r *TouchpointRepository) Create(ctx context.Context, tp *model.Touchpoint) error {
	if err := validateTouchpoint(tp); err != nil {
		return err
	}
	tp.CreatedAt = time.Now()
	return r.DB.QueryRowContext(ctx, `
        INSERT INTO touchpoints (campaign_id, lead_id, contact_id, channel, scheduled_at, created_at, created_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `, tp.CampaignID, tp.Entity.LeadID(), tp.Entity.ContactID(), tp.Channel,
		tp.ScheduledAt, tp.CreatedAt, tp.CreatedBy).Scan(&tp.ID)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// insertTouchpoints bulk-inserts tps in one statement. Shared with the
// campaign repository so schedule persistence can run inside its transaction.
// The whole batch is rejected before any write if an element is malformed.
func insertTouchpoints(ctx context.Context, ex execer, tps []model.Touchpoint) error {
	if len(tps) == 0 {
		return appErrors.NewValidation("touchpoints", "batch must not be empty")
	}
	for i := range tps {
		if err := validateTouchpoint(&tps[i]); err != nil {
			return err
		}
	}

	now := time.Now()
	var sb strings.Builder
	sb.WriteString(`INSERT INTO touchpoints (campaign_id, lead_id, contact_id, channel, scheduled_at, created_at, created_by) VALUES `)
	args := make([]any, 0, len(tps)*7)
	for i := range tps {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 7
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7)
		tps[i].CreatedAt = now
		args = append(args, tps[i].CampaignID, tps[i].Entity.LeadID(), tps[i].Entity.ContactID(),
			tps[i].Channel, tps[i].ScheduledAt, now, tps[i].CreatedBy)
	}

	_, err := ex.ExecContext(ctx, sb.String(), args...)
	return err
}

// BatchCreate persists a generated schedule as one bulk insert.
func (r *TouchpointRepository) BatchCreate(ctx context.Context, tps []model.Touchpoint) error {
	return insertTouchpoints(ctx, r.DB, tps)
}

func (r *TouchpointRepository) GetByID(ctx context.Context, id int) (*model.Touchpoint, error) {
	tp, err := scanTouchpoint(r.DB.QueryRowContext(ctx,
		`SELECT `+touchpointColumns+` FROM touchpoints WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, appErrors.NewNotFound("touchpoint", strconv.Itoa(id))
	}
	return tp, err
}

// Query returns touchpoints matching f, ordered by effective day.
func (r *TouchpointRepository) Query(ctx context.Context, f TouchpointFilter) ([]model.Touchpoint, error) {
	query := `SELECT ` + touchpointColumns + ` FROM touchpoints WHERE 1=1`
	args := []any{}
	argPos := 1

	add := func(clause string, value any) {
		query += fmt.Sprintf(clause, argPos)
		args = append(args, value)
		argPos++
	}

	if f.Date != nil {
		add(" AND COALESCE(completed_at, scheduled_at)::date = $%d::date", *f.Date)
	}
	if f.DateFrom != nil {
		add(" AND COALESCE(completed_at, scheduled_at)::date >= $%d::date", *f.DateFrom)
	}
	if f.DateTo != nil {
		add(" AND COALESCE(completed_at, scheduled_at)::date <= $%d::date", *f.DateTo)
	}
	if f.Channel != "" {
		add(" AND channel = $%d", string(f.Channel))
	}
	if f.CampaignID != nil {
		add(" AND campaign_id = $%d", *f.CampaignID)
	}
	if f.Entity != nil {
		switch f.Entity.Kind {
		case model.EntityLead:
			add(" AND lead_id = $%d", f.Entity.ID)
		case model.EntityContact:
			add(" AND contact_id = $%d", f.Entity.ID)
		}
	}
	switch f.Status {
	case "scheduled":
		query += " AND completed_at IS NULL"
	case "completed":
		query += " AND completed_at IS NOT NULL"
	}
	query += " ORDER BY COALESCE(completed_at, scheduled_at), id"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	touchpoints := []model.Touchpoint{}
	for rows.Next() {
		tp, err := scanTouchpoint(rows)
		if err != nil {
			return nil, err
		}
		touchpoints = append(touchpoints, *tp)
	}
	return touchpoints, rows.Err()
}

func (r *TouchpointRepository) ListByEntity(ctx context.Context, ref model.EntityRef) ([]model.Touchpoint, error) {
	return r.Query(ctx, TouchpointFilter{Entity: &ref})
}

func (r *TouchpointRepository) CountByEntity(ctx context.Context, ref model.EntityRef) (int, int, error) {
	column := "lead_id"
	if ref.Kind == model.EntityContact {
		column = "contact_id"
	}
	var scheduled, completed int
	err := r.DB.QueryRowContext(ctx, `
        SELECT COUNT(*) FILTER (WHERE completed_at IS NULL),
               COUNT(*) FILTER (WHERE completed_at IS NOT NULL)
        FROM touchpoints
        WHERE `+column+` = $1
    `, ref.ID).Scan(&scheduled, &completed)
	return scheduled, completed, err
}

// FindEmailTouchpoint matches an external event to the campaign's email
// touchpoint for the entity owning the given address. No match is not an
// error; platforms report addresses outside the current touchpoint set.
func (r *TouchpointRepository) FindEmailTouchpoint(ctx context.Context, campaignID int, email string) (*model.Touchpoint, error) {
	tp, err := scanTouchpoint(r.DB.QueryRowContext(ctx, `
        SELECT t.id, t.campaign_id, t.lead_id, t.contact_id, t.channel, t.scheduled_at,
               t.completed_at, COALESCE(t.outcome,''), t.outcome_kind, t.created_at, t.created_by
        FROM touchpoints t
        LEFT JOIN leads l ON l.id = t.lead_id
        LEFT JOIN org_contacts c ON c.id = t.contact_id
        WHERE t.campaign_id = $1
          AND t.channel = 'email'
          AND (l.email = $2 OR c.email = $2)
        ORDER BY t.scheduled_at, t.id
        LIMIT 1
    `, campaignID, email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return tp, err
}

const outcomeRankExpr = `CASE %s WHEN 'sent' THEN 1 WHEN 'opened' THEN 2 WHEN 'clicked' THEN 3 WHEN 'replied' THEN 4 ELSE 0 END`

// CompleteIfAdvances applies kind/completedAt only when it is forward
// progress under the precedence rule, as a compare-and-set on the stored
// outcome_kind. Concurrent reconcilers cannot regress a touchpoint because
// the guard and the write are one statement. Returns false when the update
// was a no-op.
func (r *TouchpointRepository) CompleteIfAdvances(ctx context.Context, id int, kind model.OutcomeKind, completedAt time.Time, outcome string) (bool, error) {
	if !kind.Valid() {
		return false, appErrors.NewValidation("outcome_kind", fmt.Sprintf("unknown outcome kind %q", kind))
	}
	currentRank := fmt.Sprintf(outcomeRankExpr, "outcome_kind")
	incomingRank := fmt.Sprintf(outcomeRankExpr, "$1")
	query := `
        UPDATE touchpoints
        SET outcome_kind = $1, completed_at = $2, outcome = $3
        WHERE id = $4
          AND (outcome_kind IS NULL OR (
                outcome_kind NOT IN ('bounced', 'unsubscribed')
                AND ($1 IN ('bounced', 'unsubscribed') OR ` + currentRank + ` < ` + incomingRank + `)
          ))
    `
	res, err := r.DB.ExecContext(ctx, query, string(kind), completedAt, outcome, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CampaignSnapshot holds the four dashboard rollups, read together.
type CampaignSnapshot struct {
	EmailsSentToday int `json:"emails_sent_today"`
	CallsMadeToday  int `json:"calls_made_today"`
	ActiveEntities  int `json:"active_entities"`
	Conversions     int `json:"conversions"`
}

// CampaignSnapshot computes the rollups inside one repeatable-read
// transaction so the four numbers come from the same snapshot. The
// [dayStart, dayEnd) window is the caller's local calendar day.
func (r *TouchpointRepository) CampaignSnapshot(ctx context.Context, campaignID int, dayStart, dayEnd time.Time) (*CampaignSnapshot, error) {
	tx, err := r.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var snap CampaignSnapshot
	err = tx.QueryRowContext(ctx, `
        SELECT COUNT(*) FILTER (WHERE channel = 'email' AND completed_at >= $2 AND completed_at < $3),
               COUNT(*) FILTER (WHERE channel = 'call' AND completed_at >= $2 AND completed_at < $3)
        FROM touchpoints
        WHERE campaign_id = $1
    `, campaignID, dayStart, dayEnd).Scan(&snap.EmailsSentToday, &snap.CallsMadeToday)
	if err != nil {
		return nil, err
	}

	err = tx.QueryRowContext(ctx, `
        SELECT COUNT(*) FILTER (WHERE status NOT IN ('won', 'lost')),
               COUNT(*) FILTER (WHERE status = 'won')
        FROM (
            SELECT status FROM leads WHERE campaign_id = $1
            UNION ALL
            SELECT status FROM org_contacts WHERE campaign_id = $1
        ) entities
    `, campaignID).Scan(&snap.ActiveEntities, &snap.Conversions)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &snap, nil
}

var _ TouchpointRepositoryInterface = (*TouchpointRepository)(nil)
