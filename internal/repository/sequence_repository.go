package repository

import (
	"context"
	"database/sql"
	"strconv"

	appErrors "github.com/outboundhq/outreach-backend/internal/errors"
	"github.com/outboundhq/outreach-backend/internal/model"
)

// SequenceRepositoryInterface is the read-only sequence catalog. Sequence
// mutation belongs to the CRUD layer, not this service.
type SequenceRepositoryInterface interface {
	GetByID(ctx context.Context, id int) (*model.SequenceDefinition, error)
	ListByOrganization(ctx context.Context, orgID int) ([]model.SequenceDefinition, error)
}

type SequenceRepository struct {
	DB *sql.DB
}

// GetByID fetches a sequence with its steps ordered by step_order.
func (r *SequenceRepository) GetByID(ctx context.Context, id int) (*model.SequenceDefinition, error) {
	var seq model.SequenceDefinition
	err := r.DB.QueryRowContext(ctx, `
        SELECT id, organization_id, name
        FROM sequences
        WHERE id = $1
    `, id).Scan(&seq.ID, &seq.OrganizationID, &seq.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewNotFound("sequence", strconv.Itoa(id))
		}
		return nil, err
	}

	rows, err := r.DB.QueryContext(ctx, `
        SELECT id, sequence_id, step_order, channel, day_offset, COALESCE(name,''), template_id
        FROM sequence_steps
        WHERE sequence_id = $1
        ORDER BY step_order
    `, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var step model.SequenceStep
		if err := rows.Scan(&step.ID, &step.SequenceID, &step.StepOrder, &step.Channel, &step.DayOffset, &step.Name, &step.TemplateID); err != nil {
			return nil, err
		}
		seq.Steps = append(seq.Steps, step)
	}
	return &seq, rows.Err()
}

// ListByOrganization fetches sequence headers without steps.
func (r *SequenceRepository) ListByOrganization(ctx context.Context, orgID int) ([]model.SequenceDefinition, error) {
	rows, err := r.DB.QueryContext(ctx, `
        SELECT id, organization_id, name
        FROM sequences
        WHERE organization_id = $1
        ORDER BY id
    `, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sequences := []model.SequenceDefinition{}
	for rows.Next() {
		var seq model.SequenceDefinition
		if err := rows.Scan(&seq.ID, &seq.OrganizationID, &seq.Name); err != nil {
			return nil, err
		}
		sequences = append(sequences, seq)
	}
	return sequences, rows.Err()
}

var _ SequenceRepositoryInterface = (*SequenceRepository)(nil)
