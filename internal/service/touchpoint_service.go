// internal/service/touchpoint_service.go
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/outboundhq/outreach-backend/internal/errors"
	"github.com/outboundhq/outreach-backend/internal/model"
	"github.com/outboundhq/outreach-backend/internal/observe"
	"github.com/outboundhq/outreach-backend/internal/repository"
)

// TouchpointService covers the manual entry points: scheduling a single
// touchpoint and completing one by hand.
type TouchpointService struct {
	TouchpointRepo repository.TouchpointRepositoryInterface
	TargetRepo     repository.TargetRepositoryInterface
	Obs            *observe.Hook
}

// ScheduleTouchpointInput tags its entity with exactly one of LeadID or
// ContactID, matching the batch-creation contract.
type ScheduleTouchpointInput struct {
	LeadID      *int
	ContactID   *int
	CampaignID  *int
	Channel     model.Channel
	ScheduledAt time.Time
	CreatedBy   *int
}

// Schedule creates one touchpoint outside any sequence.
func (s *TouchpointService) Schedule(ctx context.Context, in ScheduleTouchpointInput) (*model.Touchpoint, error) {
	ref, err := model.NewEntityRef(in.LeadID, in.ContactID)
	if err != nil {
		return nil, err
	}

	tp := &model.Touchpoint{
		CampaignID:  in.CampaignID,
		Entity:      ref,
		Channel:     in.Channel,
		ScheduledAt: in.ScheduledAt,
		CreatedBy:   in.CreatedBy,
	}
	if err := s.TouchpointRepo.Create(ctx, tp); err != nil {
		return nil, err
	}
	s.Obs.Processed("touchpoint scheduled", zap.Int("touchpoint_id", tp.ID))
	return tp, nil
}

// Complete marks a touchpoint done with the given outcome, subject to the
// same precedence rule the reconciler enforces. Completing an already
// further-advanced touchpoint is a no-op, not an error.
func (s *TouchpointService) Complete(ctx context.Context, id int, kind model.OutcomeKind, outcome string, now time.Time) (*model.Touchpoint, error) {
	if !kind.Valid() {
		return nil, appErrors.NewValidation("outcome_kind", "unknown outcome kind")
	}

	tp, err := s.TouchpointRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	advanced, err := s.TouchpointRepo.CompleteIfAdvances(ctx, id, kind, now, outcome)
	if err != nil {
		return nil, err
	}
	if advanced {
		s.Obs.Processed("touchpoint completed manually", zap.Int("touchpoint_id", id))
		if err := s.TargetRepo.TouchLastContacted(ctx, tp.Entity, now); err != nil {
			return nil, err
		}
	} else {
		s.Obs.Skipped("manual completion was not forward progress", zap.Int("touchpoint_id", id))
	}

	return s.TouchpointRepo.GetByID(ctx, id)
}

// EntityTouchpoints lists an entity's touchpoints with its counts.
func (s *TouchpointService) EntityTouchpoints(ctx context.Context, ref model.EntityRef) ([]model.Touchpoint, *EntityCounts, error) {
	touchpoints, err := s.TouchpointRepo.ListByEntity(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	scheduled, completed, err := s.TouchpointRepo.CountByEntity(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	return touchpoints, &EntityCounts{Scheduled: scheduled, Completed: completed}, nil
}
