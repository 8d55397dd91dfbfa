// internal/service/campaign_service.go
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/outboundhq/outreach-backend/internal/errors"
	"github.com/outboundhq/outreach-backend/internal/model"
	"github.com/outboundhq/outreach-backend/internal/observe"
	"github.com/outboundhq/outreach-backend/internal/repository"
)

// PlatformClient is the outbound collaborator representing the external
// sending platform. Registration is idempotent, keyed by email+campaign, so
// callers may retry freely.
type PlatformClient interface {
	RegisterTargets(ctx context.Context, campaignExternalID string, emails []string) error
}

// CampaignService is the top-level campaign use case: bind a sequence to a
// set of targets, generate and persist the schedule, and move the targets
// into the campaign.
type CampaignService struct {
	CampaignRepo   repository.CampaignRepositoryInterface
	SequenceRepo   repository.SequenceRepositoryInterface
	TouchpointRepo repository.TouchpointRepositoryInterface
	TargetRepo     repository.TargetRepositoryInterface
	Platform       PlatformClient
	Agg            *Aggregator
	Obs            *observe.Hook
}

// CreateCampaignInput carries everything needed to create a campaign.
// SequenceID may be nil; the organization's default sequence is used when
// the policy names one.
type CreateCampaignInput struct {
	OrganizationID int
	Name           string
	SequenceID     *int
	StartDate      time.Time
	LeadIDs        []int
	ContactIDs     []int
}

// CreateCampaignResult pairs the campaign with non-fatal warnings (e.g. a
// failed best-effort platform forward).
type CreateCampaignResult struct {
	Campaign *model.Campaign `json:"campaign"`
	Warnings []string        `json:"warnings,omitempty"`
}

// CreateCampaign generates the schedule, persists it together with the
// entity reassignment as one unit, then forwards the targets to the sending
// platform as a best-effort side channel.
func (s *CampaignService) CreateCampaign(ctx context.Context, in CreateCampaignInput) (*CreateCampaignResult, error) {
	if len(in.LeadIDs) == 0 && len(in.ContactIDs) == 0 {
		return nil, ErrNoTargets
	}

	policy, err := s.TargetRepo.GetPolicy(ctx, in.OrganizationID)
	if err != nil {
		return nil, err
	}

	sequenceID := in.SequenceID
	if sequenceID == nil {
		sequenceID = policy.DefaultSequenceID
	}

	var seq *model.SequenceDefinition
	if sequenceID != nil {
		seq, err = s.SequenceRepo.GetByID(ctx, *sequenceID)
		if err != nil {
			return nil, err
		}
	}

	targets := make([]model.EntityRef, 0, len(in.LeadIDs)+len(in.ContactIDs))
	for _, id := range in.LeadIDs {
		targets = append(targets, model.EntityRef{Kind: model.EntityLead, ID: id})
	}
	for _, id := range in.ContactIDs {
		targets = append(targets, model.EntityRef{Kind: model.EntityContact, ID: id})
	}

	// End date is the maximum step offset, not the last step in array
	// order; a sequence with no steps gets the 30-day default.
	endDate := in.StartDate.AddDate(0, 0, model.DefaultCampaignDays)
	var touchpoints []model.Touchpoint
	if seq != nil && len(seq.Steps) > 0 {
		endDate = in.StartDate.AddDate(0, 0, seq.MaxDayOffset())
		touchpoints, err = GenerateSchedule(seq, in.StartDate, targets)
		if err != nil {
			return nil, err
		}
	}

	campaign := &model.Campaign{
		ExternalID:     uuid.New().String(),
		OrganizationID: in.OrganizationID,
		Name:           in.Name,
		SequenceID:     sequenceID,
		StartDate:      in.StartDate,
		EndDate:        endDate,
		Status:         model.CampaignStatusActive,
	}

	if err := s.CampaignRepo.CreateWithSchedule(ctx, campaign, touchpoints, in.LeadIDs, in.ContactIDs); err != nil {
		return nil, err
	}
	s.Obs.Processed("campaign created",
		zap.Int("campaign_id", campaign.ID),
		zap.Int("touchpoints", len(touchpoints)))

	result := &CreateCampaignResult{Campaign: campaign}
	if warning := s.forwardToPlatform(ctx, campaign, targets); warning != nil {
		result.Warnings = append(result.Warnings, warning.Error())
	}
	return result, nil
}

// forwardToPlatform registers the campaign's targets with the sending
// platform. Any failure is downgraded to a warning; campaign creation has
// already succeeded.
func (s *CampaignService) forwardToPlatform(ctx context.Context, campaign *model.Campaign, targets []model.EntityRef) error {
	if s.Platform == nil {
		return nil
	}

	emails := make([]string, 0, len(targets))
	for _, ref := range targets {
		email, err := s.targetEmail(ctx, ref)
		if err != nil {
			s.Obs.Failed("resolve target email", zap.Int("entity_id", ref.ID), zap.Error(err))
			return &appErrors.ExternalPlatformError{Op: "register targets", Err: err}
		}
		if email != "" {
			emails = append(emails, email)
		}
	}

	if err := s.Platform.RegisterTargets(ctx, campaign.ExternalID, emails); err != nil {
		s.Obs.Failed("platform forward", zap.String("campaign", campaign.ExternalID), zap.Error(err))
		return &appErrors.ExternalPlatformError{Op: "register targets", Err: err}
	}
	return nil
}

func (s *CampaignService) targetEmail(ctx context.Context, ref model.EntityRef) (string, error) {
	switch ref.Kind {
	case model.EntityContact:
		contact, err := s.TargetRepo.GetContact(ctx, ref.ID)
		if err != nil {
			return "", err
		}
		return contact.Email, nil
	default:
		lead, err := s.TargetRepo.GetLead(ctx, ref.ID)
		if err != nil {
			return "", err
		}
		return lead.Email, nil
	}
}

// CampaignDetails is a campaign together with its dashboard rollups.
type CampaignDetails struct {
	Campaign *model.Campaign              `json:"campaign"`
	Stats    *repository.CampaignSnapshot `json:"stats"`
}

// GetCampaignDetails returns the campaign with rollups computed for now's
// calendar day. A still-active campaign past its end date is marked complete
// here; there is no background timer doing it.
func (s *CampaignService) GetCampaignDetails(ctx context.Context, id int, now time.Time) (*CampaignDetails, error) {
	campaign, err := s.CampaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if campaign.Status == model.CampaignStatusActive && now.After(campaign.EndDate.AddDate(0, 0, 1)) {
		if err := s.CampaignRepo.UpdateStatus(ctx, campaign.ID, model.CampaignStatusComplete); err != nil {
			return nil, err
		}
		campaign.Status = model.CampaignStatusComplete
	}

	stats, err := s.Agg.CampaignRollups(ctx, campaign.ID, now)
	if err != nil {
		return nil, err
	}
	return &CampaignDetails{Campaign: campaign, Stats: stats}, nil
}

// ListCampaigns fetches campaigns with pagination.
func (s *CampaignService) ListCampaigns(ctx context.Context, page, pageSize int, status string) ([]model.Campaign, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.CampaignRepo.List(ctx, offset, pageSize, status)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}

	return campaigns, pagination, nil
}
