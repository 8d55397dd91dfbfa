// internal/service/reconciler.go
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/outboundhq/outreach-backend/internal/errors"
	"github.com/outboundhq/outreach-backend/internal/model"
	"github.com/outboundhq/outreach-backend/internal/observe"
	"github.com/outboundhq/outreach-backend/internal/repository"
)

// Reconciler merges external sending-platform status reports into local
// touchpoint state.
type Reconciler struct {
	CampaignRepo   repository.CampaignRepositoryInterface
	TouchpointRepo repository.TouchpointRepositoryInterface
	TargetRepo     repository.TargetRepositoryInterface
	Obs            *observe.Hook

	// Now is swappable for tests; zero value falls back to time.Now.
	Now func() time.Time
}

// SyncResult summarizes one reconciliation batch.
type SyncResult struct {
	Updated  int                     `json:"updated"`
	Skipped  int                     `json:"skipped"`
	Failures []*appErrors.EventError `json:"failures,omitempty"`
}

// PartialFailure returns a PartialSyncFailure when some events errored,
// nil otherwise. The batch itself still counts as a success.
func (r *SyncResult) PartialFailure() error {
	if len(r.Failures) == 0 {
		return nil
	}
	return &appErrors.PartialSyncFailure{Failures: r.Failures}
}

func (r *Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Reconcile applies a batch of platform events against the campaign
// identified by its external id. Events are reconciled independently: one
// failing write is recorded per-event and does not block the rest. Replaying
// the same or an older event is a no-op, so the whole batch is safe to
// retry.
func (r *Reconciler) Reconcile(ctx context.Context, campaignExternalID string, events []model.PlatformEvent) (*SyncResult, error) {
	campaign, err := r.CampaignRepo.GetByExternalID(ctx, campaignExternalID)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{}
	for i := range events {
		event := &events[i]
		applied, err := r.applyEvent(ctx, campaign, event)
		if err != nil {
			result.Failures = append(result.Failures, &appErrors.EventError{Email: event.Email, Err: err})
			r.Obs.Failed("event apply failed",
				zap.String("email", event.Email),
				zap.String("status", string(event.Status)),
				zap.Error(err))
			continue
		}
		if applied {
			result.Updated++
		} else {
			result.Skipped++
		}
	}
	return result, nil
}

// applyEvent reconciles a single event. It returns false without error for
// the deliberate no-ops: unmatched addresses and stale replays.
func (r *Reconciler) applyEvent(ctx context.Context, campaign *model.Campaign, event *model.PlatformEvent) (bool, error) {
	if !event.Status.Valid() {
		return false, appErrors.NewValidation("status", fmt.Sprintf("unknown status %q", event.Status))
	}

	tp, err := r.TouchpointRepo.FindEmailTouchpoint(ctx, campaign.ID, event.Email)
	if err != nil {
		return false, err
	}
	if tp == nil {
		// Platforms report addresses outside the current touchpoint set.
		r.Obs.Skipped("no matching touchpoint", zap.String("email", event.Email))
		return false, nil
	}

	if !model.Advances(tp.OutcomeKind, event.Status) {
		r.Obs.Skipped("stale or regressive event",
			zap.String("email", event.Email),
			zap.String("status", string(event.Status)))
		return false, nil
	}

	completedAt := event.CompletionTime(r.now())
	advanced, err := r.TouchpointRepo.CompleteIfAdvances(ctx, tp.ID, event.Status, completedAt, string(event.Status))
	if err != nil {
		return false, err
	}
	if !advanced {
		// Lost the compare-and-set to a concurrent update carrying a higher
		// rank; treat like a stale replay.
		r.Obs.Skipped("lost precedence race", zap.Int("touchpoint_id", tp.ID))
		return false, nil
	}

	r.Obs.Processed("touchpoint advanced",
		zap.Int("touchpoint_id", tp.ID),
		zap.String("outcome_kind", string(event.Status)))

	// Last-contacted moves only forward; the repository guards against
	// older completions overwriting a newer timestamp.
	if err := r.TargetRepo.TouchLastContacted(ctx, tp.Entity, completedAt); err != nil {
		return false, err
	}
	return true, nil
}
