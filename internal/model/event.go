// internal/model/event.go
package model

import "time"

// PlatformEvent is one status report from the external sending platform.
// Per-stage timestamps are optional; platforms routinely omit the ones for
// stages they did not observe directly.
type PlatformEvent struct {
	Email              string     `json:"email"`
	Status             OutcomeKind `json:"status"`
	CampaignExternalID string     `json:"campaign_external_id"`
	SentAt             *time.Time `json:"sent_at,omitempty"`
	OpenedAt           *time.Time `json:"opened_at,omitempty"`
	ClickedAt          *time.Time `json:"clicked_at,omitempty"`
	RepliedAt          *time.Time `json:"replied_at,omitempty"`
	BouncedAt          *time.Time `json:"bounced_at,omitempty"`
	UnsubscribedAt     *time.Time `json:"unsubscribed_at,omitempty"`
}

func (e *PlatformEvent) stageTime(k OutcomeKind) *time.Time {
	switch k {
	case OutcomeSent:
		return e.SentAt
	case OutcomeOpened:
		return e.OpenedAt
	case OutcomeClicked:
		return e.ClickedAt
	case OutcomeReplied:
		return e.RepliedAt
	case OutcomeBounced:
		return e.BouncedAt
	case OutcomeUnsubscribed:
		return e.UnsubscribedAt
	}
	return nil
}

// CompletionTime resolves the completedAt to record for this event. It takes
// the event's own timestamp for its status when present, then falls back
// through the timestamps of earlier funnel stages, then to now. Daily "sent
// today" rollups key off this value, so the chain order matters.
func (e *PlatformEvent) CompletionTime(now time.Time) time.Time {
	if ts := e.stageTime(e.Status); ts != nil {
		return *ts
	}
	if e.Status.Terminal() {
		// No stage chain for bounces/unsubscribes; the send time is the
		// only earlier signal available.
		if e.SentAt != nil {
			return *e.SentAt
		}
		return now
	}
	funnel := []OutcomeKind{OutcomeSent, OutcomeOpened, OutcomeClicked, OutcomeReplied}
	for i := e.Status.Rank() - 2; i >= 0; i-- {
		if ts := e.stageTime(funnel[i]); ts != nil {
			return *ts
		}
	}
	return now
}
