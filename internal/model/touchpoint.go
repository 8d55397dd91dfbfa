// internal/model/touchpoint.go
package model

import "time"

// OutcomeKind is the closed completion status of a touchpoint, ordered by
// funnel precedence. Bounced and unsubscribed sit outside the send funnel
// and are terminal once set.
type OutcomeKind string

const (
	OutcomeSent         OutcomeKind = "sent"
	OutcomeOpened       OutcomeKind = "opened"
	OutcomeClicked      OutcomeKind = "clicked"
	OutcomeReplied      OutcomeKind = "replied"
	OutcomeBounced      OutcomeKind = "bounced"
	OutcomeUnsubscribed OutcomeKind = "unsubscribed"
)

// Rank returns the funnel precedence of k. Bounced/unsubscribed report 0:
// they do not compete on the funnel scale.
func (k OutcomeKind) Rank() int {
	switch k {
	case OutcomeSent:
		return 1
	case OutcomeOpened:
		return 2
	case OutcomeClicked:
		return 3
	case OutcomeReplied:
		return 4
	}
	return 0
}

// Terminal reports whether k stops all further transitions.
func (k OutcomeKind) Terminal() bool {
	return k == OutcomeBounced || k == OutcomeUnsubscribed
}

// Valid reports whether k is a known outcome kind.
func (k OutcomeKind) Valid() bool {
	return k.Rank() > 0 || k.Terminal()
}

// Advances decides whether incoming may replace current. Scheduled (nil
// current) accepts anything; a terminal current accepts nothing; otherwise
// bounced/unsubscribed always land, and funnel kinds must strictly outrank
// the current one. Replaying an equal or older event is a no-op.
func Advances(current *OutcomeKind, incoming OutcomeKind) bool {
	if current == nil {
		return true
	}
	if current.Terminal() {
		return false
	}
	if incoming.Terminal() {
		return true
	}
	return incoming.Rank() > current.Rank()
}

// Touchpoint is one scheduled or completed outreach action against one
// target entity. A touchpoint is pending iff CompletedAt is nil, and
// CompletedAt is non-nil iff OutcomeKind is non-nil.
type Touchpoint struct {
	ID          int          `db:"id" json:"id"`
	CampaignID  *int         `db:"campaign_id" json:"campaign_id,omitempty"`
	Entity      EntityRef    `json:"entity"`
	Channel     Channel      `db:"channel" json:"channel"`
	ScheduledAt time.Time    `db:"scheduled_at" json:"scheduled_at"`
	CompletedAt *time.Time   `db:"completed_at" json:"completed_at,omitempty"`
	Outcome     string       `db:"outcome" json:"outcome,omitempty"`
	OutcomeKind *OutcomeKind `db:"outcome_kind" json:"outcome_kind,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	CreatedBy   *int         `db:"created_by" json:"created_by,omitempty"`
}

// Pending reports whether the touchpoint is still scheduled.
func (t *Touchpoint) Pending() bool { return t.CompletedAt == nil }

// EffectiveDay returns the calendar day the touchpoint counts on for
// histograms: completion day when completed, scheduled day when pending
// (even if that day is in the past — overdue still counts there).
func (t *Touchpoint) EffectiveDay() time.Time {
	at := t.ScheduledAt
	if t.CompletedAt != nil {
		at = *t.CompletedAt
	}
	return time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, at.Location())
}
