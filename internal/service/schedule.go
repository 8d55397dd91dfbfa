// internal/service/schedule.go
package service

import (
	"time"

	appErrors "github.com/outboundhq/outreach-backend/internal/errors"
	"github.com/outboundhq/outreach-backend/internal/model"
)

// Schedule generation errors. An empty schedule for a real campaign is a
// caller bug, so both cases are reported rather than silently skipped.
var (
	ErrEmptySequence = appErrors.NewValidation("sequence", "sequence has no steps")
	ErrNoTargets     = appErrors.NewValidation("targets", "target list is empty")
)

// GenerateSchedule expands a sequence into concrete touchpoints for every
// target: one touchpoint per (target, step), scheduled at
// startDate + step.DayOffset days. Offsets are absolute from campaign start,
// never cumulative, so step array order does not affect the dates. The
// function is pure; persisting the result is the caller's job.
func GenerateSchedule(seq *model.SequenceDefinition, startDate time.Time, targets []model.EntityRef) ([]model.Touchpoint, error) {
	if seq == nil || len(seq.Steps) == 0 {
		return nil, ErrEmptySequence
	}
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}

	touchpoints := make([]model.Touchpoint, 0, len(seq.Steps)*len(targets))
	for _, target := range targets {
		for _, step := range seq.Steps {
			touchpoints = append(touchpoints, model.Touchpoint{
				Entity:      target,
				Channel:     step.Channel,
				ScheduledAt: startDate.AddDate(0, 0, step.DayOffset),
			})
		}
	}
	return touchpoints, nil
}
