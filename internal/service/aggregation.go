// internal/service/aggregation.go
package service

import (
	"context"
	"time"

	"github.com/outboundhq/outreach-backend/internal/model"
	"github.com/outboundhq/outreach-backend/internal/repository"
)

// Aggregator computes rollups from the touchpoint set. Nothing here is
// materialized; every read recomputes from the store.
type Aggregator struct {
	TouchpointRepo repository.TouchpointRepositoryInterface
	CampaignRepo   repository.CampaignRepositoryInterface
}

// EntityCounts are the per-entity scheduled/completed totals. Their sum is
// always the entity's total touchpoint count.
type EntityCounts struct {
	Scheduled int `json:"scheduled"`
	Completed int `json:"completed"`
}

func (a *Aggregator) EntityCounts(ctx context.Context, ref model.EntityRef) (*EntityCounts, error) {
	scheduled, completed, err := a.TouchpointRepo.CountByEntity(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &EntityCounts{Scheduled: scheduled, Completed: completed}, nil
}

// DayCount is one histogram bucket.
type DayCount struct {
	Day   string `json:"day"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// Histogram buckets touchpoints by calendar day for the given range. A
// completed touchpoint counts on its completion day; a pending one counts on
// its scheduled day even when that day is already in the past — overdue work
// stays visible where it was due.
func (a *Aggregator) Histogram(ctx context.Context, from, to time.Time, campaignID *int) ([]DayCount, error) {
	touchpoints, err := a.TouchpointRepo.Query(ctx, repository.TouchpointFilter{
		DateFrom:   &from,
		DateTo:     &to,
		CampaignID: campaignID,
	})
	if err != nil {
		return nil, err
	}

	buckets := map[string]int{}
	for i := range touchpoints {
		day := touchpoints[i].EffectiveDay().Format("2006-01-02")
		buckets[day]++
	}

	// Emit every day in the range, zeros included, so the calendar heatmap
	// renders without client-side gap filling.
	counts := []DayCount{}
	for day := truncateDay(from); !day.After(truncateDay(to)); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")
		counts = append(counts, DayCount{Day: key, Count: buckets[key]})
	}
	return counts, nil
}

// CampaignRollups reads the four dashboard numbers from one store snapshot.
// "Today" is the midnight-to-midnight day around now, in now's location.
func (a *Aggregator) CampaignRollups(ctx context.Context, campaignID int, now time.Time) (*repository.CampaignSnapshot, error) {
	dayStart := truncateDay(now)
	dayEnd := dayStart.AddDate(0, 0, 1)
	return a.TouchpointRepo.CampaignSnapshot(ctx, campaignID, dayStart, dayEnd)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
