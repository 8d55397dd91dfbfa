package service_test

import (
	"context"
	"sync"
	"time"

	appErrors "github.com/outboundhq/outreach-backend/internal/errors"
	"github.com/outboundhq/outreach-backend/internal/model"
	"github.com/outboundhq/outreach-backend/internal/repository"
)

func appNotFound(resource string) error {
	return appErrors.NewNotFound(resource, "0")
}

// fakeTouchpointStore is an in-memory TouchpointStore that mirrors the
// repository's compare-and-set semantics, so reconciler tests exercise the
// real precedence behavior.
type fakeTouchpointStore struct {
	mu     sync.Mutex
	nextID int
	byID   map[int]*model.Touchpoint
	emails map[model.EntityRef]string
	// failComplete forces a write error for specific touchpoints.
	failComplete map[int]error
}

func newFakeTouchpointStore() *fakeTouchpointStore {
	return &fakeTouchpointStore{
		byID:         map[int]*model.Touchpoint{},
		emails:       map[model.EntityRef]string{},
		failComplete: map[int]error{},
	}
}

func (f *fakeTouchpointStore) add(tp model.Touchpoint, email string) *model.Touchpoint {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	tp.ID = f.nextID
	f.byID[tp.ID] = &tp
	if email != "" {
		f.emails[tp.Entity] = email
	}
	return &tp
}

func (f *fakeTouchpointStore) Create(ctx context.Context, tp *model.Touchpoint) error {
	created := f.add(*tp, "")
	*tp = *created
	return nil
}

func (f *fakeTouchpointStore) BatchCreate(ctx context.Context, tps []model.Touchpoint) error {
	for i := range tps {
		f.add(tps[i], "")
	}
	return nil
}

func (f *fakeTouchpointStore) GetByID(ctx context.Context, id int) (*model.Touchpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tp := *f.byID[id]
	return &tp, nil
}

func (f *fakeTouchpointStore) Query(ctx context.Context, filter repository.TouchpointFilter) ([]model.Touchpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Touchpoint{}
	for id := 1; id <= f.nextID; id++ {
		tp, ok := f.byID[id]
		if !ok {
			continue
		}
		if filter.CampaignID != nil && (tp.CampaignID == nil || *tp.CampaignID != *filter.CampaignID) {
			continue
		}
		if filter.Entity != nil && tp.Entity != *filter.Entity {
			continue
		}
		if filter.Channel != "" && tp.Channel != filter.Channel {
			continue
		}
		day := tp.EffectiveDay()
		if filter.DateFrom != nil && day.Before(truncate(*filter.DateFrom)) {
			continue
		}
		if filter.DateTo != nil && day.After(truncate(*filter.DateTo)) {
			continue
		}
		switch filter.Status {
		case "scheduled":
			if tp.CompletedAt != nil {
				continue
			}
		case "completed":
			if tp.CompletedAt == nil {
				continue
			}
		}
		out = append(out, *tp)
	}
	return out, nil
}

func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func (f *fakeTouchpointStore) ListByEntity(ctx context.Context, ref model.EntityRef) ([]model.Touchpoint, error) {
	return f.Query(ctx, repository.TouchpointFilter{Entity: &ref})
}

func (f *fakeTouchpointStore) CountByEntity(ctx context.Context, ref model.EntityRef) (int, int, error) {
	all, _ := f.ListByEntity(ctx, ref)
	scheduled, completed := 0, 0
	for i := range all {
		if all[i].CompletedAt == nil {
			scheduled++
		} else {
			completed++
		}
	}
	return scheduled, completed, nil
}

func (f *fakeTouchpointStore) FindEmailTouchpoint(ctx context.Context, campaignID int, email string) (*model.Touchpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id := 1; id <= f.nextID; id++ {
		tp, ok := f.byID[id]
		if !ok || tp.Channel != model.ChannelEmail {
			continue
		}
		if tp.CampaignID == nil || *tp.CampaignID != campaignID {
			continue
		}
		if f.emails[tp.Entity] == email {
			copy := *tp
			return &copy, nil
		}
	}
	return nil, nil
}

func (f *fakeTouchpointStore) CompleteIfAdvances(ctx context.Context, id int, kind model.OutcomeKind, completedAt time.Time, outcome string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failComplete[id]; err != nil {
		return false, err
	}
	tp, ok := f.byID[id]
	if !ok {
		return false, nil
	}
	if !model.Advances(tp.OutcomeKind, kind) {
		return false, nil
	}
	k := kind
	at := completedAt
	tp.OutcomeKind = &k
	tp.CompletedAt = &at
	tp.Outcome = outcome
	return true, nil
}

func (f *fakeTouchpointStore) CampaignSnapshot(ctx context.Context, campaignID int, dayStart, dayEnd time.Time) (*repository.CampaignSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := &repository.CampaignSnapshot{}
	for _, tp := range f.byID {
		if tp.CampaignID == nil || *tp.CampaignID != campaignID || tp.CompletedAt == nil {
			continue
		}
		if tp.CompletedAt.Before(dayStart) || !tp.CompletedAt.Before(dayEnd) {
			continue
		}
		switch tp.Channel {
		case model.ChannelEmail:
			snap.EmailsSentToday++
		case model.ChannelCall:
			snap.CallsMadeToday++
		}
	}
	return snap, nil
}

var _ repository.TouchpointRepositoryInterface = (*fakeTouchpointStore)(nil)

// fakeTargetStore records last-contacted updates with the only-if-newer rule.
type fakeTargetStore struct {
	mu            sync.Mutex
	leads         map[int]*model.Lead
	contacts      map[int]*model.OrgContact
	policy        *model.OrgPolicy
	lastContacted map[model.EntityRef]time.Time
}

func newFakeTargetStore() *fakeTargetStore {
	return &fakeTargetStore{
		leads:         map[int]*model.Lead{},
		contacts:      map[int]*model.OrgContact{},
		lastContacted: map[model.EntityRef]time.Time{},
	}
}

func (f *fakeTargetStore) GetLead(ctx context.Context, id int) (*model.Lead, error) {
	if l, ok := f.leads[id]; ok {
		return l, nil
	}
	return nil, appNotFound("lead")
}

func (f *fakeTargetStore) GetContact(ctx context.Context, id int) (*model.OrgContact, error) {
	if c, ok := f.contacts[id]; ok {
		return c, nil
	}
	return nil, appNotFound("contact")
}

func (f *fakeTargetStore) GetPolicy(ctx context.Context, orgID int) (*model.OrgPolicy, error) {
	if f.policy != nil {
		return f.policy, nil
	}
	return &model.OrgPolicy{OrganizationID: orgID, EntityKind: model.EntityLead}, nil
}

func (f *fakeTargetStore) TouchLastContacted(ctx context.Context, ref model.EntityRef, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if current, ok := f.lastContacted[ref]; !ok || current.Before(at) {
		f.lastContacted[ref] = at
	}
	return nil
}

var _ repository.TargetRepositoryInterface = (*fakeTargetStore)(nil)

// mockCampaignRepo is a function-field stub for orchestrator tests.
type mockCampaignRepo struct {
	campaign           *model.Campaign
	createWithSchedule func(c *model.Campaign, tps []model.Touchpoint, leadIDs, contactIDs []int) error
	updateStatus       func(id int, status string) error
}

func (m *mockCampaignRepo) GetByID(ctx context.Context, id int) (*model.Campaign, error) {
	if m.campaign == nil {
		return nil, appNotFound("campaign")
	}
	return m.campaign, nil
}

func (m *mockCampaignRepo) GetByExternalID(ctx context.Context, externalID string) (*model.Campaign, error) {
	if m.campaign == nil || m.campaign.ExternalID != externalID {
		return nil, appNotFound("campaign")
	}
	return m.campaign, nil
}

func (m *mockCampaignRepo) List(ctx context.Context, offset, limit int, status string) ([]*model.Campaign, int, error) {
	if m.campaign == nil {
		return []*model.Campaign{}, 0, nil
	}
	return []*model.Campaign{m.campaign}, 1, nil
}

func (m *mockCampaignRepo) UpdateStatus(ctx context.Context, id int, status string) error {
	if m.updateStatus != nil {
		return m.updateStatus(id, status)
	}
	return nil
}

func (m *mockCampaignRepo) CreateWithSchedule(ctx context.Context, c *model.Campaign, tps []model.Touchpoint, leadIDs, contactIDs []int) error {
	if m.createWithSchedule != nil {
		return m.createWithSchedule(c, tps, leadIDs, contactIDs)
	}
	c.ID = 1
	return nil
}

var _ repository.CampaignRepositoryInterface = (*mockCampaignRepo)(nil)

// mockSequenceRepo serves one sequence.
type mockSequenceRepo struct {
	sequence *model.SequenceDefinition
}

func (m *mockSequenceRepo) GetByID(ctx context.Context, id int) (*model.SequenceDefinition, error) {
	if m.sequence == nil || m.sequence.ID != id {
		return nil, appNotFound("sequence")
	}
	return m.sequence, nil
}

func (m *mockSequenceRepo) ListByOrganization(ctx context.Context, orgID int) ([]model.SequenceDefinition, error) {
	if m.sequence == nil {
		return nil, nil
	}
	return []model.SequenceDefinition{*m.sequence}, nil
}

var _ repository.SequenceRepositoryInterface = (*mockSequenceRepo)(nil)

// mockPlatform records forwarded targets and can be told to fail.
type mockPlatform struct {
	err      error
	calls    int
	lastID   string
	lastList []string
}

func (m *mockPlatform) RegisterTargets(ctx context.Context, campaignExternalID string, emails []string) error {
	m.calls++
	m.lastID = campaignExternalID
	m.lastList = emails
	return m.err
}
