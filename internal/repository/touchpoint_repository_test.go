package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/outboundhq/outreach-backend/internal/errors"
	"github.com/outboundhq/outreach-backend/internal/model"
)

func newTouchpointRepo(t *testing.T) (*TouchpointRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &TouchpointRepository{DB: db}, mock
}

func leadTouchpoint(id int) model.Touchpoint {
	campaignID := 1
	return model.Touchpoint{
		CampaignID:  &campaignID,
		Entity:      model.EntityRef{Kind: model.EntityLead, ID: id},
		Channel:     model.ChannelEmail,
		ScheduledAt: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestTouchpointCreate(t *testing.T) {
	repo, mock := newTouchpointRepo(t)

	mock.ExpectQuery("INSERT INTO touchpoints").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	tp := leadTouchpoint(1)
	require.NoError(t, repo.Create(context.Background(), &tp))
	assert.Equal(t, 42, tp.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTouchpointCreateRejectsUnknownChannel(t *testing.T) {
	repo, mock := newTouchpointRepo(t)

	tp := leadTouchpoint(1)
	tp.Channel = model.Channel("fax")
	err := repo.Create(context.Background(), &tp)

	var verr *appErrors.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.NoError(t, mock.ExpectationsWereMet(), "nothing reaches the database")
}

func TestBatchCreateIsOneStatement(t *testing.T) {
	repo, mock := newTouchpointRepo(t)

	mock.ExpectExec("INSERT INTO touchpoints").
		WillReturnResult(sqlmock.NewResult(0, 3))

	tps := []model.Touchpoint{leadTouchpoint(1), leadTouchpoint(2), leadTouchpoint(3)}
	require.NoError(t, repo.BatchCreate(context.Background(), tps))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchCreateRejectsWholeBatchBeforeWriting(t *testing.T) {
	repo, mock := newTouchpointRepo(t)

	bad := leadTouchpoint(2)
	bad.Entity = model.EntityRef{}
	tps := []model.Touchpoint{leadTouchpoint(1), bad}

	err := repo.BatchCreate(context.Background(), tps)
	var verr *appErrors.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.NoError(t, mock.ExpectationsWereMet(), "a malformed element rejects the batch before any insert")
}

func TestBatchCreateEmpty(t *testing.T) {
	repo, _ := newTouchpointRepo(t)

	var verr *appErrors.ValidationError
	assert.ErrorAs(t, repo.BatchCreate(context.Background(), nil), &verr)
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock := newTouchpointRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM touchpoints WHERE id").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 99)
	var nf *appErrors.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestCompleteIfAdvancesReportsRowsAffected(t *testing.T) {
	repo, mock := newTouchpointRepo(t)
	at := time.Date(2025, 7, 2, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE touchpoints").
		WithArgs("opened", at, "", 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	advanced, err := repo.CompleteIfAdvances(context.Background(), 5, model.OutcomeOpened, at, "")
	require.NoError(t, err)
	assert.True(t, advanced)

	// Guard did not match: the same call is a skip, not an error.
	mock.ExpectExec("UPDATE touchpoints").
		WithArgs("opened", at, "", 5).
		WillReturnResult(sqlmock.NewResult(0, 0))
	advanced, err = repo.CompleteIfAdvances(context.Background(), 5, model.OutcomeOpened, at, "")
	require.NoError(t, err)
	assert.False(t, advanced)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteIfAdvancesRejectsUnknownKind(t *testing.T) {
	repo, mock := newTouchpointRepo(t)

	_, err := repo.CompleteIfAdvances(context.Background(), 5, model.OutcomeKind("delivered"), time.Now(), "")
	var verr *appErrors.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountByEntity(t *testing.T) {
	repo, mock := newTouchpointRepo(t)

	mock.ExpectQuery("SELECT COUNT(.+) FROM touchpoints").
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"scheduled", "completed"}).AddRow(3, 2))

	scheduled, completed, err := repo.CountByEntity(context.Background(),
		model.EntityRef{Kind: model.EntityContact, ID: 7})
	require.NoError(t, err)
	assert.Equal(t, 3, scheduled)
	assert.Equal(t, 2, completed)
}

func TestFindEmailTouchpointNoMatch(t *testing.T) {
	repo, mock := newTouchpointRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM touchpoints t").
		WithArgs(1, "nobody@example.com").
		WillReturnError(sql.ErrNoRows)

	tp, err := repo.FindEmailTouchpoint(context.Background(), 1, "nobody@example.com")
	require.NoError(t, err, "an unmatched address is a skip, not an error")
	assert.Nil(t, tp)
}

func TestQueryStatusFilter(t *testing.T) {
	repo, mock := newTouchpointRepo(t)
	created := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "campaign_id", "lead_id", "contact_id", "channel",
		"scheduled_at", "completed_at", "outcome", "outcome_kind", "created_at", "created_by"}).
		AddRow(1, 1, 4, nil, "email", created, nil, "", nil, created, nil)
	mock.ExpectQuery("SELECT (.+) FROM touchpoints WHERE 1=1 AND campaign_id = (.+) AND completed_at IS NULL").
		WithArgs(1).
		WillReturnRows(rows)

	campaignID := 1
	got, err := repo.Query(context.Background(), TouchpointFilter{
		CampaignID: &campaignID,
		Status:     "scheduled",
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.EntityRef{Kind: model.EntityLead, ID: 4}, got[0].Entity)
	assert.True(t, got[0].Pending())
}

func TestCampaignSnapshotReadsOneTransaction(t *testing.T) {
	repo, mock := newTouchpointRepo(t)
	dayStart := time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT(.+) FROM touchpoints").
		WithArgs(1, dayStart, dayEnd).
		WillReturnRows(sqlmock.NewRows([]string{"emails", "calls"}).AddRow(12, 3))
	mock.ExpectQuery("SELECT COUNT(.+) entities").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"active", "won"}).AddRow(40, 5))
	mock.ExpectCommit()

	snap, err := repo.CampaignSnapshot(context.Background(), 1, dayStart, dayEnd)
	require.NoError(t, err)
	assert.Equal(t, &CampaignSnapshot{
		EmailsSentToday: 12,
		CallsMadeToday:  3,
		ActiveEntities:  40,
		Conversions:     5,
	}, snap)
	assert.NoError(t, mock.ExpectationsWereMet())
}
