package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/outboundhq/outreach-backend/internal/errors"
	"github.com/outboundhq/outreach-backend/internal/model"
)

func newCampaignRepo(t *testing.T) (*CampaignRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &CampaignRepository{DB: db}, mock
}

func testCampaign() *model.Campaign {
	return &model.Campaign{
		ExternalID:     "b2f9e4a0-5e3f-4c2d-9b1a-000000000001",
		OrganizationID: 1,
		Name:           "Q3 outbound",
		StartDate:      time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2025, 7, 11, 0, 0, 0, 0, time.UTC),
		Status:         model.CampaignStatusActive,
	}
}

func TestCreateWithScheduleCommitsOneUnit(t *testing.T) {
	repo, mock := newCampaignRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO campaigns").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec("INSERT INTO touchpoints").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE leads").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE org_contacts").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c := testCampaign()
	tps := []model.Touchpoint{
		{Entity: model.EntityRef{Kind: model.EntityLead, ID: 1}, Channel: model.ChannelEmail, ScheduledAt: c.StartDate},
		{Entity: model.EntityRef{Kind: model.EntityLead, ID: 2}, Channel: model.ChannelEmail, ScheduledAt: c.StartDate},
	}

	err := repo.CreateWithSchedule(context.Background(), c, tps, []int{1, 2}, []int{3})
	require.NoError(t, err)
	assert.Equal(t, 7, c.ID)
	for i := range tps {
		require.NotNil(t, tps[i].CampaignID)
		assert.Equal(t, 7, *tps[i].CampaignID)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithScheduleSkipsEmptySchedule(t *testing.T) {
	repo, mock := newCampaignRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO campaigns").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec("UPDATE leads").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.CreateWithSchedule(context.Background(), testCampaign(), nil, []int{1}, nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithScheduleRollsBackOnMissingEntity(t *testing.T) {
	repo, mock := newCampaignRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO campaigns").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	// Only one of the two referenced leads exists.
	mock.ExpectExec("UPDATE leads").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := repo.CreateWithSchedule(context.Background(), testCampaign(), nil, []int{1, 99}, nil)
	var nf *appErrors.NotFoundError
	assert.ErrorAs(t, err, &nf)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithScheduleFailedRollbackIsInconsistent(t *testing.T) {
	repo, mock := newCampaignRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO campaigns").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback().WillReturnError(errors.New("connection lost"))

	err := repo.CreateWithSchedule(context.Background(), testCampaign(), nil, []int{1}, nil)
	var inconsistent *appErrors.InconsistentStateError
	require.ErrorAs(t, err, &inconsistent)
	assert.Equal(t, "create campaign", inconsistent.Op)
}

func TestCampaignListWithStatusFilter(t *testing.T) {
	repo, mock := newCampaignRepo(t)
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "external_id", "organization_id", "name", "sequence_id",
		"start_date", "end_date", "status", "created_at", "updated_at"}).
		AddRow(7, "ext-7", 1, "Q3 outbound", nil, now, now.AddDate(0, 0, 10), "active", now, nil)
	mock.ExpectQuery("SELECT (.+) FROM campaigns WHERE 1=1 AND status").
		WithArgs("active", 20, 0).
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT(.+) FROM campaigns").
		WithArgs("active").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	campaigns, total, err := repo.List(context.Background(), 0, 20, "active")
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Q3 outbound", campaigns[0].Name)
}

func TestCampaignGetByExternalIDNotFound(t *testing.T) {
	repo, mock := newCampaignRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM campaigns WHERE external_id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByExternalID(context.Background(), "missing")
	var nf *appErrors.NotFoundError
	assert.ErrorAs(t, err, &nf)
}
