package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentflow/ats-offer-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var applicationRows = []string{
	"id", "candidate_id", "job_id", "status", "exclusivity_status", "current_stage_id",
	"offer_details", "applied_date", "last_update", "interview_date", "last_tracking_update",
}

func TestApplicationRepositoryGetByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	offer, err := json.Marshal(models.OfferDetails{
		OfferedAt: time.Now().Add(-48 * time.Hour),
		ExpiresAt: time.Now().Add(48 * time.Hour),
		Salary:    70000,
		Currency:  "EUR",
	})
	require.NoError(t, err)

	now := time.Now()
	mock.ExpectQuery(`SELECT (.+) FROM applications WHERE id = \$1`).
		WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows(applicationRows).
			AddRow("app-1", "cand-1", "job-1", "offer_pending", "none", nil, offer, now.Add(-30*24*time.Hour), now, nil, nil))
	mock.ExpectQuery(`SELECT (.+) FROM application_stages WHERE application_id = \$1`).
		WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "application_id", "name", "status", "position", "started_at", "completed_at"}).
			AddRow("stage-1", "app-1", "Entrevista técnica", "completed", 1, now.Add(-10*24*time.Hour), now.Add(-9*24*time.Hour)))

	app, err := repo.GetByID(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusOfferPending, app.Status)
	require.NotNil(t, app.OfferDetails)
	assert.Equal(t, 70000.0, app.OfferDetails.Salary)
	require.Len(t, app.Stages, 1)
	assert.Equal(t, "Entrevista técnica", app.Stages[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryGetByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM applications WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(applicationRows))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryGetByCandidate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT (.+) FROM applications WHERE candidate_id = \$1 ORDER BY applied_date DESC`).
		WithArgs("cand-1").
		WillReturnRows(sqlmock.NewRows(applicationRows).
			AddRow("app-2", "cand-1", "job-2", "offer_pending", "none", nil, nil, now, now, nil, nil).
			AddRow("app-1", "cand-1", "job-1", "screening", "none", nil, nil, now.Add(-time.Hour), now, nil, nil))

	apps, err := repo.GetByCandidate(context.Background(), "cand-1")
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, "app-2", apps[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryMarkExclusive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	acceptedAt := time.Now()
	mock.ExpectExec(`UPDATE applications`).
		WithArgs("app-1", "offer_accepted", "exclusive", sqlmock.AnyArg(), acceptedAt, "offer_pending").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkExclusive(context.Background(), MarkExclusiveParams{
		ApplicationID: "app-1",
		AcceptedAt:    acceptedAt,
		OfferDetails:  &models.OfferDetails{Salary: 70000, Currency: "EUR"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryMarkExclusiveLosesRace(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	// the row already left offer_pending, the conditional update matches nothing
	mock.ExpectExec(`UPDATE applications`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkExclusive(context.Background(), MarkExclusiveParams{ApplicationID: "app-1", AcceptedAt: time.Now()})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryWithdrawCompetitors(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	now := time.Now()
	mock.ExpectQuery(`UPDATE applications`).
		WithArgs("withdrawn", "withdrawn", now, "cand-1", "app-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("app-2").AddRow("app-3"))

	withdrawn, err := repo.WithdrawCompetitors(context.Background(), "cand-1", "app-1", now)
	require.NoError(t, err)
	assert.Equal(t, []string{"app-2", "app-3"}, withdrawn)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryWithdrawCompetitorsNone(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectQuery(`UPDATE applications`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	withdrawn, err := repo.WithdrawCompetitors(context.Background(), "cand-1", "app-1", time.Now())
	require.NoError(t, err)
	assert.Empty(t, withdrawn)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositorySetExclusivityStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectExec(`UPDATE applications SET exclusivity_status`).
		WithArgs("app-1", "exclusive", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetExclusivityStatus(context.Background(), "app-1", models.ExclusivityExclusive))

	mock.ExpectExec(`UPDATE applications SET exclusivity_status`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetExclusivityStatus(context.Background(), "missing", models.ExclusivityExclusive)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryTouchTrackingUpdate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	ts := time.Now()
	mock.ExpectExec(`UPDATE applications SET last_tracking_update`).
		WithArgs("app-1", ts).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.TouchTrackingUpdate(context.Background(), "app-1", ts))
	assert.NoError(t, mock.ExpectationsWereMet())
}
