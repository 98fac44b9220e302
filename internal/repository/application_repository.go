package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/talentflow/ats-offer-api/internal/models"
)

const applicationColumns = `id, candidate_id, job_id, status, exclusivity_status, current_stage_id,
       offer_details, applied_date, last_update, interview_date, last_tracking_update`

// ApplicationRepository persists application state. It is the sole source and
// sink of Application records for the acceptance transaction.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs the repository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// GetByID fetches one application. Stages are loaded alongside.
func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*models.Application, error) {
	query := fmt.Sprintf(`SELECT %s FROM applications WHERE id = $1`, applicationColumns)
	var app models.Application
	if err := r.db.GetContext(ctx, &app, query, id); err != nil {
		return nil, err
	}
	stages, err := r.getStages(ctx, id)
	if err != nil {
		return nil, err
	}
	app.Stages = stages
	return &app, nil
}

// GetByCandidate returns every application of a candidate, newest first.
func (r *ApplicationRepository) GetByCandidate(ctx context.Context, candidateID string) ([]models.Application, error) {
	query := fmt.Sprintf(`SELECT %s FROM applications WHERE candidate_id = $1 ORDER BY applied_date DESC`, applicationColumns)
	var apps []models.Application
	if err := r.db.SelectContext(ctx, &apps, query, candidateID); err != nil {
		return nil, fmt.Errorf("list applications for candidate %s: %w", candidateID, err)
	}
	return apps, nil
}

// MarkExclusiveParams groups the columns written by the mark-exclusive phase.
type MarkExclusiveParams struct {
	ApplicationID string
	AcceptedAt    time.Time
	OfferDetails  *models.OfferDetails
}

// MarkExclusive transitions the application to offer_accepted and flags it
// exclusive. The conditional WHERE makes the write atomic per application id:
// a concurrent acceptance that already moved the row off offer_pending leaves
// zero rows affected, reported as sql.ErrNoRows.
func (r *ApplicationRepository) MarkExclusive(ctx context.Context, params MarkExclusiveParams) error {
	const query = `UPDATE applications
	SET status = $2, exclusivity_status = $3, offer_details = $4, last_update = $5
	WHERE id = $1 AND status = $6`
	result, err := r.db.ExecContext(ctx, query,
		params.ApplicationID,
		models.StatusOfferAccepted,
		models.ExclusivityExclusive,
		params.OfferDetails,
		params.AcceptedAt,
		models.StatusOfferPending,
	)
	if err != nil {
		return fmt.Errorf("mark application %s exclusive: %w", params.ApplicationID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check exclusive update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetExclusivityStatus flags exclusivity without the full acceptance flow.
func (r *ApplicationRepository) SetExclusivityStatus(ctx context.Context, id string, status models.ExclusivityStatus) error {
	const query = `UPDATE applications SET exclusivity_status = $2, last_update = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set exclusivity status for %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check exclusivity update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// WithdrawCompetitors marks every other non-final application of the
// candidate as withdrawn in a single conditional multi-row update. The ids of
// the affected rows are returned so the caller can audit each one.
func (r *ApplicationRepository) WithdrawCompetitors(ctx context.Context, candidateID, exceptID string, now time.Time) ([]string, error) {
	finals := make([]string, 0, 5)
	for _, status := range []models.ApplicationStatus{
		models.StatusHired, models.StatusRejected, models.StatusWithdrawn,
		models.StatusExpired, models.StatusOfferDeclined,
	} {
		finals = append(finals, string(status))
	}
	const query = `UPDATE applications
	SET status = $1, exclusivity_status = $2, last_update = $3
	WHERE candidate_id = $4 AND id <> $5 AND NOT (status = ANY($6))
	RETURNING id`
	rows, err := r.db.QueryxContext(ctx, query,
		models.StatusWithdrawn,
		models.ExclusivityWithdrawn,
		now,
		candidateID,
		exceptID,
		pq.Array(finals),
	)
	if err != nil {
		return nil, fmt.Errorf("withdraw competitors for candidate %s: %w", candidateID, err)
	}
	defer rows.Close()

	var withdrawn []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan withdrawn id: %w", err)
		}
		withdrawn = append(withdrawn, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate withdrawn rows: %w", err)
	}
	return withdrawn, nil
}

// TouchTrackingUpdate records the timestamp of the most recent audited event.
func (r *ApplicationRepository) TouchTrackingUpdate(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE applications SET last_tracking_update = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts); err != nil {
		return fmt.Errorf("touch tracking update for %s: %w", id, err)
	}
	return nil
}

func (r *ApplicationRepository) getStages(ctx context.Context, applicationID string) ([]models.Stage, error) {
	const query = `SELECT id, application_id, name, status, position, started_at, completed_at
	FROM application_stages WHERE application_id = $1 ORDER BY position ASC`
	var stages []models.Stage
	if err := r.db.SelectContext(ctx, &stages, query, applicationID); err != nil {
		return nil, fmt.Errorf("list stages for %s: %w", applicationID, err)
	}
	return stages, nil
}

// buildInClause is a helper for variadic status filters.
func buildInClause(args *[]interface{}, values []string) string {
	placeholders := make([]string, len(values))
	for i, v := range values {
		*args = append(*args, v)
		placeholders[i] = fmt.Sprintf("$%d", len(*args))
	}
	return strings.Join(placeholders, ",")
}
