package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/talentflow/ats-offer-api/internal/models"
)

const auditColumns = `id, application_id, event_type, timestamp, details, reason, ip_address, user_agent`

// AuditRepository is the append-only sink for audit entries. Entries are never
// updated or deleted here; retention is an operational concern.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append inserts one entry.
func (r *AuditRepository) Append(ctx context.Context, entry *models.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	const query = `INSERT INTO audit_entries
	(id, application_id, event_type, timestamp, details, reason, ip_address, user_agent)
	VALUES (:id, :application_id, :event_type, :timestamp, :details, :reason, :ip_address, :user_agent)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// ListByApplication returns the full trail for one application, newest first.
func (r *AuditRepository) ListByApplication(ctx context.Context, applicationID string) ([]models.AuditEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM audit_entries WHERE application_id = $1 ORDER BY timestamp DESC`, auditColumns)
	var entries []models.AuditEntry
	if err := r.db.SelectContext(ctx, &entries, query, applicationID); err != nil {
		return nil, fmt.Errorf("list audit entries for %s: %w", applicationID, err)
	}
	return entries, nil
}

// Search returns entries matching the filter, newest first.
func (r *AuditRepository) Search(ctx context.Context, filter models.AuditSearchFilter) ([]models.AuditEntry, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 6)
	builder.WriteString(fmt.Sprintf(`SELECT %s FROM audit_entries`, auditColumns))

	conditions := make([]string, 0, 4)
	if filter.ApplicationID != "" {
		args = append(args, filter.ApplicationID)
		conditions = append(conditions, fmt.Sprintf("application_id = $%d", len(args)))
	}
	if len(filter.EventTypes) > 0 {
		types := make([]string, len(filter.EventTypes))
		for i, t := range filter.EventTypes {
			types[i] = string(t)
		}
		conditions = append(conditions, fmt.Sprintf("event_type IN (%s)", buildInClause(&args, types)))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		conditions = append(conditions, fmt.Sprintf("timestamp >= $%d", len(args)))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		conditions = append(conditions, fmt.Sprintf("timestamp <= $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY timestamp DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var entries []models.AuditEntry
	if err := r.db.SelectContext(ctx, &entries, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("search audit entries: %w", err)
	}
	return entries, nil
}

// typeAggregate is one GROUP BY row of the summary query.
type typeAggregate struct {
	EventType models.AuditEventType `db:"event_type"`
	Count     int                   `db:"count"`
	Oldest    time.Time             `db:"oldest"`
	Newest    time.Time             `db:"newest"`
}

// Aggregate computes per-type counts and the overall date range, optionally
// scoped to one application.
func (r *AuditRepository) Aggregate(ctx context.Context, applicationID string) (map[models.AuditEventType]int, models.AuditDateRange, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT event_type, COUNT(*) AS count, MIN(timestamp) AS oldest, MAX(timestamp) AS newest FROM audit_entries`)
	args := make([]interface{}, 0, 1)
	if applicationID != "" {
		args = append(args, applicationID)
		builder.WriteString(" WHERE application_id = $1")
	}
	builder.WriteString(" GROUP BY event_type")

	var rows []typeAggregate
	if err := r.db.SelectContext(ctx, &rows, builder.String(), args...); err != nil {
		return nil, models.AuditDateRange{}, fmt.Errorf("aggregate audit entries: %w", err)
	}

	counts := make(map[models.AuditEventType]int, len(rows))
	var dateRange models.AuditDateRange
	for _, row := range rows {
		counts[row.EventType] = row.Count
		oldest, newest := row.Oldest, row.Newest
		if dateRange.From == nil || oldest.Before(*dateRange.From) {
			dateRange.From = &oldest
		}
		if dateRange.To == nil || newest.After(*dateRange.To) {
			dateRange.To = &newest
		}
	}
	return counts, dateRange, nil
}
