package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/assessio/assessio-backend/internal/model"
)

// PostgresAuditArchive reads the durable audit history written by the
// audit worker. Entries land here only after a session ends; the live
// trail of an in-flight session stays in the session store.
type PostgresAuditArchive struct {
	pool *pgxpool.Pool
}

// NewPostgresAuditArchive creates a new PostgresAuditArchive.
func NewPostgresAuditArchive(pool *pgxpool.Pool) *PostgresAuditArchive {
	return &PostgresAuditArchive{pool: pool}
}

// List returns all archived entries for (student, exam) in observed order.
func (a *PostgresAuditArchive) List(ctx context.Context, examID uuid.UUID, studentID int) ([]model.AuditEntry, error) {
	rows, err := a.pool.Query(ctx,
		`SELECT id, exam_id, student_id, kind, observed_at, detail, client_ip, user_agent
         FROM audit_entries
         WHERE exam_id = $1 AND student_id = $2
         ORDER BY observed_at ASC`,
		examID, studentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var kind string
		var detail []byte
		if err := rows.Scan(&e.ID, &e.ExamID, &e.StudentID, &kind, &e.ObservedAt, &detail, &e.ClientIP, &e.UserAgent); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Kind = model.EventKind(kind)
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &e.Detail); err != nil {
				return nil, fmt.Errorf("decode audit detail: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
