package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/assessio/assessio-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresAttemptLedger is the durable, append-only store of finalized
// attempts. Rows are keyed by the originating session id, so a replayed
// finalization after a partial failure is a no-op rather than a second
// attempt.
type PostgresAttemptLedger struct {
	pool *pgxpool.Pool
}

// NewPostgresAttemptLedger creates a new PostgresAttemptLedger.
func NewPostgresAttemptLedger(pool *pgxpool.Pool) *PostgresAttemptLedger {
	return &PostgresAttemptLedger{pool: pool}
}

// Append inserts a finalized attempt. Idempotent: appending an attempt
// whose id is already recorded does nothing.
func (r *PostgresAttemptLedger) Append(ctx context.Context, a *model.Attempt) error {
	answers, err := json.Marshal(a.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO attempts (
			id, exam_id, student_id, student_name, attempt_number, answers,
			raw_score, max_score, percentage, passed,
			started_at, submitted_at, time_spent_seconds, end_reason
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (id) DO NOTHING`,
		a.ID, a.ExamID, a.StudentID, a.StudentName, a.AttemptNumber, answers,
		a.RawScore, a.MaxScore, a.Percentage, a.Passed,
		a.StartedAt, a.SubmittedAt, a.TimeSpentSeconds, a.EndReason,
	)
	if err != nil {
		return fmt.Errorf("append attempt: %w", err)
	}
	return nil
}

// Count returns how many finalized attempts exist for (student, exam).
func (r *PostgresAttemptLedger) Count(ctx context.Context, examID uuid.UUID, studentID int) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM attempts WHERE exam_id = $1 AND student_id = $2`,
		examID, studentID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return n, nil
}

// ByID retrieves a single attempt, or ErrNotFound.
func (r *PostgresAttemptLedger) ByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	row := r.pool.QueryRow(ctx, selectAttempt+` WHERE id = $1`, id)
	a, err := scanAttempt(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	return a, nil
}

// List returns all attempts for (student, exam) ordered by attempt number.
func (r *PostgresAttemptLedger) List(ctx context.Context, examID uuid.UUID, studentID int) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		selectAttempt+` WHERE exam_id = $1 AND student_id = $2 ORDER BY attempt_number ASC`,
		examID, studentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

// Best returns the highest-percentage attempt for (student, exam), or
// ErrNotFound when none exist.
func (r *PostgresAttemptLedger) Best(ctx context.Context, examID uuid.UUID, studentID int) (*model.Attempt, error) {
	row := r.pool.QueryRow(ctx,
		selectAttempt+` WHERE exam_id = $1 AND student_id = $2
		 ORDER BY percentage DESC, submitted_at ASC LIMIT 1`,
		examID, studentID,
	)
	a, err := scanAttempt(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("best attempt: %w", err)
	}
	return a, nil
}

const selectAttempt = `
	SELECT id, exam_id, student_id, student_name, attempt_number, answers,
	       raw_score, max_score, percentage, passed,
	       started_at, submitted_at, time_spent_seconds, end_reason
	FROM attempts`

func scanAttempt(row pgx.Row) (*model.Attempt, error) {
	var (
		a       model.Attempt
		answers []byte
	)
	err := row.Scan(
		&a.ID, &a.ExamID, &a.StudentID, &a.StudentName, &a.AttemptNumber, &answers,
		&a.RawScore, &a.MaxScore, &a.Percentage, &a.Passed,
		&a.StartedAt, &a.SubmittedAt, &a.TimeSpentSeconds, &a.EndReason,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(answers, &a.Answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	return &a, nil
}
