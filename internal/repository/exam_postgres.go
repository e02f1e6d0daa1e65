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

// PostgresQuestionBank serves immutable exam definitions, answer key
// included. The engine only ever reads from it.
type PostgresQuestionBank struct {
	pool *pgxpool.Pool
}

// NewPostgresQuestionBank creates a new PostgresQuestionBank.
func NewPostgresQuestionBank(pool *pgxpool.Pool) *PostgresQuestionBank {
	return &PostgresQuestionBank{pool: pool}
}

// ExamByID loads an exam definition with its ordered questions.
func (r *PostgresQuestionBank) ExamByID(ctx context.Context, id uuid.UUID) (*model.ExamDefinition, error) {
	exam := &model.ExamDefinition{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, duration_minutes, passing_score, max_attempts,
		        randomize_questions, randomize_options
		 FROM exams WHERE id = $1`, id,
	).Scan(
		&exam.ID, &exam.Title, &exam.DurationMinutes, &exam.PassingScore,
		&exam.MaxAttempts, &exam.RandomizeQuestions, &exam.RandomizeOptions,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, question_text, question_type, options, correct, points
		 FROM questions WHERE exam_id = $1 ORDER BY order_num ASC`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			q       model.Question
			options []byte
			correct []byte
		)
		if err := rows.Scan(&q.ID, &q.Text, &q.Type, &options, &correct, &q.Points); err != nil {
			return nil, err
		}
		if len(options) > 0 {
			if err := json.Unmarshal(options, &q.Options); err != nil {
				return nil, fmt.Errorf("decode options: %w", err)
			}
		}
		if len(correct) > 0 {
			if err := json.Unmarshal(correct, &q.Correct); err != nil {
				return nil, fmt.Errorf("decode answer key: %w", err)
			}
		}
		exam.Questions = append(exam.Questions, q)
	}
	return exam, rows.Err()
}
