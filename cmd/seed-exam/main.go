package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/assessio/assessio-backend/internal/config"
	"github.com/assessio/assessio-backend/internal/database"
	"github.com/assessio/assessio-backend/internal/logger"
	"github.com/assessio/assessio-backend/internal/model"
)

// Seeds one sample exam with a question of every supported type.
// Useful for smoke-testing a fresh deployment end to end.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	examID := uuid.New()
	fmt.Printf("=== Seeding sample exam %s ===\n", examID)

	_, err = pool.Exec(ctx,
		`INSERT INTO exams (id, title, duration_minutes, passing_score, max_attempts, randomize_questions, randomize_options)
         VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		examID, "Sample Certification Exam", 30, 70.0, 5, true, true,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to insert exam")
	}

	questions := []struct {
		text    string
		qtype   model.QuestionType
		options []string
		correct model.Answer
		points  float64
	}{
		{
			text:    "Which layer of the OSI model handles routing?",
			qtype:   model.QuestionTypeSingleChoice,
			options: []string{"Physical", "Network", "Transport", "Session"},
			correct: model.Answer{Value: "Network"},
			points:  2,
		},
		{
			text:    "Select every valid HTTP method.",
			qtype:   model.QuestionTypeMultiChoice,
			options: []string{"GET", "FETCH", "PUT", "SEND"},
			correct: model.Answer{Values: []string{"GET", "PUT"}},
			points:  3,
		},
		{
			text:    "What does TCP stand for?",
			qtype:   model.QuestionTypeShortAnswer,
			correct: model.Answer{Value: "Transmission Control Protocol"},
			points:  2,
		},
		{
			text:    "Fill in the blank: DNS resolves names to ____.",
			qtype:   model.QuestionTypeFillBlank,
			correct: model.Answer{Value: "addresses"},
			points:  1,
		},
		{
			text:    "Match each protocol to its default port.",
			qtype:   model.QuestionTypeMatching,
			options: []string{"HTTP", "SSH", "SMTP"},
			correct: model.Answer{Values: []string{"HTTP=80", "SSH=22", "SMTP=25"}},
			points:  3,
		},
		{
			text:   "Explain the difference between TCP and UDP.",
			qtype:  model.QuestionTypeEssay,
			points: 5,
		},
	}

	for i, q := range questions {
		options, err := json.Marshal(q.options)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to encode options")
		}
		correct, err := json.Marshal(q.correct)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to encode answer key")
		}

		_, err = pool.Exec(ctx,
			`INSERT INTO questions (id, exam_id, order_num, question_text, question_type, options, correct, points)
             VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb, $8)`,
			uuid.New(), examID, i, q.text, string(q.qtype), options, correct, q.points,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to insert question")
		}
	}

	fmt.Printf("Seeded %d questions. Exam ID: %s\n", len(questions), examID)
}
