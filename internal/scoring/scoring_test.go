package scoring

import (
	"testing"

	"github.com/google/uuid"

	"github.com/assessio/assessio-backend/internal/model"
)

var (
	qSingle  = uuid.New()
	qMulti   = uuid.New()
	qShort   = uuid.New()
	qEssay   = uuid.New()
	qMatch   = uuid.New()
	qFill    = uuid.New()
	qUnknown = uuid.New()
)

func fixtureExam() *model.ExamDefinition {
	return &model.ExamDefinition{
		ID:              uuid.New(),
		Title:           "Networking Basics",
		DurationMinutes: 30,
		PassingScore:    70,
		Questions: []model.Question{
			{ID: qSingle, Type: model.QuestionTypeSingleChoice, Correct: model.Answer{Value: "Network"}, Points: 2},
			{ID: qMulti, Type: model.QuestionTypeMultiChoice, Correct: model.Answer{Values: []string{"GET", "PUT"}}, Points: 3},
			{ID: qShort, Type: model.QuestionTypeShortAnswer, Correct: model.Answer{Value: "Transmission Control Protocol"}, Points: 2},
			{ID: qFill, Type: model.QuestionTypeFillBlank, Correct: model.Answer{Value: "addresses"}, Points: 1},
			{ID: qMatch, Type: model.QuestionTypeMatching, Correct: model.Answer{Values: []string{"HTTP=80", "SSH=22"}}, Points: 2},
			{ID: qEssay, Type: model.QuestionTypeEssay, Points: 5},
		},
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name       string
		answers    map[uuid.UUID]model.Answer
		wantRaw    float64
		wantPct    float64
		wantPassed bool
	}{
		{
			name:    "no answers scores zero",
			answers: map[uuid.UUID]model.Answer{},
			wantRaw: 0,
			wantPct: 0,
		},
		{
			name: "all auto-gradable correct",
			answers: map[uuid.UUID]model.Answer{
				qSingle: {Value: "Network"},
				qMulti:  {Values: []string{"PUT", "GET"}},
				qShort:  {Value: "transmission control protocol"},
				qFill:   {Value: " Addresses "},
				qMatch:  {Values: []string{"SSH=22", "HTTP=80"}},
				qEssay:  {Value: "long prose"},
			},
			// 10 of 15; the essay is never auto-awarded.
			wantRaw: 10,
			wantPct: 66.67,
		},
		{
			name: "multi-select superset gets nothing",
			answers: map[uuid.UUID]model.Answer{
				qMulti: {Values: []string{"GET", "PUT", "FETCH"}},
			},
			wantRaw: 0,
			wantPct: 0,
		},
		{
			name: "multi-select subset gets nothing",
			answers: map[uuid.UUID]model.Answer{
				qMulti: {Values: []string{"GET"}},
			},
			wantRaw: 0,
			wantPct: 0,
		},
		{
			name: "duplicates in a set collapse",
			answers: map[uuid.UUID]model.Answer{
				qMulti: {Values: []string{"GET", "get", "PUT"}},
			},
			wantRaw: 3,
			wantPct: 20,
		},
		{
			name: "wrong scalar answer",
			answers: map[uuid.UUID]model.Answer{
				qSingle: {Value: "Transport"},
			},
			wantRaw: 0,
			wantPct: 0,
		},
		{
			name: "unknown question ids are ignored",
			answers: map[uuid.UUID]model.Answer{
				qSingle:  {Value: "Network"},
				qUnknown: {Value: "whatever"},
			},
			wantRaw: 2,
			wantPct: 13.33,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(fixtureExam(), tt.answers)
			if got.RawScore != tt.wantRaw {
				t.Errorf("RawScore = %v, want %v", got.RawScore, tt.wantRaw)
			}
			if got.MaxScore != 15 {
				t.Errorf("MaxScore = %v, want 15", got.MaxScore)
			}
			if got.Percentage != tt.wantPct {
				t.Errorf("Percentage = %v, want %v", got.Percentage, tt.wantPct)
			}
			if got.Passed != tt.wantPassed {
				t.Errorf("Passed = %v, want %v", got.Passed, tt.wantPassed)
			}
		})
	}
}

func TestScorePassBoundary(t *testing.T) {
	exam := &model.ExamDefinition{
		PassingScore: 70,
		Questions: []model.Question{
			{ID: qSingle, Type: model.QuestionTypeSingleChoice, Correct: model.Answer{Value: "a"}, Points: 7},
			{ID: qShort, Type: model.QuestionTypeShortAnswer, Correct: model.Answer{Value: "b"}, Points: 3},
		},
	}

	// Exactly at the threshold passes.
	got := Score(exam, map[uuid.UUID]model.Answer{qSingle: {Value: "a"}})
	if got.Percentage != 70 || !got.Passed {
		t.Errorf("got pct=%v passed=%v, want 70 and passed", got.Percentage, got.Passed)
	}

	// Just below fails.
	got = Score(exam, map[uuid.UUID]model.Answer{qShort: {Value: "b"}})
	if got.Passed {
		t.Errorf("30%% should not pass a 70%% threshold")
	}
}

func TestScoreZeroPointExam(t *testing.T) {
	exam := &model.ExamDefinition{PassingScore: 50}
	got := Score(exam, nil)
	if got.Percentage != 0 || got.Passed {
		t.Errorf("empty exam must score 0%% and not pass, got %+v", got)
	}
}

func TestScoreDeterministic(t *testing.T) {
	answers := map[uuid.UUID]model.Answer{
		qSingle: {Value: "Network"},
		qMulti:  {Values: []string{"PUT", "GET"}},
		qMatch:  {Values: []string{"HTTP=80", "SSH=22"}},
	}

	first := Score(fixtureExam(), answers)
	for i := 0; i < 50; i++ {
		if got := Score(fixtureExam(), answers); got != first {
			t.Fatalf("run %d diverged: %+v vs %+v", i, got, first)
		}
	}
}
