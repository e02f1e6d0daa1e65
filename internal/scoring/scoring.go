// Package scoring grades a completed answer map against an exam
// definition. It is a pure function of its inputs: no clock, no stores,
// no randomness, so repeated calls over the same fixtures are identical.
package scoring

import (
	"math"
	"sort"
	"strings"

	"github.com/assessio/assessio-backend/internal/model"
	"github.com/google/uuid"
)

// Result is the outcome of grading one answer map.
type Result struct {
	RawScore   float64 `json:"raw_score"`
	MaxScore   float64 `json:"max_score"`
	Percentage float64 `json:"percentage"`
	Passed     bool    `json:"passed"`
}

// Score grades answers against the exam's answer key.
//
// Set-valued questions (multi_choice, matching) award full points only on
// exact set equality: same cardinality, every correct element present,
// nothing extra. There is no partial credit. Scalar questions award points
// on exact (case-insensitive, trimmed) equality. Unanswered questions and
// answers to unknown question ids score zero. Essays are never
// auto-awarded; they count toward MaxScore and need manual review.
func Score(exam *model.ExamDefinition, answers map[uuid.UUID]model.Answer) Result {
	var raw float64
	max := exam.TotalPoints()

	for i := range exam.Questions {
		q := &exam.Questions[i]
		ans, ok := answers[q.ID]
		if !ok || ans.IsEmpty() {
			continue
		}
		raw += scoreQuestion(q, ans)
	}

	pct := 0.0
	if max > 0 {
		pct = round2(raw / max * 100)
	}

	return Result{
		RawScore:   raw,
		MaxScore:   max,
		Percentage: pct,
		Passed:     pct >= exam.PassingScore,
	}
}

func scoreQuestion(q *model.Question, ans model.Answer) float64 {
	switch q.Type {
	case model.QuestionTypeEssay:
		return 0
	case model.QuestionTypeMultiChoice, model.QuestionTypeMatching:
		if setsEqual(ans.Values, q.Correct.Values) {
			return q.Points
		}
		return 0
	default:
		if scalarEqual(ans.Value, q.Correct.Value) {
			return q.Points
		}
		return 0
	}
}

func scalarEqual(got, want string) bool {
	return want != "" && strings.EqualFold(strings.TrimSpace(got), strings.TrimSpace(want))
}

// setsEqual compares two value sets ignoring order and duplicates.
func setsEqual(got, want []string) bool {
	g := normalize(got)
	w := normalize(want)
	if len(g) != len(w) || len(w) == 0 {
		return false
	}
	for i := range g {
		if g[i] != w[i] {
			return false
		}
	}
	return true
}

func normalize(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
