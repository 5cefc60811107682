package interview

import (
	"maps"
	"math"

	"github.com/pavelanni/interview-coach/internal/model"
)

// Summarize builds the final report of a session record.
func Summarize(rec model.SessionRecord) model.Summary {
	s := model.Summary{
		SessionID:    rec.SessionID,
		Student:      rec.UserID,
		Domain:       rec.Domain,
		NumQuestions: len(rec.History),
		Details:      make([]model.SummaryDetail, 0, len(rec.History)),
		Weaknesses:   make(map[string]int, len(rec.Weaknesses)),
	}
	maps.Copy(s.Weaknesses, rec.Weaknesses)

	total := 0
	for _, h := range rec.History {
		total += h.Evaluation.Score
		s.Details = append(s.Details, model.SummaryDetail{
			QuestionID:      h.Question.ID,
			QuestionText:    h.Question.Text,
			ReferenceAnswer: h.Question.ReferenceAnswer,
			Score:           h.Evaluation.Score,
			Feedback:        h.Evaluation.Feedback,
			Suggestions:     append([]string{}, h.Evaluation.Suggestions...),
		})
	}
	if len(rec.History) > 0 {
		s.AverageScore = roundTo(float64(total)/float64(len(rec.History)), 2)
	}
	return s
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
