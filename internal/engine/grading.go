package engine

import (
	"math"
	"time"

	"github.com/stemsi/exstem-quiz/internal/model"
)

// Grade scores the frozen snapshots against the correct answers captured at
// session start. Unanswered questions count as incorrect.
func Grade(snapshots []model.QuestionSnapshot, at time.Time, trigger model.SubmissionTrigger) *model.SubmissionResult {
	res := &model.SubmissionResult{
		TotalQuestions:       len(snapshots),
		PerQuestionBreakdown: make([]model.QuestionResult, 0, len(snapshots)),
		SubmittedAt:          at,
		Trigger:              trigger,
	}

	for _, q := range snapshots {
		ok := q.IsAnswered && AnswersEqual(q.CorrectAnswer, q.UserAnswer)
		if ok {
			res.CorrectCount++
		}
		res.PerQuestionBreakdown = append(res.PerQuestionBreakdown, model.QuestionResult{
			QuizQuestionID: q.QuizQuestionID,
			QuestionType:   q.QuestionType,
			UserAnswer:     q.UserAnswer,
			CorrectAnswer:  q.CorrectAnswer,
			IsAnswered:     q.IsAnswered,
			IsCorrect:      ok,
		})
	}

	if res.TotalQuestions > 0 {
		pct := float64(res.CorrectCount) / float64(res.TotalQuestions) * 100
		res.Score = math.Round(pct*100) / 100
	}
	return res
}

// AnswersEqual compares per type: exact option id for single-choice and
// boolean, set equality for multi-choice and matching pairs.
func AnswersEqual(correct, given model.Answer) bool {
	if correct == nil || given == nil || correct.IsEmpty() || given.IsEmpty() {
		return false
	}

	switch c := correct.(type) {
	case model.SingleChoiceAnswer:
		g, ok := given.(model.SingleChoiceAnswer)
		return ok && g.OptionID == c.OptionID
	case model.BooleanAnswer:
		g, ok := given.(model.BooleanAnswer)
		return ok && g.OptionID == c.OptionID
	case model.MultiChoiceAnswer:
		g, ok := given.(model.MultiChoiceAnswer)
		return ok && sameSet(c.OptionIDs, g.OptionIDs)
	case model.MatchingAnswer:
		g, ok := given.(model.MatchingAnswer)
		return ok && sameSet(c.Pairs, g.Pairs)
	}
	return false
}

func sameSet[T comparable](a, b []T) bool {
	as := make(map[T]struct{}, len(a))
	for _, v := range a {
		as[v] = struct{}{}
	}
	bs := make(map[T]struct{}, len(b))
	for _, v := range b {
		if _, ok := as[v]; !ok {
			return false
		}
		bs[v] = struct{}{}
	}
	return len(as) == len(bs)
}
