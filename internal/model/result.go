package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SubmissionTrigger records what finalized a graded session.
type SubmissionTrigger string

const (
	TriggerManual     SubmissionTrigger = "manual"
	TriggerAutoExpiry SubmissionTrigger = "auto_expiry"
)

// QuestionResult is the per-question line of a grading breakdown.
type QuestionResult struct {
	QuizQuestionID uuid.UUID    `json:"quiz_question_id"`
	QuestionType   QuestionType `json:"question_type"`
	UserAnswer     Answer       `json:"user_answer"`
	CorrectAnswer  Answer       `json:"correct_answer"`
	IsAnswered     bool         `json:"is_answered"`
	IsCorrect      bool         `json:"is_correct"`
}

type questionResultJSON struct {
	QuizQuestionID uuid.UUID       `json:"quiz_question_id"`
	QuestionType   QuestionType    `json:"question_type"`
	UserAnswer     json.RawMessage `json:"user_answer"`
	CorrectAnswer  json.RawMessage `json:"correct_answer"`
	IsAnswered     bool            `json:"is_answered"`
	IsCorrect      bool            `json:"is_correct"`
}

// UnmarshalJSON resolves both answer variants from question_type.
func (r *QuestionResult) UnmarshalJSON(data []byte) error {
	var w questionResultJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	user, err := DecodeAnswer(w.QuestionType, w.UserAnswer)
	if err != nil {
		return err
	}
	correct, err := DecodeAnswer(w.QuestionType, w.CorrectAnswer)
	if err != nil {
		return err
	}
	*r = QuestionResult{
		QuizQuestionID: w.QuizQuestionID,
		QuestionType:   w.QuestionType,
		UserAnswer:     user,
		CorrectAnswer:  correct,
		IsAnswered:     w.IsAnswered,
		IsCorrect:      w.IsCorrect,
	}
	return nil
}

// SubmissionResult is produced once, at the graded terminal transition.
type SubmissionResult struct {
	Score                float64           `json:"score"`
	CorrectCount         int               `json:"correct_count"`
	TotalQuestions       int               `json:"total_questions"`
	PerQuestionBreakdown []QuestionResult  `json:"per_question_breakdown"`
	SubmittedAt          time.Time         `json:"submitted_at"`
	Trigger              SubmissionTrigger `json:"trigger"`
}
