package worker

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/service"
)

type answerEventPayload struct {
	SessionToken     string          `json:"session_token"`
	QuizQuestionID   uuid.UUID       `json:"quiz_question_id"`
	Answer           json.RawMessage `json:"answer"`
	TimeSpentSeconds int             `json:"time_spent_seconds"`
	RecordedAt       time.Time       `json:"recorded_at"`
}

type resultPayload struct {
	SessionToken   string                  `json:"session_token"`
	QuizID         uuid.UUID               `json:"quiz_id"`
	UserID         int                     `json:"user_id"`
	Score          float64                 `json:"score"`
	CorrectCount   int                     `json:"correct_count"`
	TotalQuestions int                     `json:"total_questions"`
	Trigger        model.SubmissionTrigger `json:"trigger"`
	SubmittedAt    time.Time               `json:"submitted_at"`
}

// answerPayloads flattens the accepted answers of ev into audit rows.
func answerPayloads(ev service.SessionEvent) ([]answerEventPayload, error) {
	out := make([]answerEventPayload, 0, len(ev.Answers))
	for _, a := range ev.Answers {
		raw := json.RawMessage("null")
		if a.Answer != nil {
			b, err := json.Marshal(a.Answer)
			if err != nil {
				return nil, err
			}
			raw = b
		}
		out = append(out, answerEventPayload{
			SessionToken:     ev.SessionToken,
			QuizQuestionID:   a.QuizQuestionID,
			Answer:           raw,
			TimeSpentSeconds: a.TimeSpentSeconds,
			RecordedAt:       ev.At,
		})
	}
	return out, nil
}

// resultPayloadFor returns the result row of ev, or nil when ev did not grade.
func resultPayloadFor(ev service.SessionEvent) *resultPayload {
	if !ev.Graded || ev.Result == nil {
		return nil
	}
	return &resultPayload{
		SessionToken:   ev.SessionToken,
		QuizID:         ev.QuizID,
		UserID:         ev.UserID,
		Score:          ev.Result.Score,
		CorrectCount:   ev.Result.CorrectCount,
		TotalQuestions: ev.Result.TotalQuestions,
		Trigger:        ev.Result.Trigger,
		SubmittedAt:    ev.Result.SubmittedAt,
	}
}
