package worker

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerPayloads(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	qid := uuid.New()
	ev := service.SessionEvent{
		SessionToken: "tok",
		At:           at,
		Answers: []service.AnswerRecord{
			{QuizQuestionID: qid, Answer: model.MultiChoiceAnswer{OptionIDs: []string{"a", "b"}}, TimeSpentSeconds: 12},
			{QuizQuestionID: qid},
		},
	}

	rows, err := answerPayloads(ev)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.JSONEq(t, `{"option_ids":["a","b"]}`, string(rows[0].Answer))
	assert.Equal(t, 12, rows[0].TimeSpentSeconds)
	assert.Equal(t, at, rows[0].RecordedAt)
	assert.Equal(t, "null", string(rows[1].Answer))
}

func TestResultPayloadOnlyWhenGraded(t *testing.T) {
	res := &model.SubmissionResult{Score: 80, CorrectCount: 4, TotalQuestions: 5, Trigger: model.TriggerAutoExpiry}

	assert.Nil(t, resultPayloadFor(service.SessionEvent{Result: res}))
	assert.Nil(t, resultPayloadFor(service.SessionEvent{Graded: true}))

	p := resultPayloadFor(service.SessionEvent{SessionToken: "tok", UserID: 3, Graded: true, Result: res})
	require.NotNil(t, p)
	assert.Equal(t, 80.0, p.Score)
	assert.Equal(t, model.TriggerAutoExpiry, p.Trigger)
	assert.Equal(t, 3, p.UserID)
}

func TestDedupeKeepsLastPerSession(t *testing.T) {
	a1 := &resultPayload{SessionToken: "a", Score: 10}
	b := &resultPayload{SessionToken: "b", Score: 20}
	a2 := &resultPayload{SessionToken: "a", Score: 30}

	out := dedupe([]*resultPayload{a1, b, a2})
	require.Len(t, out, 2)
	assert.Same(t, a2, out[0])
	assert.Same(t, b, out[1])
}
