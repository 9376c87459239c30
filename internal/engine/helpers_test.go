package engine

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-quiz/internal/model"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func intPtr(v int) *int { return &v }

func choiceOptions() []model.Option {
	return []model.Option{{ID: "a", Text: "A"}, {ID: "b", Text: "B"}, {ID: "c", Text: "C"}}
}

// singleChoiceQuiz builds n single-choice questions whose correct option is "a".
func singleChoiceQuiz(n int, policy model.QuizPolicy) *model.QuizDefinition {
	q := &model.QuizDefinition{ID: uuid.New(), Title: "Basics", Status: model.QuizStatusPublished, Policy: policy}
	for i := 0; i < n; i++ {
		q.Questions = append(q.Questions, model.CatalogQuestion{
			ID:            uuid.New(),
			QuestionType:  model.QuestionTypeSingleChoice,
			Prompt:        "pick a",
			Options:       choiceOptions(),
			CorrectAnswer: model.SingleChoiceAnswer{OptionID: "a"},
			OrderNum:      i + 1,
		})
	}
	return q
}

func mixedQuiz(policy model.QuizPolicy) *model.QuizDefinition {
	return &model.QuizDefinition{
		ID:     uuid.New(),
		Title:  "Mixed",
		Status: model.QuizStatusPublished,
		Policy: policy,
		Questions: []model.CatalogQuestion{
			{
				ID: uuid.New(), QuestionType: model.QuestionTypeSingleChoice, OrderNum: 1,
				Options: choiceOptions(), CorrectAnswer: model.SingleChoiceAnswer{OptionID: "b"},
			},
			{
				ID: uuid.New(), QuestionType: model.QuestionTypeMultiChoice, OrderNum: 2,
				Options: choiceOptions(), CorrectAnswer: model.MultiChoiceAnswer{OptionIDs: []string{"a", "c"}},
			},
			{
				ID: uuid.New(), QuestionType: model.QuestionTypeBoolean, OrderNum: 3,
				Options:       []model.Option{{ID: "true", Text: "True"}, {ID: "false", Text: "False"}},
				CorrectAnswer: model.BooleanAnswer{OptionID: "false"},
			},
			{
				ID: uuid.New(), QuestionType: model.QuestionTypeMatching, OrderNum: 4,
				Options: []model.Option{
					{ID: "l1", Side: model.MatchSideLeft}, {ID: "l2", Side: model.MatchSideLeft},
					{ID: "r1", Side: model.MatchSideRight}, {ID: "r2", Side: model.MatchSideRight},
				},
				CorrectAnswer: model.MatchingAnswer{Pairs: []model.MatchPair{{LeftID: "l1", RightID: "r2"}, {LeftID: "l2", RightID: "r1"}}},
			},
		},
	}
}

func examPolicy(limit, pauseAfter, pauseLimit int) model.QuizPolicy {
	return model.QuizPolicy{
		Mode:                      model.ModeExam,
		TimeLimitSeconds:          intPtr(limit),
		PauseAfterQuestions:       pauseAfter,
		PauseDurationLimitSeconds: pauseLimit,
	}
}

func answerFor(s *model.Session, i int, optionID string) AnswerInput {
	return AnswerInput{QuizQuestionID: s.QuestionSnapshots[i].QuizQuestionID, Answer: model.SingleChoiceAnswer{OptionID: optionID}}
}

func rawAnswer(qid uuid.UUID, v any) AnswerInput {
	raw, _ := json.Marshal(v)
	return AnswerInput{QuizQuestionID: qid, Raw: raw}
}
