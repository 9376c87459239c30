package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// QuizStatus enumerates catalog states of a quiz definition.
type QuizStatus string

const (
	QuizStatusDraft     QuizStatus = "DRAFT"
	QuizStatusPublished QuizStatus = "PUBLISHED"
	QuizStatusArchived  QuizStatus = "ARCHIVED"
)

// Mode is the temporal policy of an attempt.
type Mode string

const (
	ModePractice Mode = "practice"
	ModeExam     Mode = "exam"
)

// MatchSide marks which column an option of a matching question belongs to.
type MatchSide string

const (
	MatchSideLeft  MatchSide = "left"
	MatchSideRight MatchSide = "right"
)

// Option is one selectable choice of a question.
type Option struct {
	ID   string    `json:"id"`
	Text string    `json:"text"`
	Side MatchSide `json:"side,omitempty"`
}

// QuizPolicy is the attempt policy attached to a quiz definition.
type QuizPolicy struct {
	Mode                      Mode `json:"mode"`
	TimeLimitSeconds          *int `json:"time_limit_seconds,omitempty"`
	PauseAfterQuestions       int  `json:"pause_after_questions"`
	PauseDurationLimitSeconds int  `json:"pause_duration_limit_seconds"`
	AutoPauseAfterQuestions   int  `json:"auto_pause_after_questions"`
	ShuffleQuestions          bool `json:"shuffle_questions"`
	ShuffleOptions            bool `json:"shuffle_options"`
	AllowMultipleAttempts     bool `json:"allow_multiple_attempts"`
	MaxAttempts               int  `json:"max_attempts"`
}

// CatalogQuestion is a question as supplied by the quiz catalog, correct answer included.
type CatalogQuestion struct {
	ID            uuid.UUID    `json:"id"`
	QuestionType  QuestionType `json:"question_type"`
	Prompt        string       `json:"prompt"`
	Options       []Option     `json:"options"`
	CorrectAnswer Answer       `json:"correct_answer"`
	OrderNum      int          `json:"order_num"`
}

type catalogQuestionJSON struct {
	ID            uuid.UUID       `json:"id"`
	QuestionType  QuestionType    `json:"question_type"`
	Prompt        string          `json:"prompt"`
	Options       []Option        `json:"options"`
	CorrectAnswer json.RawMessage `json:"correct_answer"`
	OrderNum      int             `json:"order_num"`
}

// UnmarshalJSON resolves the correct answer variant from question_type.
func (q *CatalogQuestion) UnmarshalJSON(data []byte) error {
	var w catalogQuestionJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	correct, err := DecodeAnswer(w.QuestionType, w.CorrectAnswer)
	if err != nil {
		return err
	}
	*q = CatalogQuestion{
		ID:            w.ID,
		QuestionType:  w.QuestionType,
		Prompt:        w.Prompt,
		Options:       w.Options,
		CorrectAnswer: correct,
		OrderNum:      w.OrderNum,
	}
	return nil
}

// QuizDefinition is the full quiz structure fetched from the catalog at session start.
type QuizDefinition struct {
	ID        uuid.UUID         `json:"id"`
	Title     string            `json:"title"`
	Status    QuizStatus        `json:"status"`
	Policy    QuizPolicy        `json:"policy"`
	Questions []CatalogQuestion `json:"questions"`
	UpdatedAt time.Time         `json:"updated_at"`
}
