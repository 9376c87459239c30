package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-quiz/internal/model"
)

// Transition names used in events, logs and metrics.
const (
	TransitionStarted       = "started"
	TransitionPaused        = "paused"
	TransitionAutoPaused    = "auto_paused"
	TransitionResumed       = "resumed"
	TransitionAutoResumed   = "auto_resumed"
	TransitionSubmitted     = "submitted"
	TransitionAutoSubmitted = "auto_submitted"
	TransitionAbandoned     = "abandoned"
)

// AnswerRecord is one accepted answer write, kept for the audit log.
type AnswerRecord struct {
	QuizQuestionID   uuid.UUID          `json:"quiz_question_id"`
	QuestionType     model.QuestionType `json:"question_type"`
	Answer           model.Answer       `json:"answer"`
	TimeSpentSeconds int                `json:"time_spent_seconds"`
}

// SessionEvent describes a persisted change to one session.
type SessionEvent struct {
	SessionToken string                  `json:"session_token"`
	QuizID       uuid.UUID               `json:"quiz_id"`
	UserID       int                     `json:"user_id"`
	Operation    string                  `json:"operation"`
	Status       model.SessionStatus     `json:"status"`
	Transitions  []string                `json:"transitions,omitempty"`
	Answers      []AnswerRecord          `json:"answers,omitempty"`
	Result       *model.SubmissionResult `json:"result,omitempty"`
	// Graded is set only on the event that produced Result.
	Graded bool      `json:"graded"`
	At     time.Time `json:"at"`
}

// EventPublisher fans session changes out to subscribers and write-behind workers.
type EventPublisher interface {
	Publish(ctx context.Context, ev SessionEvent) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, SessionEvent) error { return nil }
