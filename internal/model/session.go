package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates quiz session states.
type SessionStatus string

const (
	SessionStatusInProgress    SessionStatus = "in_progress"
	SessionStatusPaused        SessionStatus = "paused"
	SessionStatusSubmitted     SessionStatus = "submitted"
	SessionStatusAutoSubmitted SessionStatus = "auto_submitted"
	SessionStatusAbandoned     SessionStatus = "abandoned"
)

// Terminal reports whether no further mutation is accepted in this state.
func (s SessionStatus) Terminal() bool {
	switch s {
	case SessionStatusSubmitted, SessionStatusAutoSubmitted, SessionStatusAbandoned:
		return true
	}
	return false
}

// SessionPolicy holds the pacing parameters frozen at session start.
type SessionPolicy struct {
	PauseAfterQuestions       int `json:"pause_after_questions"`
	PauseDurationLimitSeconds int `json:"pause_duration_limit_seconds"`
	AutoPauseAfterQuestions   int `json:"auto_pause_after_questions"`
}

// PauseWindow is an interval excluded from elapsed-time accounting.
type PauseWindow struct {
	PausedAt         time.Time  `json:"paused_at"`
	ExpectedResumeAt *time.Time `json:"expected_resume_at"`
	ResumedAt        *time.Time `json:"resumed_at"`
	Automatic        bool       `json:"automatic"`
}

// Open reports whether the window has not been closed yet.
func (p PauseWindow) Open() bool { return p.ResumedAt == nil }

// QuestionSnapshot is one question instance frozen into a session.
// Only UserAnswer, IsFlagged, IsAnswered, EverAnswered and TimeSpentSeconds
// change after start. EverAnswered never goes back to false, so clearing and
// re-answering a question does not count toward pause pacing again.
type QuestionSnapshot struct {
	QuizQuestionID   uuid.UUID    `json:"quiz_question_id"`
	QuestionType     QuestionType `json:"question_type"`
	Prompt           string       `json:"prompt"`
	Options          []Option     `json:"options"`
	CorrectAnswer    Answer       `json:"correct_answer"`
	UserAnswer       Answer       `json:"user_answer"`
	IsFlagged        bool         `json:"is_flagged"`
	IsAnswered       bool         `json:"is_answered"`
	EverAnswered     bool         `json:"ever_answered"`
	TimeSpentSeconds int          `json:"time_spent_seconds"`
}

type questionSnapshotJSON struct {
	QuizQuestionID   uuid.UUID       `json:"quiz_question_id"`
	QuestionType     QuestionType    `json:"question_type"`
	Prompt           string          `json:"prompt"`
	Options          []Option        `json:"options"`
	CorrectAnswer    json.RawMessage `json:"correct_answer"`
	UserAnswer       json.RawMessage `json:"user_answer"`
	IsFlagged        bool            `json:"is_flagged"`
	IsAnswered       bool            `json:"is_answered"`
	EverAnswered     bool            `json:"ever_answered"`
	TimeSpentSeconds int             `json:"time_spent_seconds"`
}

// UnmarshalJSON resolves both answer variants from question_type.
func (q *QuestionSnapshot) UnmarshalJSON(data []byte) error {
	var w questionSnapshotJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	correct, err := DecodeAnswer(w.QuestionType, w.CorrectAnswer)
	if err != nil {
		return err
	}
	user, err := DecodeAnswer(w.QuestionType, w.UserAnswer)
	if err != nil {
		return err
	}
	*q = QuestionSnapshot{
		QuizQuestionID:   w.QuizQuestionID,
		QuestionType:     w.QuestionType,
		Prompt:           w.Prompt,
		Options:          w.Options,
		CorrectAnswer:    correct,
		UserAnswer:       user,
		IsFlagged:        w.IsFlagged,
		IsAnswered:       w.IsAnswered,
		EverAnswered:     w.EverAnswered || w.IsAnswered,
		TimeSpentSeconds: w.TimeSpentSeconds,
	}
	return nil
}

// Session is one user's attempt at one quiz.
type Session struct {
	Token                string             `json:"session_token"`
	QuizID               uuid.UUID          `json:"quiz_id"`
	UserID               int                `json:"user_id"`
	Mode                 Mode               `json:"mode"`
	Status               SessionStatus      `json:"status"`
	TimeLimitSeconds     *int               `json:"time_limit_seconds"`
	ExamElapsedSeconds   int                `json:"exam_elapsed_seconds"`
	PauseElapsedSeconds  int                `json:"pause_elapsed_seconds"`
	CurrentQuestionIndex int                `json:"current_question_index"`
	StartedAt            time.Time          `json:"started_at"`
	LastHeartbeatAt      time.Time          `json:"last_heartbeat_at"`
	FinishedAt           *time.Time         `json:"finished_at,omitempty"`
	Policy               SessionPolicy      `json:"policy"`
	QuestionSnapshots    []QuestionSnapshot `json:"question_snapshots"`
	PauseWindows         []PauseWindow      `json:"pause_windows"`
	// PacingAnswered holds the questions newly answered since the session
	// started or last resumed; it feeds pause eligibility and auto-pause.
	PacingAnswered []uuid.UUID       `json:"pacing_answered"`
	Result         *SubmissionResult `json:"result,omitempty"`
	Version        int               `json:"-"`
}

// OpenPause returns the currently open pause window, or nil.
func (s *Session) OpenPause() *PauseWindow {
	if n := len(s.PauseWindows); n > 0 && s.PauseWindows[n-1].Open() {
		return &s.PauseWindows[n-1]
	}
	return nil
}

// Timed reports whether the session runs against a deadline.
func (s *Session) Timed() bool {
	return s.Mode == ModeExam && s.TimeLimitSeconds != nil
}
