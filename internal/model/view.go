package model

import (
	"time"

	"github.com/google/uuid"
)

// QuestionView is a question as returned to the taker, without the correct answer.
type QuestionView struct {
	Number           int          `json:"number"`
	QuizQuestionID   uuid.UUID    `json:"quiz_question_id"`
	QuestionType     QuestionType `json:"question_type"`
	Prompt           string       `json:"prompt"`
	Options          []Option     `json:"options"`
	UserAnswer       Answer       `json:"user_answer"`
	IsFlagged        bool         `json:"is_flagged"`
	IsAnswered       bool         `json:"is_answered"`
	TimeSpentSeconds int          `json:"time_spent_seconds"`
}

// SessionView is the externally visible state of a session.
type SessionView struct {
	SessionToken         string        `json:"session_token"`
	QuizID               uuid.UUID     `json:"quiz_id"`
	UserID               int           `json:"user_id"`
	Mode                 Mode          `json:"mode"`
	Status               SessionStatus `json:"status"`
	TimeLimitSeconds     *int          `json:"time_limit_seconds"`
	TimeRemainingSeconds *int          `json:"time_remaining_seconds"`
	ExamElapsedSeconds   int           `json:"exam_elapsed_seconds"`
	PauseElapsedSeconds  int           `json:"pause_elapsed_seconds"`
	CurrentQuestionIndex int           `json:"current_question_index"`
	StartedAt            time.Time     `json:"started_at"`
	LastHeartbeatAt      time.Time     `json:"last_heartbeat_at"`
	FinishedAt           *time.Time    `json:"finished_at,omitempty"`
	ActivePause          *PauseWindow  `json:"active_pause,omitempty"`
	// AutoPaused is true only on the response of the save that opened an
	// automatic pause.
	AutoPaused        bool              `json:"auto_paused"`
	AnswersUntilPause int               `json:"answers_until_pause"`
	AnsweredCount     int               `json:"answered_count"`
	FlaggedCount      int               `json:"flagged_count"`
	Questions         []QuestionView    `json:"questions"`
	Result            *SubmissionResult `json:"result,omitempty"`
	ServerTime        time.Time         `json:"server_time"`
}
