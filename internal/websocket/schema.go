package websocket

import (
	"encoding/json"

	"github.com/stemsi/exstem-quiz/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionHeartbeat  Action = "heartbeat"
	ActionSaveAnswer Action = "save_answer"
	ActionNavigate   Action = "navigate"
	ActionFlag       Action = "flag"
)

// RequestEnvelope is used to peek at the action before full parsing.
// RequestID is echoed back on the reply.
type RequestEnvelope struct {
	Action    Action `json:"action"`
	RequestID string `json:"request_id,omitempty"`
}

// SaveAnswerRequest upserts a single answer. A null answer clears it.
type SaveAnswerRequest struct {
	RequestEnvelope
	QuizQuestionID   string          `json:"quiz_question_id"`
	Answer           json.RawMessage `json:"answer"`
	TimeSpentSeconds int             `json:"time_spent_seconds"`
}

// NavigateRequest moves the current question pointer (1-based).
type NavigateRequest struct {
	RequestEnvelope
	QuestionNumber int `json:"question_number"`
}

// FlagRequest sets or clears a review flag.
type FlagRequest struct {
	RequestEnvelope
	QuizQuestionID string `json:"quiz_question_id"`
	IsFlagged      bool   `json:"is_flagged"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState    Event = "state"
	EventSaved    Event = "saved"
	EventError    Event = "error"
	EventTerminal Event = "terminal"
)

// StateResponse carries the full session view.
type StateResponse struct {
	Event     Event              `json:"event"`
	RequestID string             `json:"request_id,omitempty"`
	Data      *model.SessionView `json:"data"`
}

// SavedResponse acknowledges an answer write.
type SavedResponse struct {
	Event          Event              `json:"event"`
	RequestID      string             `json:"request_id,omitempty"`
	QuizQuestionID string             `json:"quiz_question_id"`
	Data           *model.SessionView `json:"data"`
}

// TerminalResponse is sent once the session is finalized; the server closes
// the socket afterwards.
type TerminalResponse struct {
	Event     Event                   `json:"event"`
	RequestID string                  `json:"request_id,omitempty"`
	Status    model.SessionStatus     `json:"status"`
	Result    *model.SubmissionResult `json:"result,omitempty"`
}

type ErrorResponse struct {
	Event     Event             `json:"event"`
	RequestID string            `json:"request_id,omitempty"`
	Code      string            `json:"code"`
	Error     string            `json:"error"`
	Fields    map[string]string `json:"fields,omitempty"`
}
