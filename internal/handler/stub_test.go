package handler

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-quiz/internal/engine"
	"github.com/stemsi/exstem-quiz/internal/model"
)

// stubSessions records calls and answers with canned views or errors.
type stubSessions struct {
	mu    sync.Mutex
	calls []string

	view   *model.SessionView
	result *model.SubmissionResult
	err    error

	lastUser    int
	lastToken   string
	lastInputs  []engine.AnswerInput
	lastNumber  int
	lastFlag    bool
	lastQuizID  uuid.UUID
	lastQuestID uuid.UUID
}

func (s *stubSessions) record(op string, userID int, token string) (*model.SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, op)
	s.lastUser = userID
	s.lastToken = token
	return s.view, s.err
}

func (s *stubSessions) Start(_ context.Context, userID int, quizID uuid.UUID) (*model.SessionView, error) {
	s.set(func() { s.lastQuizID = quizID })
	return s.record("start", userID, "")
}

func (s *stubSessions) GetState(_ context.Context, userID int, token string) (*model.SessionView, error) {
	return s.record("state", userID, token)
}

func (s *stubSessions) GetResult(_ context.Context, userID int, token string) (*model.SubmissionResult, error) {
	_, err := s.record("result", userID, token)
	if err != nil {
		return nil, err
	}
	return s.result, nil
}

func (s *stubSessions) Heartbeat(_ context.Context, userID int, token string) (*model.SessionView, error) {
	return s.record("heartbeat", userID, token)
}

func (s *stubSessions) SaveAnswer(_ context.Context, userID int, token string, in engine.AnswerInput) (*model.SessionView, error) {
	s.set(func() { s.lastInputs = []engine.AnswerInput{in} })
	return s.record("save_answer", userID, token)
}

func (s *stubSessions) SaveAnswers(_ context.Context, userID int, token string, inputs []engine.AnswerInput) (*model.SessionView, error) {
	s.set(func() { s.lastInputs = inputs })
	return s.record("save_answers", userID, token)
}

func (s *stubSessions) Navigate(_ context.Context, userID int, token string, n int) (*model.SessionView, error) {
	s.set(func() { s.lastNumber = n })
	return s.record("navigate", userID, token)
}

func (s *stubSessions) Flag(_ context.Context, userID int, token string, qid uuid.UUID, flagged bool) (*model.SessionView, error) {
	s.set(func() { s.lastQuestID, s.lastFlag = qid, flagged })
	return s.record("flag", userID, token)
}

func (s *stubSessions) Pause(_ context.Context, userID int, token string) (*model.SessionView, error) {
	return s.record("pause", userID, token)
}

func (s *stubSessions) Resume(_ context.Context, userID int, token string) (*model.SessionView, error) {
	return s.record("resume", userID, token)
}

func (s *stubSessions) Submit(_ context.Context, userID int, token string) (*model.SessionView, error) {
	return s.record("submit", userID, token)
}

func (s *stubSessions) Abandon(_ context.Context, userID int, token string) (*model.SessionView, error) {
	return s.record("abandon", userID, token)
}

func (s *stubSessions) set(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

func (s *stubSessions) inputs() []engine.AnswerInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastInputs
}

func (s *stubSessions) number() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastNumber
}

func (s *stubSessions) lastCall() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return ""
	}
	return s.calls[len(s.calls)-1]
}

func inProgressView() *model.SessionView {
	limit, remaining := 600, 540
	return &model.SessionView{
		SessionToken:         "tok-1",
		QuizID:               uuid.MustParse("6f1c1f7e-8b8e-4d55-9d3e-1a2b3c4d5e6f"),
		UserID:               7,
		Mode:                 model.ModeExam,
		Status:               model.SessionStatusInProgress,
		TimeLimitSeconds:     &limit,
		TimeRemainingSeconds: &remaining,
		ExamElapsedSeconds:   60,
	}
}
