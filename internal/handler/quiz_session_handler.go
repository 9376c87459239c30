package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quiz/internal/engine"
	"github.com/stemsi/exstem-quiz/internal/middleware"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/response"
	"github.com/stemsi/exstem-quiz/internal/validator"
)

// SessionService is the session API consumed by the HTTP and WebSocket handlers.
type SessionService interface {
	Start(ctx context.Context, userID int, quizID uuid.UUID) (*model.SessionView, error)
	GetState(ctx context.Context, userID int, token string) (*model.SessionView, error)
	GetResult(ctx context.Context, userID int, token string) (*model.SubmissionResult, error)
	Heartbeat(ctx context.Context, userID int, token string) (*model.SessionView, error)
	SaveAnswer(ctx context.Context, userID int, token string, in engine.AnswerInput) (*model.SessionView, error)
	SaveAnswers(ctx context.Context, userID int, token string, inputs []engine.AnswerInput) (*model.SessionView, error)
	Navigate(ctx context.Context, userID int, token string, questionNumber int) (*model.SessionView, error)
	Flag(ctx context.Context, userID int, token string, qid uuid.UUID, flagged bool) (*model.SessionView, error)
	Pause(ctx context.Context, userID int, token string) (*model.SessionView, error)
	Resume(ctx context.Context, userID int, token string) (*model.SessionView, error)
	Submit(ctx context.Context, userID int, token string) (*model.SessionView, error)
	Abandon(ctx context.Context, userID int, token string) (*model.SessionView, error)
}

// QuizSessionHandler handles the quiz-taking endpoints.
type QuizSessionHandler struct {
	sessions SessionService
	log      zerolog.Logger
}

// NewQuizSessionHandler creates a new QuizSessionHandler.
func NewQuizSessionHandler(sessions SessionService, log zerolog.Logger) *QuizSessionHandler {
	return &QuizSessionHandler{
		sessions: sessions,
		log:      log.With().Str("component", "quiz_session_handler").Logger(),
	}
}

// StartSession godoc
// POST /api/v1/quizzes/:quiz_id/sessions
// Snapshots the quiz and opens a new session for the caller.
func (h *QuizSessionHandler) StartSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	quizID, err := uuid.Parse(c.Param("quiz_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	view, err := h.sessions.Start(c.Request.Context(), claims.UserID, quizID)
	if err != nil {
		h.failSession(c, view, err)
		return
	}

	response.Success(c, http.StatusCreated, view)
}

// GetState godoc
// GET /api/v1/sessions/state
// Returns the current view with server-computed timing.
func (h *QuizSessionHandler) GetState(c *gin.Context) {
	h.run(c, func(ctx context.Context, userID int, token string) (*model.SessionView, error) {
		return h.sessions.GetState(ctx, userID, token)
	})
}

// Heartbeat godoc
// POST /api/v1/sessions/heartbeat
func (h *QuizSessionHandler) Heartbeat(c *gin.Context) {
	h.run(c, func(ctx context.Context, userID int, token string) (*model.SessionView, error) {
		return h.sessions.Heartbeat(ctx, userID, token)
	})
}

// SaveAnswer godoc
// PUT /api/v1/sessions/answers/:question_id
// Upserts one answer. A null answer clears it.
func (h *QuizSessionHandler) SaveAnswer(c *gin.Context) {
	qid, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SaveAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	in := engine.AnswerInput{QuizQuestionID: qid, Raw: req.Answer, TimeSpentSeconds: req.TimeSpentSeconds}
	h.run(c, func(ctx context.Context, userID int, token string) (*model.SessionView, error) {
		return h.sessions.SaveAnswer(ctx, userID, token, in)
	})
}

// SaveAnswers godoc
// PUT /api/v1/sessions/answers
// Upserts a batch of answers. Either all of them are stored or none.
func (h *QuizSessionHandler) SaveAnswers(c *gin.Context) {
	var req model.SaveAnswersRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	inputs := make([]engine.AnswerInput, 0, len(req.Answers))
	for _, item := range req.Answers {
		qid, err := uuid.Parse(item.QuizQuestionID)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		inputs = append(inputs, engine.AnswerInput{QuizQuestionID: qid, Raw: item.Answer, TimeSpentSeconds: item.TimeSpentSeconds})
	}

	h.run(c, func(ctx context.Context, userID int, token string) (*model.SessionView, error) {
		return h.sessions.SaveAnswers(ctx, userID, token, inputs)
	})
}

// Navigate godoc
// POST /api/v1/sessions/navigate
func (h *QuizSessionHandler) Navigate(c *gin.Context) {
	var req model.NavigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	h.run(c, func(ctx context.Context, userID int, token string) (*model.SessionView, error) {
		return h.sessions.Navigate(ctx, userID, token, req.QuestionNumber)
	})
}

// Flag godoc
// PUT /api/v1/sessions/flags/:question_id
func (h *QuizSessionHandler) Flag(c *gin.Context) {
	qid, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.FlagRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	h.run(c, func(ctx context.Context, userID int, token string) (*model.SessionView, error) {
		return h.sessions.Flag(ctx, userID, token, qid, *req.IsFlagged)
	})
}

// Pause godoc
// POST /api/v1/sessions/pause
func (h *QuizSessionHandler) Pause(c *gin.Context) {
	h.run(c, func(ctx context.Context, userID int, token string) (*model.SessionView, error) {
		return h.sessions.Pause(ctx, userID, token)
	})
}

// Resume godoc
// POST /api/v1/sessions/resume
func (h *QuizSessionHandler) Resume(c *gin.Context) {
	h.run(c, func(ctx context.Context, userID int, token string) (*model.SessionView, error) {
		return h.sessions.Resume(ctx, userID, token)
	})
}

// Submit godoc
// POST /api/v1/sessions/submit
// Grades and finalizes the session. Repeating it replays the stored result.
func (h *QuizSessionHandler) Submit(c *gin.Context) {
	h.run(c, func(ctx context.Context, userID int, token string) (*model.SessionView, error) {
		return h.sessions.Submit(ctx, userID, token)
	})
}

// Abandon godoc
// POST /api/v1/sessions/abandon
func (h *QuizSessionHandler) Abandon(c *gin.Context) {
	h.run(c, func(ctx context.Context, userID int, token string) (*model.SessionView, error) {
		return h.sessions.Abandon(ctx, userID, token)
	})
}

// GetResult godoc
// GET /api/v1/sessions/result
func (h *QuizSessionHandler) GetResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	result, err := h.sessions.GetResult(c.Request.Context(), claims.UserID, middleware.GetSessionToken(c))
	if err != nil {
		h.failSession(c, nil, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

type sessionCall func(ctx context.Context, userID int, token string) (*model.SessionView, error)

// run resolves the caller and session token, invokes fn and writes the view.
func (h *QuizSessionHandler) run(c *gin.Context, fn sessionCall) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	token := middleware.GetSessionToken(c)
	if token == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrSessionTokenNeeded)
		return
	}

	view, err := fn(c.Request.Context(), claims.UserID, token)
	if err != nil {
		h.failSession(c, view, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}
