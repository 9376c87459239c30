package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-quiz/internal/engine"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/response"
	"github.com/stemsi/exstem-quiz/internal/service"
)

// failure is the transport-neutral classification of a session error.
type failure struct {
	status int
	code   response.ErrCode
	fields map[string]string
	// data replaces the session view in the error payload when set.
	data interface{}
}

// classify maps engine and service errors onto API error codes.
func classify(err error) failure {
	var (
		terminal  *engine.TerminalSessionError
		notYet    *engine.PauseNotEligibleError
		activeErr *service.AlreadyActiveError
	)

	switch {
	// ─── Validation ────────────────────────────────────────────────────
	case errors.Is(err, engine.ErrInvalidAnswerShape):
		return failure{status: http.StatusBadRequest, code: response.ErrInvalidAnswerShape, fields: map[string]string{"answer": err.Error()}}
	case errors.Is(err, engine.ErrOutOfRange):
		return failure{status: http.StatusBadRequest, code: response.ErrOutOfRange}

	// ─── Resources ─────────────────────────────────────────────────────
	case errors.Is(err, service.ErrSessionNotFound):
		return failure{status: http.StatusNotFound, code: response.ErrSessionNotFound}
	case errors.Is(err, engine.ErrQuestionNotFound):
		return failure{status: http.StatusNotFound, code: response.ErrQuestionNotFound}
	case errors.Is(err, service.ErrQuizUnavailable), errors.Is(err, engine.ErrNoQuestions):
		return failure{status: http.StatusNotFound, code: response.ErrQuizUnavailable}
	case errors.Is(err, service.ErrResultNotAvailable):
		return failure{status: http.StatusNotFound, code: response.ErrResultNotReady}

	// ─── Session policy ────────────────────────────────────────────────
	case errors.As(err, &activeErr):
		return failure{status: http.StatusConflict, code: response.ErrAlreadyActive, data: gin.H{"session_token": activeErr.SessionToken}}
	case errors.Is(err, service.ErrAttemptLimitReached):
		return failure{status: http.StatusConflict, code: response.ErrAttemptLimit}
	case errors.As(err, &terminal):
		return failure{status: http.StatusConflict, code: response.ErrSessionTerminal, fields: map[string]string{"status": string(terminal.Status)}}
	case errors.Is(err, engine.ErrTerminalSession):
		return failure{status: http.StatusConflict, code: response.ErrSessionTerminal}
	case errors.Is(err, engine.ErrSessionPaused):
		return failure{status: http.StatusConflict, code: response.ErrSessionPaused}
	case errors.Is(err, engine.ErrNotPaused):
		return failure{status: http.StatusConflict, code: response.ErrSessionNotPaused}
	case errors.Is(err, engine.ErrAlreadyPaused):
		return failure{status: http.StatusConflict, code: response.ErrSessionAlreadyPause}
	case errors.As(err, &notYet):
		return failure{status: http.StatusUnprocessableEntity, code: response.ErrPauseNotEligible, fields: map[string]string{"answers_remaining": strconv.Itoa(notYet.Remaining)}}

	// ─── Contention ────────────────────────────────────────────────────
	case errors.Is(err, service.ErrSessionBusy):
		return failure{status: http.StatusConflict, code: response.ErrSessionBusy}

	default:
		return failure{status: http.StatusInternalServerError, code: response.ErrInternal}
	}
}

// failSession writes err as an API error. The session view, when the service
// returned one, travels in data so the client can resync without another call.
func (h *QuizSessionHandler) failSession(c *gin.Context, view *model.SessionView, err error) {
	f := classify(err)
	if f.status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("Session operation failed")
		response.Fail(c, f.status, f.code)
		return
	}
	if f.code == response.ErrSessionBusy {
		c.Header("Retry-After", "1")
	}

	data := f.data
	if data == nil && view != nil {
		data = view
	}
	if data == nil {
		response.FailWithFields(c, f.status, f.code, f.fields)
		return
	}
	response.FailWithData(c, f.status, f.code, data, f.fields)
}
