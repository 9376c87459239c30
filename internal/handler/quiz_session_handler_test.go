package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quiz/internal/engine"
	"github.com/stemsi/exstem-quiz/internal/middleware"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/response"
	"github.com/stemsi/exstem-quiz/internal/service"
	"github.com/stemsi/exstem-quiz/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Setup()
}

type envelope struct {
	Data  json.RawMessage     `json:"data"`
	Error *response.ErrorBody `json:"error"`
}

// newTestRouter mounts the session routes behind a stub identity of user 7.
func newTestRouter(stub *stubSessions) *gin.Engine {
	h := NewQuizSessionHandler(stub, zerolog.Nop())

	r := gin.New()
	r.Use(response.RequestIDMiddleware(), func(c *gin.Context) {
		c.Set(middleware.ContextKeyClaims, &service.Claims{UserID: 7})
		c.Next()
	})
	r.POST("/quizzes/:quiz_id/sessions", h.StartSession)

	s := r.Group("/sessions", middleware.RequireSessionToken())
	s.GET("/state", h.GetState)
	s.GET("/result", h.GetResult)
	s.POST("/heartbeat", h.Heartbeat)
	s.PUT("/answers", h.SaveAnswers)
	s.PUT("/answers/:question_id", h.SaveAnswer)
	s.POST("/navigate", h.Navigate)
	s.PUT("/flags/:question_id", h.Flag)
	s.POST("/pause", h.Pause)
	s.POST("/resume", h.Resume)
	s.POST("/submit", h.Submit)
	s.POST("/abandon", h.Abandon)
	return r
}

func do(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set(middleware.HeaderSessionToken, "tok-1")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func TestStartSession(t *testing.T) {
	stub := &stubSessions{view: inProgressView()}
	r := newTestRouter(stub)
	quizID := uuid.New()

	w, env := do(t, r, http.MethodPost, "/quizzes/"+quizID.String()+"/sessions", "")

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Nil(t, env.Error)
	assert.Equal(t, quizID, stub.lastQuizID)
	assert.Equal(t, 7, stub.lastUser)

	var view model.SessionView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, "tok-1", view.SessionToken)
}

func TestStartSessionRejectsBadQuizID(t *testing.T) {
	stub := &stubSessions{}
	w, env := do(t, newTestRouter(stub), http.MethodPost, "/quizzes/nope/sessions", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.ErrInvalidID, env.Error.Code)
	assert.Empty(t, stub.calls)
}

func TestStartSessionAlreadyActiveCarriesToken(t *testing.T) {
	stub := &stubSessions{err: &service.AlreadyActiveError{SessionToken: "existing"}}
	w, env := do(t, newTestRouter(stub), http.MethodPost, "/quizzes/"+uuid.NewString()+"/sessions", "")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, response.ErrAlreadyActive, env.Error.Code)
	assert.JSONEq(t, `{"session_token":"existing"}`, string(env.Data))
}

func TestSessionRoutesDispatch(t *testing.T) {
	qid := uuid.New()
	tests := []struct {
		method, path, body, op string
	}{
		{http.MethodGet, "/sessions/state", "", "state"},
		{http.MethodPost, "/sessions/heartbeat", "", "heartbeat"},
		{http.MethodPut, "/sessions/answers/" + qid.String(), `{"answer":{"option_id":"a"},"time_spent_seconds":3}`, "save_answer"},
		{http.MethodPut, "/sessions/answers", `{"answers":[{"quiz_question_id":"` + qid.String() + `","answer":null}]}`, "save_answers"},
		{http.MethodPost, "/sessions/navigate", `{"question_number":2}`, "navigate"},
		{http.MethodPut, "/sessions/flags/" + qid.String(), `{"is_flagged":true}`, "flag"},
		{http.MethodPost, "/sessions/pause", "", "pause"},
		{http.MethodPost, "/sessions/resume", "", "resume"},
		{http.MethodPost, "/sessions/submit", "", "submit"},
		{http.MethodPost, "/sessions/abandon", "", "abandon"},
	}

	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			stub := &stubSessions{view: inProgressView()}
			w, env := do(t, newTestRouter(stub), tt.method, tt.path, tt.body)

			assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Nil(t, env.Error)
			assert.Equal(t, tt.op, stub.lastCall())
			assert.Equal(t, "tok-1", stub.lastToken)
		})
	}
}

func TestSaveAnswerPassesRawAnswer(t *testing.T) {
	stub := &stubSessions{view: inProgressView()}
	qid := uuid.New()

	_, _ = do(t, newTestRouter(stub), http.MethodPut, "/sessions/answers/"+qid.String(),
		`{"answer":{"option_ids":["a","c"]},"time_spent_seconds":12}`)

	require.Len(t, stub.lastInputs, 1)
	in := stub.lastInputs[0]
	assert.Equal(t, qid, in.QuizQuestionID)
	assert.JSONEq(t, `{"option_ids":["a","c"]}`, string(in.Raw))
	assert.Equal(t, 12, in.TimeSpentSeconds)
}

func TestRequestValidation(t *testing.T) {
	tests := []struct {
		name, method, path, body string
		code                     response.ErrCode
	}{
		{"missing answer", http.MethodPut, "/sessions/answers/" + uuid.NewString(), `{"time_spent_seconds":1}`, response.ErrValidation},
		{"negative time", http.MethodPut, "/sessions/answers/" + uuid.NewString(), `{"answer":null,"time_spent_seconds":-1}`, response.ErrValidation},
		{"bad question id", http.MethodPut, "/sessions/answers/xyz", `{"answer":null}`, response.ErrInvalidID},
		{"empty bulk", http.MethodPut, "/sessions/answers", `{"answers":[]}`, response.ErrValidation},
		{"bulk bad id", http.MethodPut, "/sessions/answers", `{"answers":[{"quiz_question_id":"nope","answer":null}]}`, response.ErrValidation},
		{"navigate zero", http.MethodPost, "/sessions/navigate", `{"question_number":0}`, response.ErrValidation},
		{"flag missing", http.MethodPut, "/sessions/flags/" + uuid.NewString(), `{}`, response.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubSessions{view: inProgressView()}
			w, env := do(t, newTestRouter(stub), tt.method, tt.path, tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
			assert.Empty(t, stub.calls)
		})
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   response.ErrCode
	}{
		{"not found", service.ErrSessionNotFound, http.StatusNotFound, response.ErrSessionNotFound},
		{"paused", engine.ErrSessionPaused, http.StatusConflict, response.ErrSessionPaused},
		{"not paused", engine.ErrNotPaused, http.StatusConflict, response.ErrSessionNotPaused},
		{"already paused", engine.ErrAlreadyPaused, http.StatusConflict, response.ErrSessionAlreadyPause},
		{"out of range", engine.ErrOutOfRange, http.StatusBadRequest, response.ErrOutOfRange},
		{"unknown question", engine.ErrQuestionNotFound, http.StatusNotFound, response.ErrQuestionNotFound},
		{"bad shape", fmt.Errorf("%w: option z", engine.ErrInvalidAnswerShape), http.StatusBadRequest, response.ErrInvalidAnswerShape},
		{"busy", service.ErrSessionBusy, http.StatusConflict, response.ErrSessionBusy},
		{"attempts", service.ErrAttemptLimitReached, http.StatusConflict, response.ErrAttemptLimit},
		{"unexpected", fmt.Errorf("persist session: boom"), http.StatusInternalServerError, response.ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubSessions{err: tt.err}
			w, env := do(t, newTestRouter(stub), http.MethodPost, "/sessions/heartbeat", "")

			assert.Equal(t, tt.status, w.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestBusySetsRetryAfter(t *testing.T) {
	stub := &stubSessions{err: service.ErrSessionBusy}
	w, _ := do(t, newTestRouter(stub), http.MethodPost, "/sessions/pause", "")
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestPauseNotEligibleReportsRemaining(t *testing.T) {
	stub := &stubSessions{view: inProgressView(), err: &engine.PauseNotEligibleError{Remaining: 3}}
	w, env := do(t, newTestRouter(stub), http.MethodPost, "/sessions/pause", "")

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, response.ErrPauseNotEligible, env.Error.Code)
	assert.Equal(t, "3", env.Error.Fields["answers_remaining"])
	assert.NotEqual(t, "null", string(env.Data))
}

func TestTerminalStateCarriesViewAndResult(t *testing.T) {
	view := inProgressView()
	view.Status = model.SessionStatusSubmitted
	view.TimeRemainingSeconds = nil
	view.Result = &model.SubmissionResult{Score: 75, CorrectCount: 3, TotalQuestions: 4, Trigger: model.TriggerManual}

	stub := &stubSessions{view: view, err: &engine.TerminalSessionError{Status: view.Status, Result: view.Result}}
	w, env := do(t, newTestRouter(stub), http.MethodGet, "/sessions/state", "")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, response.ErrSessionTerminal, env.Error.Code)
	assert.Equal(t, "submitted", env.Error.Fields["status"])

	var got model.SessionView
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.NotNil(t, got.Result)
	assert.Equal(t, 75.0, got.Result.Score)
}

func TestGetResult(t *testing.T) {
	stub := &stubSessions{result: &model.SubmissionResult{Score: 50, CorrectCount: 1, TotalQuestions: 2}}
	w, env := do(t, newTestRouter(stub), http.MethodGet, "/sessions/result", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var res model.SubmissionResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 50.0, res.Score)

	stub = &stubSessions{err: service.ErrResultNotAvailable}
	w, env = do(t, newTestRouter(stub), http.MethodGet, "/sessions/result", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, response.ErrResultNotReady, env.Error.Code)
}
