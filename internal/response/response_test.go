package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestEnvelopeCarriesRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ok", func(c *gin.Context) { Success(c, http.StatusOK, gin.H{"x": 1}) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set("X-Request-ID", "req-42")
	r.ServeHTTP(w, req)

	var env Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "req-42", env.Metadata.RequestID)
	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
	assert.Nil(t, env.Error)
}

func TestFailWithDataKeepsPayload(t *testing.T) {
	r := gin.New()
	r.GET("/done", func(c *gin.Context) {
		FailWithData(c, http.StatusConflict, ErrSessionTerminal, gin.H{"status": "submitted"}, map[string]string{"status": "submitted"})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/done", nil))

	assert.Equal(t, http.StatusConflict, w.Code)
	var env struct {
		Data  map[string]string `json:"data"`
		Error ErrorBody         `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "submitted", env.Data["status"])
	assert.Equal(t, ErrSessionTerminal, env.Error.Code)
	assert.Equal(t, GetMessage(ErrSessionTerminal), env.Error.Message)
	assert.NotEmpty(t, env.Error.Message)
}

func TestEveryCodeHasMessage(t *testing.T) {
	fallback := GetMessage("UNKNOWN_CODE")
	codes := []ErrCode{
		ErrTokenRequired, ErrTokenInvalid, ErrTokenExpired,
		ErrValidation, ErrInvalidID, ErrInvalidPayload, ErrSessionTokenNeeded, ErrInvalidAnswerShape, ErrOutOfRange,
		ErrNotFound, ErrSessionNotFound, ErrQuestionNotFound, ErrQuizUnavailable, ErrResultNotReady,
		ErrAlreadyActive, ErrAttemptLimit, ErrSessionTerminal, ErrSessionPaused, ErrSessionNotPaused,
		ErrSessionAlreadyPause, ErrPauseNotEligible, ErrSessionBusy, ErrRateLimitExceeded, ErrInternal,
	}
	for _, code := range codes {
		assert.NotEqual(t, fallback, GetMessage(code), code)
	}
}
