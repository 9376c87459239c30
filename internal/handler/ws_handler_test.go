package handler

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quiz/internal/middleware"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialStream(t *testing.T, stub *stubSessions) *websocket.Conn {
	t.Helper()
	h := NewWSHandler(stub, nil, zerolog.Nop(), nil)

	r := gin.New()
	r.GET("/stream", func(c *gin.Context) {
		c.Set(middleware.ContextKeyClaims, &service.Claims{UserID: 7})
		c.Next()
	}, middleware.RequireSessionToken(), h.SessionStream)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream?session_token=tok-1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg map[string]json.RawMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func eventName(msg map[string]json.RawMessage) string {
	var s string
	_ = json.Unmarshal(msg["event"], &s)
	return s
}

func TestStreamSendsInitialStateAndHandlesActions(t *testing.T) {
	stub := &stubSessions{view: inProgressView()}
	conn := dialStream(t, stub)

	assert.Equal(t, "state", eventName(readEvent(t, conn)))

	require.NoError(t, conn.WriteJSON(map[string]any{"action": "heartbeat", "request_id": "r1"}))
	msg := readEvent(t, conn)
	assert.Equal(t, "state", eventName(msg))
	assert.JSONEq(t, `"r1"`, string(msg["request_id"]))

	qid := uuid.New()
	require.NoError(t, conn.WriteJSON(map[string]any{
		"action":           "save_answer",
		"quiz_question_id": qid.String(),
		"answer":           map[string]string{"option_id": "b"},
	}))
	msg = readEvent(t, conn)
	assert.Equal(t, "saved", eventName(msg))
	require.Len(t, stub.inputs(), 1)
	assert.Equal(t, qid, stub.inputs()[0].QuizQuestionID)

	require.NoError(t, conn.WriteJSON(map[string]any{"action": "navigate", "question_number": 3}))
	assert.Equal(t, "state", eventName(readEvent(t, conn)))
	assert.Equal(t, 3, stub.number())

	require.NoError(t, conn.WriteJSON(map[string]any{"action": "dance"}))
	msg = readEvent(t, conn)
	assert.Equal(t, "error", eventName(msg))
	assert.JSONEq(t, `"INVALID_PAYLOAD"`, string(msg["code"]))
}

func TestStreamRejectsBadQuestionID(t *testing.T) {
	stub := &stubSessions{view: inProgressView()}
	conn := dialStream(t, stub)
	readEvent(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]any{"action": "flag", "quiz_question_id": "nope", "is_flagged": true}))
	msg := readEvent(t, conn)
	assert.Equal(t, "error", eventName(msg))
	assert.JSONEq(t, `"INVALID_ID"`, string(msg["code"]))
	assert.NotEqual(t, "flag", stub.lastCall())
}

func TestStreamEndsWithTerminalEvent(t *testing.T) {
	stub := &stubSessions{view: inProgressView()}
	conn := dialStream(t, stub)
	readEvent(t, conn)

	stub.mu.Lock()
	final := inProgressView()
	final.Status = model.SessionStatusAutoSubmitted
	final.Result = &model.SubmissionResult{Score: 100, CorrectCount: 1, TotalQuestions: 1, Trigger: model.TriggerAutoExpiry}
	stub.view = final
	stub.mu.Unlock()

	require.NoError(t, conn.WriteJSON(map[string]any{"action": "heartbeat"}))
	msg := readEvent(t, conn)
	assert.Equal(t, "terminal", eventName(msg))
	assert.JSONEq(t, `"auto_submitted"`, string(msg["status"]))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestStreamRefusesUnknownSession(t *testing.T) {
	stub := &stubSessions{err: service.ErrSessionNotFound}
	h := NewWSHandler(stub, nil, zerolog.Nop(), nil)

	r := gin.New()
	r.GET("/stream", func(c *gin.Context) {
		c.Set(middleware.ContextKeyClaims, &service.Claims{UserID: 7})
		c.Next()
	}, middleware.RequireSessionToken(), h.SessionStream)
	srv := httptest.NewServer(r)
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/stream?session_token=x", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 404, resp.StatusCode)
}
