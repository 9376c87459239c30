package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bindBody(t *testing.T, body string, dst any) map[string]string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	Setup()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPut, "/sessions/answers", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return Bind(c, dst)
}

func TestBulkItemErrorsKeepTheirIndex(t *testing.T) {
	body := `{"answers":[
		{"quiz_question_id":"not-a-uuid","answer":null},
		{"quiz_question_id":"8d4f3b1e-6a0c-4f5e-9b62-0c1d2e3f4a5b","answer":null,"time_spent_seconds":-1}
	]}`

	var req model.SaveAnswersRequest
	fields := bindBody(t, body, &req)
	require.NotNil(t, fields)

	assert.Contains(t, fields, "answers[0].quiz_question_id")
	assert.Contains(t, fields, "answers[1].time_spent_seconds")
	assert.NotContains(t, fields, "quiz_question_id")
	assert.NotContains(t, fields, "time_spent_seconds")
}

func TestTopLevelFieldUsesJSONName(t *testing.T) {
	var req model.NavigateRequest
	fields := bindBody(t, `{"question_number":0}`, &req)
	require.NotNil(t, fields)
	assert.Contains(t, fields, "question_number")
}

func TestTypeMismatchIsKeyedByField(t *testing.T) {
	var req model.NavigateRequest
	fields := bindBody(t, `{"question_number":"two"}`, &req)
	require.NotNil(t, fields)
	assert.Contains(t, fields, "question_number")
}

func TestMalformedJSONFallsBackToDetail(t *testing.T) {
	var req model.NavigateRequest
	fields := bindBody(t, `{`, &req)
	require.NotNil(t, fields)
	assert.Contains(t, fields, "detail")
}

func TestValidBodyBinds(t *testing.T) {
	var req model.NavigateRequest
	assert.Nil(t, bindBody(t, `{"question_number":2}`, &req))
	assert.Equal(t, 2, req.QuestionNumber)
}
