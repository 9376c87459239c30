package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	log := Session(New(&buf, "debug", "json"), "tok-1", 9, "quiz-1")

	log.Info().Str("transition", "submitted").Msg("session finalized")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "tok-1", entry["session_token"])
	assert.Equal(t, float64(9), entry["user_id"])
	assert.Equal(t, "quiz-1", entry["quiz_id"])
	assert.Equal(t, "quiz-session", entry["service"])
	assert.Equal(t, "info", entry["level"])
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "chatty", "json")

	log.Debug().Msg("hidden")
	assert.Zero(t, buf.Len())

	log.Info().Msg("shown")
	assert.NotZero(t, buf.Len())
}
