package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestCheckAll(t *testing.T) {
	status, ok := CheckAll(context.Background(), time.Second, map[string]Pinger{
		"postgres": stubPinger{},
		"redis":    stubPinger{err: errors.New("connection refused")},
	})

	assert.False(t, ok)
	assert.Equal(t, "ok", status["postgres"])
	assert.Equal(t, "connection refused", status["redis"])
}
