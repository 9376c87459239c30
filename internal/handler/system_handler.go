package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/database"
)

const healthTimeout = 2 * time.Second

// SystemHandler reports liveness of the backing stores and the depth of the
// write-behind queues.
type SystemHandler struct {
	stores    map[string]database.Pinger
	rdb       redis.UniversalClient
	startTime time.Time
	log       zerolog.Logger
}

// NewSystemHandler creates a new SystemHandler. rdb may be nil, in which case
// queue depths are omitted.
func NewSystemHandler(stores map[string]database.Pinger, rdb redis.UniversalClient, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		stores:    stores,
		rdb:       rdb,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

type healthReport struct {
	Status     string            `json:"status"`
	Stores     map[string]string `json:"stores"`
	Queues     map[string]int64  `json:"queues,omitempty"`
	Uptime     string            `json:"uptime"`
	Goroutines int               `json:"goroutines"`
	GoVersion  string            `json:"go_version"`
}

// Health godoc
// GET /health
// Returns 200 when every store answers a ping, 503 otherwise.
func (h *SystemHandler) Health(c *gin.Context) {
	stores, healthy := database.CheckAll(c.Request.Context(), healthTimeout, h.stores)

	report := healthReport{
		Status:     "ok",
		Stores:     stores,
		Queues:     h.queueDepths(c.Request.Context()),
		Uptime:     time.Since(h.startTime).Truncate(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
		GoVersion:  runtime.Version(),
	}

	status := http.StatusOK
	if !healthy {
		report.Status = "degraded"
		status = http.StatusServiceUnavailable
		h.log.Warn().Interface("stores", stores).Msg("Health check failed")
	}
	c.JSON(status, report)
}

// queueDepths reads both persistence queue lengths in one pipeline.
func (h *SystemHandler) queueDepths(ctx context.Context) map[string]int64 {
	if h.rdb == nil {
		return nil
	}

	pipe := h.rdb.Pipeline()
	answersCmd := pipe.LLen(ctx, config.WorkerKey.PersistAnswerEventsQueue)
	resultsCmd := pipe.LLen(ctx, config.WorkerKey.PersistResultsQueue)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil
	}

	answers, _ := answersCmd.Result()
	results, _ := resultsCmd.Result()
	return map[string]int64{
		config.WorkerKey.PersistAnswerEventsQueue: answers,
		config.WorkerKey.PersistResultsQueue:      results,
	}
}
