package worker

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/metrics"
)

// AnswerLogWorker appends accepted answer writes to session_answer_events.
// The session row already holds the latest answers; this is the history.
type AnswerLogWorker struct {
	pool     *pgxpool.Pool
	consumer *batchConsumer[answerEventPayload]
	log      zerolog.Logger
}

// NewAnswerLogWorker creates a new AnswerLogWorker.
func NewAnswerLogWorker(pool *pgxpool.Pool, rdb redis.UniversalClient, log zerolog.Logger) *AnswerLogWorker {
	w := &AnswerLogWorker{
		pool: pool,
		log:  log.With().Str("component", "answer_log_worker").Logger(),
	}
	w.consumer = &batchConsumer[answerEventPayload]{
		rdb:   rdb,
		queue: config.WorkerKey.PersistAnswerEventsQueue,
		flush: w.flush,
		log:   w.log,
	}
	return w
}

// Start begins the worker loop. Call in a goroutine.
func (w *AnswerLogWorker) Start(ctx context.Context) {
	w.consumer.run(ctx)
}

func (w *AnswerLogWorker) flush(ctx context.Context, batch []*answerEventPayload) []*answerEventPayload {
	if err := w.bulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
		return w.fallbackInsert(ctx, batch)
	}
	metrics.WorkerFlushed.WithLabelValues("answer_log").Add(float64(len(batch)))
	return nil
}

func (w *AnswerLogWorker) bulkInsert(ctx context.Context, batch []*answerEventPayload) error {
	rows := make([][]interface{}, 0, len(batch))
	for _, p := range batch {
		rows = append(rows, []interface{}{
			p.SessionToken, p.QuizQuestionID, []byte(p.Answer), p.TimeSpentSeconds, p.RecordedAt,
		})
	}

	_, err := w.pool.CopyFrom(
		ctx,
		pgx.Identifier{"session_answer_events"},
		[]string{"session_token", "quiz_question_id", "answer", "time_spent_seconds", "recorded_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

func (w *AnswerLogWorker) fallbackInsert(ctx context.Context, batch []*answerEventPayload) []*answerEventPayload {
	var retry []*answerEventPayload
	for _, p := range batch {
		_, err := w.pool.Exec(ctx,
			`INSERT INTO session_answer_events (session_token, quiz_question_id, answer, time_spent_seconds, recorded_at)
			 VALUES ($1, $2, $3::jsonb, $4, $5)`,
			p.SessionToken, p.QuizQuestionID, []byte(p.Answer), p.TimeSpentSeconds, p.RecordedAt,
		)
		if err != nil {
			w.log.Error().Err(err).Str("session_token", p.SessionToken).Msg("Insert failed, requeueing")
			retry = append(retry, p)
			continue
		}
		metrics.WorkerFlushed.WithLabelValues("answer_log").Inc()
	}
	return retry
}
