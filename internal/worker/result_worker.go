package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/metrics"
)

// ResultWorker upserts graded attempts into quiz_attempt_results, the
// reporting ledger. Abandoned sessions are never enqueued.
type ResultWorker struct {
	pool     *pgxpool.Pool
	consumer *batchConsumer[resultPayload]
	log      zerolog.Logger
}

// NewResultWorker creates a new ResultWorker.
func NewResultWorker(pool *pgxpool.Pool, rdb redis.UniversalClient, log zerolog.Logger) *ResultWorker {
	w := &ResultWorker{
		pool: pool,
		log:  log.With().Str("component", "result_worker").Logger(),
	}
	w.consumer = &batchConsumer[resultPayload]{
		rdb:   rdb,
		queue: config.WorkerKey.PersistResultsQueue,
		flush: w.flush,
		log:   w.log,
	}
	return w
}

// Start begins the worker loop. Call in a goroutine.
func (w *ResultWorker) Start(ctx context.Context) {
	w.consumer.run(ctx)
}

func (w *ResultWorker) flush(ctx context.Context, batch []*resultPayload) []*resultPayload {
	if err := w.bulkUpsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk result upsert failed, using fallback")

		var retry []*resultPayload
		for _, p := range batch {
			if err := w.persistSingle(ctx, p); err != nil {
				w.log.Error().Err(err).Str("session_token", p.SessionToken).Msg("persistSingle failed, requeueing")
				retry = append(retry, p)
				continue
			}
			metrics.WorkerFlushed.WithLabelValues("result").Inc()
		}
		return retry
	}
	metrics.WorkerFlushed.WithLabelValues("result").Add(float64(len(batch)))
	return nil
}

// bulkUpsert writes the whole batch with one UNNEST statement. A session's
// result is immutable, so a replayed row overwrites with identical values.
func (w *ResultWorker) bulkUpsert(ctx context.Context, batch []*resultPayload) error {
	n := len(batch)
	tokens := make([]string, 0, n)
	quizIDs := make([]uuid.UUID, 0, n)
	users := make([]int, 0, n)
	scores := make([]float64, 0, n)
	correct := make([]int, 0, n)
	totals := make([]int, 0, n)
	triggers := make([]string, 0, n)
	submittedAts := make([]time.Time, 0, n)

	for _, p := range dedupe(batch) {
		tokens = append(tokens, p.SessionToken)
		quizIDs = append(quizIDs, p.QuizID)
		users = append(users, p.UserID)
		scores = append(scores, p.Score)
		correct = append(correct, p.CorrectCount)
		totals = append(totals, p.TotalQuestions)
		triggers = append(triggers, string(p.Trigger))
		submittedAts = append(submittedAts, p.SubmittedAt)
	}

	query := `
		INSERT INTO quiz_attempt_results
			(session_token, quiz_id, user_id, score, correct_count, total_questions, trigger, submitted_at)
		SELECT *
		FROM UNNEST(
			$1::varchar[],
			$2::uuid[],
			$3::int[],
			$4::float8[],
			$5::int[],
			$6::int[],
			$7::varchar[],
			$8::timestamptz[]
		)
		ON CONFLICT (session_token) DO UPDATE
		SET score = EXCLUDED.score,
		    correct_count = EXCLUDED.correct_count,
		    total_questions = EXCLUDED.total_questions,
		    trigger = EXCLUDED.trigger,
		    submitted_at = EXCLUDED.submitted_at
	`

	_, err := w.pool.Exec(ctx, query, tokens, quizIDs, users, scores, correct, totals, triggers, submittedAts)
	return err
}

func (w *ResultWorker) persistSingle(ctx context.Context, p *resultPayload) error {
	_, err := w.pool.Exec(ctx,
		`INSERT INTO quiz_attempt_results
			(session_token, quiz_id, user_id, score, correct_count, total_questions, trigger, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (session_token) DO NOTHING`,
		p.SessionToken, p.QuizID, p.UserID, p.Score, p.CorrectCount, p.TotalQuestions, p.Trigger, p.SubmittedAt,
	)
	return err
}

// dedupe keeps the last payload per session; ON CONFLICT cannot touch one row twice.
func dedupe(batch []*resultPayload) []*resultPayload {
	seen := make(map[string]int, len(batch))
	out := make([]*resultPayload, 0, len(batch))
	for _, p := range batch {
		if i, ok := seen[p.SessionToken]; ok {
			out[i] = p
			continue
		}
		seen[p.SessionToken] = len(out)
		out = append(out, p)
	}
	return out
}
