package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-quiz/internal/model"
)

var ErrQuizNotFound = errors.New("quiz not found")

// QuizRepository reads quiz definitions from the catalog tables.
type QuizRepository struct {
	pool *pgxpool.Pool
}

// NewQuizRepository creates a new QuizRepository.
func NewQuizRepository(pool *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{pool: pool}
}

// GetDefinition loads a quiz with its policy and questions ordered by order_num.
func (r *QuizRepository) GetDefinition(ctx context.Context, id uuid.UUID) (*model.QuizDefinition, error) {
	q := &model.QuizDefinition{}
	p := &q.Policy
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, status, mode, time_limit_seconds, pause_after_questions,
		        pause_duration_limit_seconds, auto_pause_after_questions, shuffle_questions,
		        shuffle_options, allow_multiple_attempts, max_attempts, updated_at
		 FROM quizzes WHERE id = $1`, id,
	).Scan(&q.ID, &q.Title, &q.Status, &p.Mode, &p.TimeLimitSeconds, &p.PauseAfterQuestions,
		&p.PauseDurationLimitSeconds, &p.AutoPauseAfterQuestions, &p.ShuffleQuestions,
		&p.ShuffleOptions, &p.AllowMultipleAttempts, &p.MaxAttempts, &q.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuizNotFound
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, question_type, prompt, options, correct_answer, order_num
		 FROM quiz_questions WHERE quiz_id = $1
		 ORDER BY order_num, id`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var cq model.CatalogQuestion
		var opts, correct []byte
		if err := rows.Scan(&cq.ID, &cq.QuestionType, &cq.Prompt, &opts, &correct, &cq.OrderNum); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(opts, &cq.Options); err != nil {
			return nil, fmt.Errorf("question %s options: %w", cq.ID, err)
		}
		if cq.CorrectAnswer, err = model.DecodeAnswer(cq.QuestionType, correct); err != nil {
			return nil, fmt.Errorf("question %s correct answer: %w", cq.ID, err)
		}
		q.Questions = append(q.Questions, cq)
	}
	return q, rows.Err()
}

// Create inserts a quiz and its questions in one transaction.
func (r *QuizRepository) Create(ctx context.Context, q *model.QuizDefinition) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	p := q.Policy
	err = tx.QueryRow(ctx,
		`INSERT INTO quizzes (title, status, mode, time_limit_seconds, pause_after_questions,
		                      pause_duration_limit_seconds, auto_pause_after_questions, shuffle_questions,
		                      shuffle_options, allow_multiple_attempts, max_attempts)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, updated_at`,
		q.Title, q.Status, p.Mode, p.TimeLimitSeconds, p.PauseAfterQuestions,
		p.PauseDurationLimitSeconds, p.AutoPauseAfterQuestions, p.ShuffleQuestions,
		p.ShuffleOptions, p.AllowMultipleAttempts, p.MaxAttempts,
	).Scan(&q.ID, &q.UpdatedAt)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for i := range q.Questions {
		cq := &q.Questions[i]
		opts, err := json.Marshal(cq.Options)
		if err != nil {
			return err
		}
		correct, err := json.Marshal(cq.CorrectAnswer)
		if err != nil {
			return err
		}
		batch.Queue(
			`INSERT INTO quiz_questions (quiz_id, question_type, prompt, options, correct_answer, order_num)
			 VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6)
			 RETURNING id`,
			q.ID, cq.QuestionType, cq.Prompt, opts, correct, cq.OrderNum,
		).QueryRow(func(row pgx.Row) error {
			return row.Scan(&cq.ID)
		})
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
