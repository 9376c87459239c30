package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-quiz/internal/model"
)

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrActiveSessionExists = errors.New("an active session already exists for this user and quiz")
	ErrVersionConflict     = errors.New("session was modified concurrently")
)

const sessionColumns = `session_token, quiz_id, user_id, mode, status, time_limit_seconds,
	exam_elapsed_seconds, pause_elapsed_seconds, current_question_index,
	started_at, last_heartbeat_at, finished_at,
	policy, question_snapshots, pause_windows, pacing_answered, result, version`

// SessionRepository persists quiz sessions. Structured parts of a session are
// stored as JSONB documents next to the scalar columns they are queried by.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

type sessionDocs struct {
	policy, snapshots, pauses, pacing, result []byte
}

func encodeSession(s *model.Session) (sessionDocs, error) {
	var d sessionDocs
	var err error
	if d.policy, err = json.Marshal(s.Policy); err != nil {
		return d, fmt.Errorf("encode policy: %w", err)
	}
	if d.snapshots, err = json.Marshal(s.QuestionSnapshots); err != nil {
		return d, fmt.Errorf("encode snapshots: %w", err)
	}
	pauses := s.PauseWindows
	if pauses == nil {
		pauses = []model.PauseWindow{}
	}
	if d.pauses, err = json.Marshal(pauses); err != nil {
		return d, fmt.Errorf("encode pause windows: %w", err)
	}
	pacing := s.PacingAnswered
	if pacing == nil {
		pacing = []uuid.UUID{}
	}
	if d.pacing, err = json.Marshal(pacing); err != nil {
		return d, fmt.Errorf("encode pacing: %w", err)
	}
	if s.Result != nil {
		if d.result, err = json.Marshal(s.Result); err != nil {
			return d, fmt.Errorf("encode result: %w", err)
		}
	}
	return d, nil
}

func scanSession(row pgx.Row) (*model.Session, error) {
	s := &model.Session{}
	var d sessionDocs
	err := row.Scan(
		&s.Token, &s.QuizID, &s.UserID, &s.Mode, &s.Status, &s.TimeLimitSeconds,
		&s.ExamElapsedSeconds, &s.PauseElapsedSeconds, &s.CurrentQuestionIndex,
		&s.StartedAt, &s.LastHeartbeatAt, &s.FinishedAt,
		&d.policy, &d.snapshots, &d.pauses, &d.pacing, &d.result, &s.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(d.policy, &s.Policy); err != nil {
		return nil, fmt.Errorf("decode policy: %w", err)
	}
	if err := json.Unmarshal(d.snapshots, &s.QuestionSnapshots); err != nil {
		return nil, fmt.Errorf("decode snapshots: %w", err)
	}
	if err := json.Unmarshal(d.pauses, &s.PauseWindows); err != nil {
		return nil, fmt.Errorf("decode pause windows: %w", err)
	}
	if err := json.Unmarshal(d.pacing, &s.PacingAnswered); err != nil {
		return nil, fmt.Errorf("decode pacing: %w", err)
	}
	if len(d.result) > 0 {
		s.Result = &model.SubmissionResult{}
		if err := json.Unmarshal(d.result, s.Result); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
	}

	s.StartedAt = s.StartedAt.UTC()
	s.LastHeartbeatAt = s.LastHeartbeatAt.UTC()
	if s.FinishedAt != nil {
		t := s.FinishedAt.UTC()
		s.FinishedAt = &t
	}
	return s, nil
}

// Create inserts a new session. The partial unique index on active sessions
// turns a concurrent second start into ErrActiveSessionExists.
func (r *SessionRepository) Create(ctx context.Context, s *model.Session) error {
	d, err := encodeSession(s)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO quiz_sessions (`+sessionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
		         $13::jsonb, $14::jsonb, $15::jsonb, $16::jsonb, $17::jsonb, 0)`,
		s.Token, s.QuizID, s.UserID, s.Mode, s.Status, s.TimeLimitSeconds,
		s.ExamElapsedSeconds, s.PauseElapsedSeconds, s.CurrentQuestionIndex,
		s.StartedAt, s.LastHeartbeatAt, s.FinishedAt,
		d.policy, d.snapshots, d.pauses, d.pacing, d.result,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrActiveSessionExists
		}
		return err
	}
	s.Version = 0
	return nil
}

// GetByToken retrieves a session by its opaque token.
func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*model.Session, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM quiz_sessions WHERE session_token = $1`, token,
	))
}

// FindActive returns the non-terminal session of userID on quizID, if any.
func (r *SessionRepository) FindActive(ctx context.Context, userID int, quizID uuid.UUID) (*model.Session, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+`
		 FROM quiz_sessions
		 WHERE user_id = $1 AND quiz_id = $2 AND status IN ($3, $4)
		 LIMIT 1`,
		userID, quizID, model.SessionStatusInProgress, model.SessionStatusPaused,
	))
}

// Update writes s back if nobody else has since the load. The version column
// is bumped on every write.
func (r *SessionRepository) Update(ctx context.Context, s *model.Session) error {
	d, err := encodeSession(s)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE quiz_sessions SET
		   status = $1, exam_elapsed_seconds = $2, pause_elapsed_seconds = $3,
		   current_question_index = $4, last_heartbeat_at = $5, finished_at = $6,
		   question_snapshots = $7::jsonb, pause_windows = $8::jsonb,
		   pacing_answered = $9::jsonb, result = $10::jsonb,
		   version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE session_token = $11 AND version = $12`,
		s.Status, s.ExamElapsedSeconds, s.PauseElapsedSeconds,
		s.CurrentQuestionIndex, s.LastHeartbeatAt, s.FinishedAt,
		d.snapshots, d.pauses, d.pacing, d.result,
		s.Token, s.Version,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	s.Version++
	return nil
}

// CountFinishedAttempts counts graded attempts of userID on quizID.
// Abandoned attempts do not count.
func (r *SessionRepository) CountFinishedAttempts(ctx context.Context, userID int, quizID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM quiz_sessions
		 WHERE user_id = $1 AND quiz_id = $2 AND status IN ($3, $4)`,
		userID, quizID, model.SessionStatusSubmitted, model.SessionStatusAutoSubmitted,
	).Scan(&n)
	return n, err
}
