package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/engine"
	"github.com/stemsi/exstem-quiz/internal/lock"
	"github.com/stemsi/exstem-quiz/internal/logger"
	"github.com/stemsi/exstem-quiz/internal/metrics"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/repository"
)

// Session service errors.
var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrAlreadyActive       = errors.New("an active session already exists for this quiz")
	ErrQuizUnavailable     = errors.New("quiz is not available")
	ErrSessionBusy         = errors.New("session is busy, retry shortly")
	ErrAttemptLimitReached = errors.New("attempt limit reached for this quiz")
	ErrResultNotAvailable  = errors.New("session has no result")
)

// AlreadyActiveError names the session that blocks a new start.
type AlreadyActiveError struct {
	SessionToken string
}

func (e *AlreadyActiveError) Error() string { return ErrAlreadyActive.Error() }

func (e *AlreadyActiveError) Is(target error) bool { return target == ErrAlreadyActive }

// SessionStore is the durable session record.
type SessionStore interface {
	Create(ctx context.Context, s *model.Session) error
	GetByToken(ctx context.Context, token string) (*model.Session, error)
	FindActive(ctx context.Context, userID int, quizID uuid.UUID) (*model.Session, error)
	Update(ctx context.Context, s *model.Session) error
	CountFinishedAttempts(ctx context.Context, userID int, quizID uuid.UUID) (int, error)
}

// QuizCatalog resolves a quiz definition at session start.
type QuizCatalog interface {
	Get(ctx context.Context, id uuid.UUID) (*model.QuizDefinition, error)
}

// QuizSessionService runs every session operation inside the session's
// critical section: lock, load, engine call, persist, publish.
type QuizSessionService struct {
	store   SessionStore
	catalog QuizCatalog
	locker  lock.Locker
	events  EventPublisher
	machine *engine.Machine
	log     zerolog.Logger
}

// NewQuizSessionService creates a new QuizSessionService. A nil clock uses the
// system clock; a nil publisher drops events.
func NewQuizSessionService(
	store SessionStore,
	catalog QuizCatalog,
	locker lock.Locker,
	events EventPublisher,
	clock engine.Clock,
	log zerolog.Logger,
) *QuizSessionService {
	if events == nil {
		events = noopPublisher{}
	}
	return &QuizSessionService{
		store:   store,
		catalog: catalog,
		locker:  locker,
		events:  events,
		machine: engine.NewMachine(clock),
		log:     log.With().Str("component", "quiz_session_service").Logger(),
	}
}

// ─── Start ──────────────────────────────────────────────────────────

// Start creates a session for userID on quizID and returns its initial view.
func (s *QuizSessionService) Start(ctx context.Context, userID int, quizID uuid.UUID) (*model.SessionView, error) {
	release, err := s.acquire(ctx, config.CacheKey.SessionStartLockKey(quizID.String(), userID))
	if err != nil {
		return nil, err
	}
	defer release()

	quiz, err := s.catalog.Get(ctx, quizID)
	if err != nil {
		if errors.Is(err, repository.ErrQuizNotFound) {
			return nil, ErrQuizUnavailable
		}
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	if quiz.Status != model.QuizStatusPublished || len(quiz.Questions) == 0 {
		return nil, ErrQuizUnavailable
	}

	existing, err := s.activeSession(ctx, userID, quizID)
	if err != nil {
		return nil, err
	}
	if existing != "" && !quiz.Policy.AllowMultipleAttempts {
		return nil, &AlreadyActiveError{SessionToken: existing}
	}

	if limit := quiz.Policy.MaxAttempts; limit > 0 {
		n, err := s.store.CountFinishedAttempts(ctx, userID, quizID)
		if err != nil {
			return nil, fmt.Errorf("count attempts: %w", err)
		}
		if n >= limit {
			return nil, ErrAttemptLimitReached
		}
	}

	if existing != "" {
		_, err := s.withSession(ctx, userID, existing, "abandon", func(sess *model.Session) (engine.Outcome, error) {
			return s.machine.Abandon(sess)
		})
		if err != nil && !errors.Is(err, engine.ErrTerminalSession) {
			return nil, fmt.Errorf("abandon previous attempt: %w", err)
		}
	}

	sess, err := s.machine.Start(uuid.NewString(), userID, quiz)
	if err != nil {
		if errors.Is(err, engine.ErrNoQuestions) {
			return nil, ErrQuizUnavailable
		}
		return nil, err
	}

	if err := s.store.Create(ctx, sess); err != nil {
		if errors.Is(err, repository.ErrActiveSessionExists) {
			return nil, ErrAlreadyActive
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	transitions := []string{TransitionStarted}
	s.record(ctx, sess, "start", transitions, engine.Outcome{Changed: true})
	metrics.SessionOperations.WithLabelValues("start", "ok").Inc()

	view := s.machine.View(sess)
	return &view, nil
}

// activeSession returns the token of the user's non-terminal session on quizID
// after giving it a chance to lazily expire, or "" if none blocks a new start.
func (s *QuizSessionService) activeSession(ctx context.Context, userID int, quizID uuid.UUID) (string, error) {
	active, err := s.store.FindActive(ctx, userID, quizID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("find active session: %w", err)
	}

	view, err := s.withSession(ctx, userID, active.Token, "state", func(sess *model.Session) (engine.Outcome, error) {
		return s.machine.Refresh(sess), nil
	})
	if err != nil {
		return "", err
	}
	if view.Status.Terminal() {
		return "", nil
	}
	return active.Token, nil
}

// ─── Reads ──────────────────────────────────────────────────────────

// GetState returns the current view. Lazy auto-resume and expiry are the only
// mutations it makes. A finalized session yields its view together with a
// *engine.TerminalSessionError.
func (s *QuizSessionService) GetState(ctx context.Context, userID int, token string) (*model.SessionView, error) {
	return s.withSession(ctx, userID, token, "state", func(sess *model.Session) (engine.Outcome, error) {
		o := s.machine.Refresh(sess)
		if sess.Status.Terminal() {
			return o, &engine.TerminalSessionError{Status: sess.Status, Result: sess.Result}
		}
		return o, nil
	})
}

// GetResult returns the cached result of a graded session.
func (s *QuizSessionService) GetResult(ctx context.Context, userID int, token string) (*model.SubmissionResult, error) {
	view, err := s.withSession(ctx, userID, token, "result", func(sess *model.Session) (engine.Outcome, error) {
		return s.machine.Refresh(sess), nil
	})
	if err != nil {
		return nil, err
	}
	if view.Result == nil {
		return nil, ErrResultNotAvailable
	}
	return view.Result, nil
}

// ─── Mutations ──────────────────────────────────────────────────────

// Heartbeat resyncs timing and returns the refreshed view. It never fails on
// a finalized session; the view's status tells the client.
func (s *QuizSessionService) Heartbeat(ctx context.Context, userID int, token string) (*model.SessionView, error) {
	return s.withSession(ctx, userID, token, "heartbeat", func(sess *model.Session) (engine.Outcome, error) {
		return s.machine.Heartbeat(sess), nil
	})
}

// SaveAnswers upserts every input or none of them.
func (s *QuizSessionService) SaveAnswers(ctx context.Context, userID int, token string, inputs []engine.AnswerInput) (*model.SessionView, error) {
	return s.withSession(ctx, userID, token, "save_answers", func(sess *model.Session) (engine.Outcome, error) {
		return s.machine.SaveAnswers(sess, inputs)
	})
}

// SaveAnswer upserts one answer.
func (s *QuizSessionService) SaveAnswer(ctx context.Context, userID int, token string, in engine.AnswerInput) (*model.SessionView, error) {
	return s.withSession(ctx, userID, token, "save_answer", func(sess *model.Session) (engine.Outcome, error) {
		return s.machine.SaveAnswers(sess, []engine.AnswerInput{in})
	})
}

// Navigate moves the current question pointer to the 1-based questionNumber.
func (s *QuizSessionService) Navigate(ctx context.Context, userID int, token string, questionNumber int) (*model.SessionView, error) {
	return s.withSession(ctx, userID, token, "navigate", func(sess *model.Session) (engine.Outcome, error) {
		return s.machine.Navigate(sess, questionNumber)
	})
}

// Flag sets the review flag of a question.
func (s *QuizSessionService) Flag(ctx context.Context, userID int, token string, qid uuid.UUID, flagged bool) (*model.SessionView, error) {
	return s.withSession(ctx, userID, token, "flag", func(sess *model.Session) (engine.Outcome, error) {
		return s.machine.Flag(sess, qid, flagged)
	})
}

// Pause opens a user-initiated pause window.
func (s *QuizSessionService) Pause(ctx context.Context, userID int, token string) (*model.SessionView, error) {
	return s.withSession(ctx, userID, token, "pause", func(sess *model.Session) (engine.Outcome, error) {
		return s.machine.Pause(sess)
	})
}

// Resume closes the open pause window.
func (s *QuizSessionService) Resume(ctx context.Context, userID int, token string) (*model.SessionView, error) {
	return s.withSession(ctx, userID, token, "resume", func(sess *model.Session) (engine.Outcome, error) {
		return s.machine.Resume(sess)
	})
}

// Submit grades and finalizes the session. Repeated calls replay the cached
// result; the returned view carries it in Result.
func (s *QuizSessionService) Submit(ctx context.Context, userID int, token string) (*model.SessionView, error) {
	return s.withSession(ctx, userID, token, "submit", func(sess *model.Session) (engine.Outcome, error) {
		_, o, err := s.machine.Submit(sess)
		return o, err
	})
}

// Abandon finalizes the session without grading.
func (s *QuizSessionService) Abandon(ctx context.Context, userID int, token string) (*model.SessionView, error) {
	return s.withSession(ctx, userID, token, "abandon", func(sess *model.Session) (engine.Outcome, error) {
		return s.machine.Abandon(sess)
	})
}

// ─── Critical section ───────────────────────────────────────────────

type sessionOp func(sess *model.Session) (engine.Outcome, error)

// withSession runs op on the session under its lock and persists the result
// when the engine reports a change, even if op also returned an error. The
// returned view is non-nil whenever the session was loaded.
func (s *QuizSessionService) withSession(ctx context.Context, userID int, token, operation string, op sessionOp) (*model.SessionView, error) {
	release, err := s.acquire(ctx, config.CacheKey.SessionLockKey(token))
	if err != nil {
		outcome := "error"
		if errors.Is(err, ErrSessionBusy) {
			outcome = "busy"
		}
		metrics.SessionOperations.WithLabelValues(operation, outcome).Inc()
		return nil, err
	}
	defer release()

	sess, err := s.store.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess.UserID != userID {
		return nil, ErrSessionNotFound
	}

	before := sess.Status
	o, opErr := op(sess)

	if o.Changed {
		if err := s.store.Update(ctx, sess); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				s.log.Warn().Str("session_token", token).Str("operation", operation).Msg("Session version conflict")
				metrics.SessionOperations.WithLabelValues(operation, "busy").Inc()
				return nil, ErrSessionBusy
			}
			s.log.Error().Err(err).Str("session_token", token).Msg("Failed to persist session")
			return nil, fmt.Errorf("persist session: %w", err)
		}
		s.record(ctx, sess, operation, transitions(operation, before, o, opErr), o)
	}

	outcome := "ok"
	if opErr != nil {
		outcome = "rejected"
	}
	metrics.SessionOperations.WithLabelValues(operation, outcome).Inc()

	view := s.machine.View(sess)
	view.AutoPaused = o.AutoPaused
	return &view, opErr
}

func (s *QuizSessionService) acquire(ctx context.Context, key string) (func(), error) {
	start := time.Now()
	release, err := s.locker.Acquire(ctx, key)
	metrics.LockWait.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, lock.ErrLockTimeout) {
			s.log.Warn().Str("key", key).Msg("Lock wait timed out")
			return nil, ErrSessionBusy
		}
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	return release, nil
}

// transitions names the state changes one persisted operation produced.
func transitions(operation string, before model.SessionStatus, o engine.Outcome, opErr error) []string {
	var out []string
	if o.AutoResumed {
		out = append(out, TransitionAutoResumed)
	}
	if o.AutoSubmitted {
		out = append(out, TransitionAutoSubmitted)
	}
	if opErr == nil {
		switch operation {
		case "pause":
			out = append(out, TransitionPaused)
		case "resume":
			if !o.AutoResumed && before == model.SessionStatusPaused {
				out = append(out, TransitionResumed)
			}
		case "submit":
			if o.Graded && !o.AutoSubmitted {
				out = append(out, TransitionSubmitted)
			}
		case "abandon":
			out = append(out, TransitionAbandoned)
		}
	}
	if o.AutoPaused {
		out = append(out, TransitionAutoPaused)
	}
	return out
}

// record logs, counts and publishes a persisted change.
func (s *QuizSessionService) record(ctx context.Context, sess *model.Session, operation string, transitions []string, o engine.Outcome) {
	log := logger.Session(s.log, sess.Token, sess.UserID, sess.QuizID.String())
	for _, t := range transitions {
		metrics.SessionTransitions.WithLabelValues(t).Inc()
		ev := log.Info().Str("transition", t).Str("status", string(sess.Status))
		if t == TransitionSubmitted || t == TransitionAutoSubmitted {
			ev = ev.Float64("score", sess.Result.Score)
		}
		ev.Msg("Session transition")
	}

	ev := SessionEvent{
		SessionToken: sess.Token,
		QuizID:       sess.QuizID,
		UserID:       sess.UserID,
		Operation:    operation,
		Status:       sess.Status,
		Transitions:  transitions,
		Graded:       o.Graded,
		At:           time.Now().UTC(),
	}
	if o.Graded {
		ev.Result = sess.Result
	}
	if len(o.SavedAnswers) > 0 {
		ledger := engine.NewLedger(sess)
		for _, qid := range o.SavedAnswers {
			q, err := ledger.Lookup(qid)
			if err != nil {
				continue
			}
			ev.Answers = append(ev.Answers, AnswerRecord{
				QuizQuestionID:   qid,
				QuestionType:     q.QuestionType,
				Answer:           q.UserAnswer,
				TimeSpentSeconds: q.TimeSpentSeconds,
			})
		}
	}

	if err := s.events.Publish(ctx, ev); err != nil {
		log.Warn().Err(err).Str("operation", operation).Msg("Failed to publish session event")
	}
}
