package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-quiz/internal/model"
)

// Outcome describes what a machine call did to the session. Changed means the
// session must be persisted, even when the call also returned an error.
type Outcome struct {
	Changed       bool
	AutoResumed   bool
	AutoPaused    bool
	AutoSubmitted bool
	Graded        bool
	SavedAnswers  []uuid.UUID
}

// Machine is the session state machine. It holds no per-session state; every
// time-based transition is evaluated from stored timestamps on each call.
type Machine struct {
	clock Clock
}

// NewMachine creates a Machine reading time from clock.
func NewMachine(clock Clock) *Machine {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Machine{clock: clock}
}

func (m *Machine) now() time.Time {
	return m.clock.Now().UTC().Truncate(time.Millisecond)
}

// Start creates an in-progress session over a frozen snapshot of quiz.
func (m *Machine) Start(token string, userID int, quiz *model.QuizDefinition) (*model.Session, error) {
	if quiz == nil || len(quiz.Questions) == 0 {
		return nil, ErrNoQuestions
	}

	mode := quiz.Policy.Mode
	if mode == "" {
		mode = model.ModePractice
	}

	var limit *int
	if mode == model.ModeExam && quiz.Policy.TimeLimitSeconds != nil && *quiz.Policy.TimeLimitSeconds > 0 {
		l := *quiz.Policy.TimeLimitSeconds
		limit = &l
	}

	now := m.now()
	return &model.Session{
		Token:            token,
		QuizID:           quiz.ID,
		UserID:           userID,
		Mode:             mode,
		Status:           model.SessionStatusInProgress,
		TimeLimitSeconds: limit,
		StartedAt:        now,
		LastHeartbeatAt:  now,
		Policy: model.SessionPolicy{
			PauseAfterQuestions:       quiz.Policy.PauseAfterQuestions,
			PauseDurationLimitSeconds: quiz.Policy.PauseDurationLimitSeconds,
			AutoPauseAfterQuestions:   quiz.Policy.AutoPauseAfterQuestions,
		},
		QuestionSnapshots: BuildSnapshots(token, quiz),
	}, nil
}

// Refresh performs the lazy checks every request starts with: auto-resume of
// an overdue exam pause, then expiry. It is the only mutation get_state makes.
func (m *Machine) Refresh(s *model.Session) Outcome {
	return m.refresh(s, m.now())
}

func (m *Machine) refresh(s *model.Session, now time.Time) Outcome {
	var o Outcome
	if s.Status.Terminal() {
		return o
	}

	if s.Status == model.SessionStatusPaused {
		if at, due := autoResumeDue(s, now); due {
			closePause(s, at)
			o.AutoResumed = true
			o.Changed = true
		}
	}

	syncClock(s, now)

	if expired(s) {
		deadline, _ := Deadline(s)
		if deadline.After(now) {
			deadline = now
		}
		m.finalize(s, deadline, model.SessionStatusAutoSubmitted, model.TriggerAutoExpiry)
		o.AutoSubmitted = true
		o.Graded = true
		o.Changed = true
	}
	return o
}

// guard refreshes s and rejects further work on a finalized session.
func (m *Machine) guard(s *model.Session, now time.Time) (Outcome, error) {
	o := m.refresh(s, now)
	if s.Status.Terminal() {
		return o, &TerminalSessionError{Status: s.Status, Result: s.Result}
	}
	return o, nil
}

// Heartbeat resyncs timing and records liveness.
func (m *Machine) Heartbeat(s *model.Session) Outcome {
	now := m.now()
	o := m.refresh(s, now)
	if !s.Status.Terminal() {
		s.LastHeartbeatAt = now
		o.Changed = true
	}
	return o
}

// SaveAnswers upserts every input or none of them. In exam mode it may open an
// automatic pause once the pacing threshold is reached.
func (m *Machine) SaveAnswers(s *model.Session, inputs []AnswerInput) (Outcome, error) {
	now := m.now()
	o, err := m.guard(s, now)
	if err != nil {
		return o, err
	}
	if s.Status == model.SessionStatusPaused {
		return o, ErrSessionPaused
	}

	ledger := NewLedger(s)
	resolved := make([]model.Answer, len(inputs))
	for i, in := range inputs {
		a, err := ledger.Resolve(in)
		if err != nil {
			return o, err
		}
		resolved[i] = a
	}

	for i, in := range inputs {
		if err := ledger.Put(in.QuizQuestionID, resolved[i], in.TimeSpentSeconds, s.ExamElapsedSeconds); err != nil {
			return o, err
		}
		o.SavedAnswers = append(o.SavedAnswers, in.QuizQuestionID)
	}
	o.Changed = true

	// Pacing looks at the state after the whole batch, so an answer set and
	// cleared in one request is not counted.
	paced := ledger.trackPacing(o.SavedAnswers)

	if paced && autoPauseDue(s) {
		openPause(s, now, true)
		o.AutoPaused = true
	}
	return o, nil
}

// Navigate moves the current pointer to the 1-based questionNumber.
func (m *Machine) Navigate(s *model.Session, questionNumber int) (Outcome, error) {
	o, err := m.guard(s, m.now())
	if err != nil {
		return o, err
	}
	if s.Status == model.SessionStatusPaused {
		return o, ErrSessionPaused
	}
	if questionNumber < 1 || questionNumber > len(s.QuestionSnapshots) {
		return o, ErrOutOfRange
	}

	idx := questionNumber - 1
	if idx == s.CurrentQuestionIndex {
		return o, nil
	}
	s.CurrentQuestionIndex = idx
	o.Changed = true
	return o, nil
}

// Flag sets the review flag of a question.
func (m *Machine) Flag(s *model.Session, qid uuid.UUID, flagged bool) (Outcome, error) {
	o, err := m.guard(s, m.now())
	if err != nil {
		return o, err
	}
	if s.Status == model.SessionStatusPaused {
		return o, ErrSessionPaused
	}

	changed, err := NewLedger(s).SetFlag(qid, flagged)
	if err != nil {
		return o, err
	}
	if changed {
		o.Changed = true
	}
	return o, nil
}

// Pause opens a user-initiated pause window if the Pause Controller allows it.
func (m *Machine) Pause(s *model.Session) (Outcome, error) {
	now := m.now()
	o, err := m.guard(s, now)
	if err != nil {
		return o, err
	}
	if s.Status == model.SessionStatusPaused {
		return o, ErrAlreadyPaused
	}
	if remaining := AnswersUntilPause(s); remaining > 0 {
		return o, &PauseNotEligibleError{Remaining: remaining}
	}

	openPause(s, now, false)
	syncClock(s, now)
	o.Changed = true
	return o, nil
}

// Resume closes the open pause window.
func (m *Machine) Resume(s *model.Session) (Outcome, error) {
	now := m.now()
	o, err := m.guard(s, now)
	if err != nil {
		return o, err
	}
	if s.Status != model.SessionStatusPaused {
		if o.AutoResumed {
			// The pause ran out before this request; the outcome is the same.
			return o, nil
		}
		return o, ErrNotPaused
	}

	closePause(s, now)
	syncClock(s, now)
	o.Changed = true
	return o, nil
}

// Submit grades and finalizes the session. On an already graded session it
// replays the cached result instead of failing.
func (m *Machine) Submit(s *model.Session) (*model.SubmissionResult, Outcome, error) {
	now := m.now()
	o := m.refresh(s, now)

	if s.Status.Terminal() {
		if s.Result != nil {
			return s.Result, o, nil
		}
		return nil, o, &TerminalSessionError{Status: s.Status}
	}
	if s.Status == model.SessionStatusPaused {
		return nil, o, ErrSessionPaused
	}

	m.finalize(s, now, model.SessionStatusSubmitted, model.TriggerManual)
	o.Graded = true
	o.Changed = true
	return s.Result, o, nil
}

// Abandon finalizes the session without grading.
func (m *Machine) Abandon(s *model.Session) (Outcome, error) {
	now := m.now()
	o, err := m.guard(s, now)
	if err != nil {
		return o, err
	}

	if s.Status == model.SessionStatusPaused {
		closePause(s, now)
	}
	syncClock(s, now)
	s.Status = model.SessionStatusAbandoned
	s.FinishedAt = &now
	o.Changed = true
	return o, nil
}

func (m *Machine) finalize(s *model.Session, at time.Time, status model.SessionStatus, trigger model.SubmissionTrigger) {
	s.Result = Grade(s.QuestionSnapshots, at, trigger)
	s.Status = status
	s.FinishedAt = &at
	s.PacingAnswered = nil
}

// View renders the taker-facing state of s. Call after Refresh or a mutation.
func (m *Machine) View(s *model.Session) model.SessionView {
	v := model.SessionView{
		SessionToken:         s.Token,
		QuizID:               s.QuizID,
		UserID:               s.UserID,
		Mode:                 s.Mode,
		Status:               s.Status,
		TimeLimitSeconds:     s.TimeLimitSeconds,
		TimeRemainingSeconds: RemainingSeconds(s),
		ExamElapsedSeconds:   s.ExamElapsedSeconds,
		PauseElapsedSeconds:  s.PauseElapsedSeconds,
		CurrentQuestionIndex: s.CurrentQuestionIndex,
		StartedAt:            s.StartedAt,
		LastHeartbeatAt:      s.LastHeartbeatAt,
		FinishedAt:           s.FinishedAt,
		AnswersUntilPause:    AnswersUntilPause(s),
		Questions:            make([]model.QuestionView, len(s.QuestionSnapshots)),
		Result:               s.Result,
		ServerTime:           m.now(),
	}
	if open := s.OpenPause(); open != nil {
		p := *open
		v.ActivePause = &p
	}
	for i, q := range s.QuestionSnapshots {
		if q.IsAnswered {
			v.AnsweredCount++
		}
		if q.IsFlagged {
			v.FlaggedCount++
		}
		v.Questions[i] = model.QuestionView{
			Number:           i + 1,
			QuizQuestionID:   q.QuizQuestionID,
			QuestionType:     q.QuestionType,
			Prompt:           q.Prompt,
			Options:          q.Options,
			UserAnswer:       q.UserAnswer,
			IsFlagged:        q.IsFlagged,
			IsAnswered:       q.IsAnswered,
			TimeSpentSeconds: q.TimeSpentSeconds,
		}
	}
	return v
}
