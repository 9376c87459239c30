package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quiz/internal/lock"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/repository"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type storedSession struct {
	doc     []byte
	version int
}

// fakeStore keeps sessions as JSON documents, like the JSONB columns do, and
// enforces the same version check and active-session uniqueness.
type fakeStore struct {
	mu             sync.Mutex
	sessions       map[string]storedSession
	forceConflicts int
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[string]storedSession)}
}

func (f *fakeStore) decode(st storedSession) *model.Session {
	s := &model.Session{}
	if err := json.Unmarshal(st.doc, s); err != nil {
		panic(err)
	}
	s.Version = st.version
	return s
}

func (f *fakeStore) Create(_ context.Context, s *model.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, st := range f.sessions {
		other := f.decode(st)
		if other.UserID == s.UserID && other.QuizID == s.QuizID && !other.Status.Terminal() {
			return repository.ErrActiveSessionExists
		}
	}
	doc, err := json.Marshal(s)
	if err != nil {
		return err
	}
	f.sessions[s.Token] = storedSession{doc: doc}
	s.Version = 0
	return nil
}

func (f *fakeStore) GetByToken(_ context.Context, token string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.sessions[token]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	return f.decode(st), nil
}

func (f *fakeStore) FindActive(_ context.Context, userID int, quizID uuid.UUID) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, st := range f.sessions {
		s := f.decode(st)
		if s.UserID == userID && s.QuizID == quizID && !s.Status.Terminal() {
			return s, nil
		}
	}
	return nil, repository.ErrSessionNotFound
}

func (f *fakeStore) Update(_ context.Context, s *model.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.sessions[s.Token]
	if !ok {
		return repository.ErrSessionNotFound
	}
	if f.forceConflicts > 0 {
		f.forceConflicts--
		return repository.ErrVersionConflict
	}
	if st.version != s.Version {
		return repository.ErrVersionConflict
	}
	doc, err := json.Marshal(s)
	if err != nil {
		return err
	}
	f.sessions[s.Token] = storedSession{doc: doc, version: st.version + 1}
	s.Version++
	return nil
}

func (f *fakeStore) CountFinishedAttempts(_ context.Context, userID int, quizID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, st := range f.sessions {
		s := f.decode(st)
		if s.UserID == userID && s.QuizID == quizID &&
			(s.Status == model.SessionStatusSubmitted || s.Status == model.SessionStatusAutoSubmitted) {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) get(token string) *model.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.decode(f.sessions[token])
}

type fakeCatalog struct {
	mu      sync.Mutex
	quizzes map[uuid.UUID]*model.QuizDefinition
}

func (c *fakeCatalog) Get(_ context.Context, id uuid.UUID) (*model.QuizDefinition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.quizzes[id]
	if !ok {
		return nil, repository.ErrQuizNotFound
	}
	return q, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []SessionEvent
}

func (p *fakePublisher) Publish(_ context.Context, ev SessionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePublisher) graded() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, ev := range p.events {
		if ev.Graded {
			n++
		}
	}
	return n
}

type harness struct {
	svc     *QuizSessionService
	store   *fakeStore
	catalog *fakeCatalog
	events  *fakePublisher
	clock   *testClock
	locker  *lock.KeyedMutex
}

func newHarness(quizzes ...*model.QuizDefinition) *harness {
	h := &harness{
		store:   newFakeStore(),
		catalog: &fakeCatalog{quizzes: make(map[uuid.UUID]*model.QuizDefinition)},
		events:  &fakePublisher{},
		clock:   newTestClock(),
		locker:  lock.NewKeyedMutex(2 * time.Second),
	}
	for _, q := range quizzes {
		h.catalog.quizzes[q.ID] = q
	}
	h.svc = NewQuizSessionService(h.store, h.catalog, h.locker, h.events, h.clock, zerolog.Nop())
	return h
}

func intPtr(v int) *int { return &v }

func newQuiz(n int, policy model.QuizPolicy) *model.QuizDefinition {
	q := &model.QuizDefinition{ID: uuid.New(), Title: "Quiz", Status: model.QuizStatusPublished, Policy: policy}
	for i := 0; i < n; i++ {
		q.Questions = append(q.Questions, model.CatalogQuestion{
			ID:            uuid.New(),
			QuestionType:  model.QuestionTypeSingleChoice,
			Prompt:        "pick a",
			Options:       []model.Option{{ID: "a"}, {ID: "b"}},
			CorrectAnswer: model.SingleChoiceAnswer{OptionID: "a"},
			OrderNum:      i + 1,
		})
	}
	return q
}

func newShortLocker() *lock.KeyedMutex {
	return lock.NewKeyedMutex(20 * time.Millisecond)
}
