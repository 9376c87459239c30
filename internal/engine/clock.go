package engine

import (
	"time"

	"github.com/stemsi/exstem-quiz/internal/model"
)

// Clock supplies the server's notion of now. Client-reported durations never
// reach this package as anything but display hints.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// closedPauseDuration sums every pause window that has been closed.
func closedPauseDuration(s *model.Session) time.Duration {
	var d time.Duration
	for _, w := range s.PauseWindows {
		if w.ResumedAt != nil {
			d += w.ResumedAt.Sub(w.PausedAt)
		}
	}
	return d
}

// ElapsedSeconds derives exam_elapsed_seconds as now - started_at - paused time.
// While a pause is open the clock is frozen at the pause start. The result never
// drops below the stored value and never exceeds the time limit.
func ElapsedSeconds(s *model.Session, now time.Time) int {
	ref := now
	if open := s.OpenPause(); open != nil {
		ref = open.PausedAt
	}

	secs := int((ref.Sub(s.StartedAt) - closedPauseDuration(s)) / time.Second)
	if secs < s.ExamElapsedSeconds {
		secs = s.ExamElapsedSeconds
	}
	if s.Timed() && secs > *s.TimeLimitSeconds {
		secs = *s.TimeLimitSeconds
	}
	return secs
}

// RemainingSeconds returns time_limit - elapsed, or nil for untimed sessions.
func RemainingSeconds(s *model.Session) *int {
	if !s.Timed() {
		return nil
	}
	r := *s.TimeLimitSeconds - s.ExamElapsedSeconds
	if r < 0 {
		r = 0
	}
	return &r
}

// Deadline returns the wall-clock instant the time limit runs out, assuming no
// further pauses. ok is false for untimed sessions.
func Deadline(s *model.Session) (deadline time.Time, ok bool) {
	if !s.Timed() {
		return time.Time{}, false
	}
	limit := time.Duration(*s.TimeLimitSeconds) * time.Second
	return s.StartedAt.Add(limit + closedPauseDuration(s)), true
}

// syncClock writes the derived elapsed and pause counters onto the session.
func syncClock(s *model.Session, now time.Time) {
	s.ExamElapsedSeconds = ElapsedSeconds(s, now)
	s.PauseElapsedSeconds = int(closedPauseDuration(s) / time.Second)
}

// expired reports whether a running timed session has used its whole limit.
func expired(s *model.Session) bool {
	return s.Timed() && s.Status == model.SessionStatusInProgress && s.ExamElapsedSeconds >= *s.TimeLimitSeconds
}
