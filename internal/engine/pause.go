package engine

import (
	"time"

	"github.com/stemsi/exstem-quiz/internal/model"
)

// AnswersUntilPause is how many more newly answered questions an exam-mode
// session needs before a manual pause is granted. Practice mode is always 0.
func AnswersUntilPause(s *model.Session) int {
	if s.Mode != model.ModeExam {
		return 0
	}
	r := s.Policy.PauseAfterQuestions - len(s.PacingAnswered)
	if r < 0 {
		return 0
	}
	return r
}

// openPause starts a pause window at now. Exam-mode windows get an
// expected_resume_at when the policy caps pause duration.
func openPause(s *model.Session, now time.Time, automatic bool) {
	w := model.PauseWindow{PausedAt: now, Automatic: automatic}
	if s.Mode == model.ModeExam && s.Policy.PauseDurationLimitSeconds > 0 {
		t := now.Add(time.Duration(s.Policy.PauseDurationLimitSeconds) * time.Second)
		w.ExpectedResumeAt = &t
	}
	s.PauseWindows = append(s.PauseWindows, w)
	s.Status = model.SessionStatusPaused
}

// closePause ends the open window at `at` and restarts the pacing count.
func closePause(s *model.Session, at time.Time) {
	open := s.OpenPause()
	if open == nil {
		return
	}
	if at.Before(open.PausedAt) {
		at = open.PausedAt
	}
	open.ResumedAt = &at
	s.Status = model.SessionStatusInProgress
	s.PacingAnswered = nil
}

// autoResumeDue reports whether the open window's expected resume has passed.
func autoResumeDue(s *model.Session, now time.Time) (time.Time, bool) {
	open := s.OpenPause()
	if open == nil || open.ExpectedResumeAt == nil {
		return time.Time{}, false
	}
	if now.Before(*open.ExpectedResumeAt) {
		return time.Time{}, false
	}
	return *open.ExpectedResumeAt, true
}

// autoPauseDue reports whether the pacing count reached the auto-pause threshold.
func autoPauseDue(s *model.Session) bool {
	threshold := s.Policy.AutoPauseAfterQuestions
	return s.Mode == model.ModeExam && threshold > 0 && len(s.PacingAnswered) >= threshold
}
