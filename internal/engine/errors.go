package engine

import (
	"errors"
	"fmt"

	"github.com/stemsi/exstem-quiz/internal/model"
)

// Domain Errors
var (
	ErrTerminalSession    = errors.New("session is finalized")
	ErrSessionPaused      = errors.New("session is paused")
	ErrNotPaused          = errors.New("session is not paused")
	ErrAlreadyPaused      = errors.New("session is already paused")
	ErrPauseNotEligible   = errors.New("pause not eligible yet")
	ErrOutOfRange         = errors.New("question number out of range")
	ErrQuestionNotFound   = errors.New("question not part of this session")
	ErrInvalidAnswerShape = errors.New("invalid answer shape")
	ErrNoQuestions        = errors.New("quiz has no questions")
)

// PauseNotEligibleError carries how many more answers are needed before an
// exam-mode pause is allowed.
type PauseNotEligibleError struct {
	Remaining int
}

func (e *PauseNotEligibleError) Error() string {
	return fmt.Sprintf("pause not eligible: %d more answered question(s) required", e.Remaining)
}

func (e *PauseNotEligibleError) Is(target error) bool { return target == ErrPauseNotEligible }

// TerminalSessionError is returned when a mutation reaches a finalized session.
// Result is set when the session was graded.
type TerminalSessionError struct {
	Status model.SessionStatus
	Result *model.SubmissionResult
}

func (e *TerminalSessionError) Error() string {
	return fmt.Sprintf("session is finalized (%s)", e.Status)
}

func (e *TerminalSessionError) Is(target error) bool { return target == ErrTerminalSession }

func invalidShape(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidAnswerShape, fmt.Sprintf(format, args...))
}
