package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// QuestionType enumerates the question shapes a session can hold.
type QuestionType string

const (
	QuestionTypeSingleChoice QuestionType = "single_choice"
	QuestionTypeMultiChoice  QuestionType = "multi_choice"
	QuestionTypeBoolean      QuestionType = "boolean"
	QuestionTypeMatching     QuestionType = "matching"
)

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeSingleChoice, QuestionTypeMultiChoice, QuestionTypeBoolean, QuestionTypeMatching:
		return true
	}
	return false
}

// Answer is a tagged union keyed by question type. The concrete variants are
// SingleChoiceAnswer, MultiChoiceAnswer, BooleanAnswer and MatchingAnswer.
type Answer interface {
	QuestionType() QuestionType
	IsEmpty() bool
	isAnswer()
}

// SingleChoiceAnswer selects exactly one option.
type SingleChoiceAnswer struct {
	OptionID string `json:"option_id"`
}

func (SingleChoiceAnswer) QuestionType() QuestionType { return QuestionTypeSingleChoice }
func (a SingleChoiceAnswer) IsEmpty() bool            { return a.OptionID == "" }
func (SingleChoiceAnswer) isAnswer()                  {}

// BooleanAnswer selects the true or false option of a boolean question.
type BooleanAnswer struct {
	OptionID string `json:"option_id"`
}

func (BooleanAnswer) QuestionType() QuestionType { return QuestionTypeBoolean }
func (a BooleanAnswer) IsEmpty() bool            { return a.OptionID == "" }
func (BooleanAnswer) isAnswer()                  {}

// MultiChoiceAnswer selects a set of options. Order carries no meaning.
type MultiChoiceAnswer struct {
	OptionIDs []string `json:"option_ids"`
}

func (MultiChoiceAnswer) QuestionType() QuestionType { return QuestionTypeMultiChoice }
func (a MultiChoiceAnswer) IsEmpty() bool            { return len(a.OptionIDs) == 0 }
func (MultiChoiceAnswer) isAnswer()                  {}

// MatchPair links a left-side option to a right-side option.
type MatchPair struct {
	LeftID  string `json:"left_id"`
	RightID string `json:"right_id"`
}

// MatchingAnswer is a set of left/right pairs.
type MatchingAnswer struct {
	Pairs []MatchPair `json:"pairs"`
}

func (MatchingAnswer) QuestionType() QuestionType { return QuestionTypeMatching }
func (a MatchingAnswer) IsEmpty() bool            { return len(a.Pairs) == 0 }
func (MatchingAnswer) isAnswer()                  {}

var jsonNull = []byte("null")

// DecodeAnswer parses raw into the Answer variant for qt.
// A missing or null payload decodes to a nil Answer.
func DecodeAnswer(qt QuestionType, raw json.RawMessage) (Answer, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, jsonNull) {
		return nil, nil
	}

	dec := func(v any) error {
		d := json.NewDecoder(bytes.NewReader(raw))
		d.DisallowUnknownFields()
		return d.Decode(v)
	}

	switch qt {
	case QuestionTypeSingleChoice:
		var a SingleChoiceAnswer
		if err := dec(&a); err != nil {
			return nil, fmt.Errorf("decode single choice answer: %w", err)
		}
		return a, nil
	case QuestionTypeBoolean:
		var a BooleanAnswer
		if err := dec(&a); err != nil {
			return nil, fmt.Errorf("decode boolean answer: %w", err)
		}
		return a, nil
	case QuestionTypeMultiChoice:
		var a MultiChoiceAnswer
		if err := dec(&a); err != nil {
			return nil, fmt.Errorf("decode multi choice answer: %w", err)
		}
		return a, nil
	case QuestionTypeMatching:
		var a MatchingAnswer
		if err := dec(&a); err != nil {
			return nil, fmt.Errorf("decode matching answer: %w", err)
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown question type %q", qt)
	}
}
