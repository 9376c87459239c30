package engine

import (
	"encoding/json"
	"slices"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-quiz/internal/model"
)

// AnswerInput is one answer write addressed to a session question. Either
// Answer or Raw is set; Raw is decoded against the question's frozen type.
type AnswerInput struct {
	QuizQuestionID   uuid.UUID
	Answer           model.Answer
	Raw              json.RawMessage
	TimeSpentSeconds int
}

// Ledger is the ordered, keyed view over a session's question snapshots.
// Writes are last-write-wins per question.
type Ledger struct {
	s     *model.Session
	index map[uuid.UUID]int
}

// NewLedger indexes the snapshots of s by quiz question id.
func NewLedger(s *model.Session) *Ledger {
	idx := make(map[uuid.UUID]int, len(s.QuestionSnapshots))
	for i, q := range s.QuestionSnapshots {
		idx[q.QuizQuestionID] = i
	}
	return &Ledger{s: s, index: idx}
}

// Lookup returns the snapshot addressed by qid.
func (l *Ledger) Lookup(qid uuid.UUID) (*model.QuestionSnapshot, error) {
	i, ok := l.index[qid]
	if !ok {
		return nil, ErrQuestionNotFound
	}
	return &l.s.QuestionSnapshots[i], nil
}

// Resolve decodes and validates in against its question without writing anything.
func (l *Ledger) Resolve(in AnswerInput) (model.Answer, error) {
	q, err := l.Lookup(in.QuizQuestionID)
	if err != nil {
		return nil, err
	}

	a := in.Answer
	if a == nil && len(in.Raw) > 0 {
		a, err = model.DecodeAnswer(q.QuestionType, in.Raw)
		if err != nil {
			return nil, invalidShape("%v", err)
		}
	}
	if a == nil {
		return nil, nil
	}
	if err := ValidateAnswer(q, a); err != nil {
		return nil, err
	}
	if a.IsEmpty() {
		return nil, nil
	}
	return a, nil
}

// Put replaces the stored answer of qid. An empty answer clears it.
func (l *Ledger) Put(qid uuid.UUID, a model.Answer, timeSpent, ceiling int) error {
	q, err := l.Lookup(qid)
	if err != nil {
		return err
	}

	q.UserAnswer = a
	q.IsAnswered = a != nil && !a.IsEmpty()

	if timeSpent < 0 {
		timeSpent = 0
	}
	if timeSpent > ceiling {
		timeSpent = ceiling
	}
	q.TimeSpentSeconds = timeSpent
	return nil
}

// SetFlag sets the review flag. changed is false when it already had that value.
func (l *Ledger) SetFlag(qid uuid.UUID, flagged bool) (changed bool, err error) {
	q, err := l.Lookup(qid)
	if err != nil {
		return false, err
	}
	if q.IsFlagged == flagged {
		return false, nil
	}
	q.IsFlagged = flagged
	return true, nil
}

// ValidateAnswer checks a against the frozen options of q.
func ValidateAnswer(q *model.QuestionSnapshot, a model.Answer) error {
	if a.QuestionType() != q.QuestionType {
		return invalidShape("answer type %s does not match question type %s", a.QuestionType(), q.QuestionType)
	}
	if a.IsEmpty() {
		return nil
	}

	sides := make(map[string]model.MatchSide, len(q.Options))
	for _, o := range q.Options {
		sides[o.ID] = o.Side
	}
	known := func(id string) bool {
		_, ok := sides[id]
		return ok
	}

	switch v := a.(type) {
	case model.SingleChoiceAnswer:
		if !known(v.OptionID) {
			return invalidShape("unknown option %q", v.OptionID)
		}
	case model.BooleanAnswer:
		if !known(v.OptionID) {
			return invalidShape("unknown option %q", v.OptionID)
		}
	case model.MultiChoiceAnswer:
		seen := make(map[string]struct{}, len(v.OptionIDs))
		for _, id := range v.OptionIDs {
			if !known(id) {
				return invalidShape("unknown option %q", id)
			}
			if _, dup := seen[id]; dup {
				return invalidShape("option %q selected twice", id)
			}
			seen[id] = struct{}{}
		}
	case model.MatchingAnswer:
		lefts := make(map[string]struct{}, len(v.Pairs))
		for _, p := range v.Pairs {
			if side, ok := sides[p.LeftID]; !ok || side != model.MatchSideLeft {
				return invalidShape("unknown left item %q", p.LeftID)
			}
			if side, ok := sides[p.RightID]; !ok || side != model.MatchSideRight {
				return invalidShape("unknown right item %q", p.RightID)
			}
			if _, dup := lefts[p.LeftID]; dup {
				return invalidShape("left item %q matched twice", p.LeftID)
			}
			lefts[p.LeftID] = struct{}{}
		}
	default:
		return invalidShape("unsupported answer variant %T", a)
	}
	return nil
}

// trackPacing marks the final answered state of each written question. A
// question counts toward the pacing window only the first time it is ever
// answered; it reports whether anything was counted.
func (l *Ledger) trackPacing(written []uuid.UUID) bool {
	counted := false
	for _, qid := range written {
		q, err := l.Lookup(qid)
		if err != nil || !q.IsAnswered || q.EverAnswered {
			continue
		}
		q.EverAnswered = true
		if !slices.Contains(l.s.PacingAnswered, qid) {
			l.s.PacingAnswered = append(l.s.PacingAnswered, qid)
			counted = true
		}
	}
	return counted
}
