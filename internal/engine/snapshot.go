package engine

import (
	"hash/fnv"
	"math/rand/v2"
	"slices"

	"github.com/stemsi/exstem-quiz/internal/model"
)

// BuildSnapshots freezes the quiz structure for one session. Shuffling is
// seeded from the session token, so the same session always yields the same order.
func BuildSnapshots(token string, quiz *model.QuizDefinition) []model.QuestionSnapshot {
	questions := slices.Clone(quiz.Questions)
	slices.SortStableFunc(questions, func(a, b model.CatalogQuestion) int {
		return a.OrderNum - b.OrderNum
	})

	rng := sessionRand(token, quiz.ID.String())
	if quiz.Policy.ShuffleQuestions {
		rng.Shuffle(len(questions), func(i, j int) {
			questions[i], questions[j] = questions[j], questions[i]
		})
	}

	out := make([]model.QuestionSnapshot, len(questions))
	for i, q := range questions {
		opts := slices.Clone(q.Options)
		if quiz.Policy.ShuffleOptions {
			shuffleOptions(rng, q.QuestionType, opts)
		}
		out[i] = model.QuestionSnapshot{
			QuizQuestionID: q.ID,
			QuestionType:   q.QuestionType,
			Prompt:         q.Prompt,
			Options:        opts,
			CorrectAnswer:  cloneAnswer(q.CorrectAnswer),
		}
	}
	return out
}

func sessionRand(token, salt string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(token))
	a := h.Sum64()
	h.Write([]byte(salt))
	return rand.New(rand.NewPCG(a, h.Sum64()))
}

// shuffleOptions permutes options in place. Boolean questions keep their
// order; matching questions shuffle each side separately, left side first.
func shuffleOptions(rng *rand.Rand, qt model.QuestionType, opts []model.Option) {
	switch qt {
	case model.QuestionTypeBoolean:
		return
	case model.QuestionTypeMatching:
		var left, right []model.Option
		for _, o := range opts {
			if o.Side == model.MatchSideRight {
				right = append(right, o)
			} else {
				left = append(left, o)
			}
		}
		rng.Shuffle(len(left), func(i, j int) { left[i], left[j] = left[j], left[i] })
		rng.Shuffle(len(right), func(i, j int) { right[i], right[j] = right[j], right[i] })
		copy(opts, append(left, right...))
	default:
		rng.Shuffle(len(opts), func(i, j int) { opts[i], opts[j] = opts[j], opts[i] })
	}
}

// cloneAnswer copies slice-backed variants so the snapshot owns its data.
func cloneAnswer(a model.Answer) model.Answer {
	switch v := a.(type) {
	case model.MultiChoiceAnswer:
		return model.MultiChoiceAnswer{OptionIDs: slices.Clone(v.OptionIDs)}
	case model.MatchingAnswer:
		return model.MatchingAnswer{Pairs: slices.Clone(v.Pairs)}
	}
	return a
}
