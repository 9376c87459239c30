package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stretchr/testify/assert"
)

func questionIDs(snaps []model.QuestionSnapshot) []uuid.UUID {
	ids := make([]uuid.UUID, len(snaps))
	for i, q := range snaps {
		ids[i] = q.QuizQuestionID
	}
	return ids
}

func TestBuildSnapshotsIsDeterministic(t *testing.T) {
	quiz := singleChoiceQuiz(20, model.QuizPolicy{Mode: model.ModePractice, ShuffleQuestions: true, ShuffleOptions: true})

	a := BuildSnapshots("token-a", quiz)
	b := BuildSnapshots("token-a", quiz)
	c := BuildSnapshots("token-b", quiz)

	assert.Equal(t, a, b)
	assert.ElementsMatch(t, questionIDs(a), questionIDs(c))
	assert.NotEqual(t, questionIDs(a), questionIDs(c))
}

func TestBuildSnapshotsOrdersByOrderNum(t *testing.T) {
	quiz := singleChoiceQuiz(3, model.QuizPolicy{Mode: model.ModePractice})
	quiz.Questions[0].OrderNum, quiz.Questions[2].OrderNum = 3, 1

	snaps := BuildSnapshots("tok", quiz)
	assert.Equal(t, quiz.Questions[2].ID, snaps[0].QuizQuestionID)
	assert.Equal(t, quiz.Questions[0].ID, snaps[2].QuizQuestionID)
}

func TestShuffleKeepsBooleanAndMatchingSides(t *testing.T) {
	quiz := mixedQuiz(model.QuizPolicy{Mode: model.ModePractice, ShuffleOptions: true})
	snaps := BuildSnapshots("tok", quiz)

	assert.Equal(t, quiz.Questions[2].Options, snaps[2].Options)

	matching := snaps[3].Options
	assert.Equal(t, model.MatchSideLeft, matching[0].Side)
	assert.Equal(t, model.MatchSideLeft, matching[1].Side)
	assert.Equal(t, model.MatchSideRight, matching[2].Side)
	assert.Equal(t, model.MatchSideRight, matching[3].Side)
}

func TestSnapshotOwnsCorrectAnswer(t *testing.T) {
	quiz := mixedQuiz(model.QuizPolicy{Mode: model.ModePractice})
	snaps := BuildSnapshots("tok", quiz)

	quiz.Questions[1].CorrectAnswer.(model.MultiChoiceAnswer).OptionIDs[0] = "b"
	assert.Equal(t, model.MultiChoiceAnswer{OptionIDs: []string{"a", "c"}}, snaps[1].CorrectAnswer)
}
