package model

import "encoding/json"

// SaveAnswerRequest is the body of PUT /sessions/answers/:question_id.
// Answer is decoded against the question's frozen type; null clears it.
type SaveAnswerRequest struct {
	Answer           json.RawMessage `json:"answer" binding:"required"`
	TimeSpentSeconds int             `json:"time_spent_seconds" binding:"min=0"`
}

// BulkAnswerItem is one entry of a bulk save.
type BulkAnswerItem struct {
	QuizQuestionID   string          `json:"quiz_question_id" binding:"required,uuid"`
	Answer           json.RawMessage `json:"answer" binding:"required"`
	TimeSpentSeconds int             `json:"time_spent_seconds" binding:"min=0"`
}

// SaveAnswersRequest is the body of PUT /sessions/answers.
type SaveAnswersRequest struct {
	Answers []BulkAnswerItem `json:"answers" binding:"required,min=1,max=500,dive"`
}

// NavigateRequest moves the current question pointer (1-based).
type NavigateRequest struct {
	QuestionNumber int `json:"question_number" binding:"required,min=1"`
}

// FlagRequest sets or clears a review flag.
type FlagRequest struct {
	IsFlagged *bool `json:"is_flagged" binding:"required"`
}
