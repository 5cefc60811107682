package model

import "errors"

// Errors surfaced to callers of the interview API.
var (
	ErrExhaustedPool     = errors.New("no questions left in pool")
	ErrSessionNotFound   = errors.New("session not found")
	ErrNoCurrentQuestion = errors.New("no current question")
	ErrQuestionPending   = errors.New("question still awaiting an answer")
)

// Errors from best-effort subsystems. They are logged and never abort an interview.
var (
	ErrEvaluationUnavailable = errors.New("remote evaluation unavailable")
	ErrPersistence           = errors.New("persistence failure")
)
