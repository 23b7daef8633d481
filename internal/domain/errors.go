package domain

import "errors"

var (
	// ErrNoQuestionsAvailable is returned when a topic has no eligible questions;
	// the attempt is not created.
	ErrNoQuestionsAvailable = errors.New("no questions available")
	// ErrTopicNotFound indicates the topic or exam does not exist in the content store.
	ErrTopicNotFound = errors.New("topic not found")
	// ErrAttemptNotFound is returned when the attempt ID is unknown.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrNotOwner is returned when a user acts on someone else's attempt.
	ErrNotOwner = errors.New("attempt belongs to another user")
	// ErrAttemptNotInProgress rejects mutating calls on a terminal attempt.
	ErrAttemptNotInProgress = errors.New("attempt is not in progress")
	// ErrOutOfOrderSubmission rejects answers that do not target the current slot.
	ErrOutOfOrderSubmission = errors.New("answer does not match the expected question")
	// ErrAlreadyAnswered rejects a second submission for an answered question;
	// the original record is preserved and returned.
	ErrAlreadyAnswered = errors.New("question already answered in this attempt")
)
