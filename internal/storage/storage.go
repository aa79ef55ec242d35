package storage

import "errors"

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")
	ErrNoteNotFound    = errors.New("note not found")
	ErrStateNotFound   = errors.New("oauth state not found")

	// ErrChallengeChanged means the pending passcode was consumed or replaced since it was read.
	ErrChallengeChanged = errors.New("pending passcode changed")
)
