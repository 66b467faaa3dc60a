package core

import "errors"

var (
	// ErrEmptyResponse is returned when a provider call succeeds at the
	// transport level but carries no usable payload.
	ErrEmptyResponse = errors.New("empty response from provider")

	// ErrInvalidResponse is returned when a provider reply is not valid
	// JSON or lacks the required category field.
	ErrInvalidResponse = errors.New("invalid classifier response")

	// ErrAlreadyRecorded is returned by Ledger.Record when a record for
	// the message id already exists. Callers treat it as "skip".
	ErrAlreadyRecorded = errors.New("message already recorded")
)
