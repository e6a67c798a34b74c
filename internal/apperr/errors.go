package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")

	// Document model errors.
	ErrOutOfRange       = errors.New("index out of range")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrEmptyHistory     = errors.New("empty history")
)
