package apperrors

import "errors"

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFound            = errors.New("not found")
	ErrNoActiveSession     = errors.New("no active session")
	ErrActiveSessionExists = errors.New("active session already exists")
	ErrUnknownUser         = errors.New("unknown user")
	ErrInvalidSnapshot     = errors.New("invalid session snapshot")
	ErrClosed              = errors.New("tracker closed")
)
