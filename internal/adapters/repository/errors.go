package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
	ErrClosed        = errors.New("store closed")
	ErrBackend       = errors.New("unknown store backend")
	ErrConflict      = errors.New("transaction conflict")
)
