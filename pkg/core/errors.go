package core

import "errors"

// Error kinds shared across packages. Callers classify with errors.Is.
var (
	// ErrValidation is returned for rejected user input such as empty text or names.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when a referenced drawing, layer or marker does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrStorage is returned when the underlying store fails a read or write.
	ErrStorage = errors.New("storage failure")
	// ErrIO is returned when camera or file access is denied or fails.
	ErrIO = errors.New("io failure")
	// ErrCancelled is returned when the user cancels a capture or prompt.
	ErrCancelled = errors.New("cancelled by user")
)
