package campus

import "errors"

var (
	ErrValidation   = errors.New("campus: validation failed")
	ErrNotFound     = errors.New("campus: not found")
	ErrUnauthorized = errors.New("campus: invalid session")
	ErrForbidden    = errors.New("campus: forbidden")
	ErrConflict     = errors.New("campus: conflict")
)

func isNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
