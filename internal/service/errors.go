package service

import (
	"errors"
	"fmt"
)

// Error kinds returned by the services. Use errors.Is to tell them apart.
var (
	ErrNotFound   = errors.New("task not found")
	ErrValidation = errors.New("invalid task")
	ErrStorage    = errors.New("task storage failure")
	// ErrUpstream means the prayer time source could not answer.
	ErrUpstream = errors.New("prayer times unavailable")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func storage(err error) error {
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

func notFound(id uint) error {
	return fmt.Errorf("%w: id %d", ErrNotFound, id)
}
