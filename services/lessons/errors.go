package main

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest       = errors.New("invalid order data")
	ErrInvalidName          = errors.New("name must contain only letters")
	ErrInvalidPhone         = errors.New("phone must contain only numbers")
	ErrLessonNotFound       = errors.New("lesson not found")
	ErrInsufficientCapacity = errors.New("not enough spaces")
	ErrInvalidLessonID      = errors.New("invalid lesson ID format")
	ErrInvalidPatch         = errors.New("invalid lesson update")
	ErrStoreFailure         = errors.New("store failure")
)

// LineError reports the order line that stopped an order from being placed.
type LineError struct {
	LessonID string
	Subject  string
	Err      error
}

func (e *LineError) Error() string {
	switch {
	case errors.Is(e.Err, ErrInsufficientCapacity):
		return fmt.Sprintf("Not enough spaces for %s", e.Subject)
	case errors.Is(e.Err, ErrLessonNotFound):
		return fmt.Sprintf("Lesson %s not found", e.LessonID)
	default:
		return fmt.Sprintf("lesson %s: %v", e.LessonID, e.Err)
	}
}

func (e *LineError) Unwrap() error { return e.Err }

// storeError marks err as an infrastructure failure unless it already carries a
// domain sentinel.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{ErrLessonNotFound, ErrInsufficientCapacity, ErrInvalidLessonID, ErrInvalidPatch, ErrStoreFailure} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %s: %v", ErrStoreFailure, op, err)
}
