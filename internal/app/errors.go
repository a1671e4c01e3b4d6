package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotStarted is returned by operations that need the worker pool.
	ErrNotStarted = errors.New("service not started")
	// ErrInvalidInput marks requests the caller must fix.
	ErrInvalidInput = errors.New("invalid input")
	// ErrExtractionUnavailable is returned when report text is submitted but
	// no extractor is configured.
	ErrExtractionUnavailable = errors.New("biomarker extraction is not configured")
	// ErrQueueFull is returned when a persistence job could not be enqueued.
	ErrQueueFull = errors.New("persistence queue is full")
)

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}
