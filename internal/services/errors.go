package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrExternalTool marks failures reported by an external collaborator
	// (order source, AI service, automation driver, tracking API).
	ErrExternalTool = errors.New("external tool error")
	// ErrValidation marks failures caused by bad or incomplete inputs.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks failures caused by missing or invalid settings.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks lookups that produced no usable result.
	ErrNotFound = errors.New("not found")
	// ErrTimeout marks deadline expirations on external calls.
	ErrTimeout = errors.New("timeout")
	// ErrTransient marks failures expected to clear on a later scheduled run.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRetryable reports whether a stage error should leave the item eligible for
// reprocessing on the next scheduled pass. Validation and configuration
// problems do not clear on their own and need an operator.
func IsRetryable(err error) bool {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration):
		return false
	default:
		return true
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
