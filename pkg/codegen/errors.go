package codegen

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a code-generation service failure.
type ErrorKind string

const (
	// KindNetwork covers transport failures reaching the service.
	KindNetwork ErrorKind = "network"

	// KindService covers non-2xx responses from the service.
	KindService ErrorKind = "service"

	// KindParse covers responses that could not be decoded or that carried
	// unusable content.
	KindParse ErrorKind = "parse"
)

// ServiceError is a typed failure from the code-generation service.
type ServiceError struct {
	Kind       ErrorKind
	Op         string // Operation that failed (e.g., "generate_script")
	StatusCode int    // HTTP status for KindService, 0 otherwise
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("codegen: %s: %s (status %d): %v", e.Op, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("codegen: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the failure is worth retrying with backoff:
// network failures and 5xx/429 service responses.
func IsRetryable(err error) bool {
	var se *ServiceError
	if !errors.As(err, &se) {
		return false
	}
	switch se.Kind {
	case KindNetwork:
		return true
	case KindService:
		return se.StatusCode >= 500 || se.StatusCode == 429
	}
	return false
}
