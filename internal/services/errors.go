package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrPrecondition marks a conversion attempt that cannot proceed: missing
	// working directory, no chapter directories, or no decodable pages at all.
	ErrPrecondition = errors.New("precondition failed")
	// ErrNotFound marks an unknown identifier or an upstream metadata miss.
	ErrNotFound = errors.New("not found")
	// ErrWrite marks a failed artifact or metadata persistence attempt.
	ErrWrite = errors.New("write failure")
	// ErrSubordinate marks a fetch+convert subprocess that crashed, timed out,
	// or exited non-zero.
	ErrSubordinate = errors.New("subordinate failure")
	// ErrCorruptEntry marks a cache entry whose metadata cannot be parsed even
	// though the artifact is present.
	ErrCorruptEntry = errors.New("corrupt cache entry")
	// ErrConfiguration marks unusable configuration values.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrWrite
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// HTTPStatus maps a classified error to the response status the request
// handler should return. Upstream and identifier misses surface as 404;
// everything else is an internal failure.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
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
