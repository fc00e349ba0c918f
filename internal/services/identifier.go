package services

import (
	"fmt"
	"strings"
)

// ValidateIdentifier rejects identifiers that are unsafe as a filesystem path
// segment. Identifiers name cache and working directories, so this runs before
// any I/O touches disk.
func ValidateIdentifier(id string) error {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return Wrap(ErrNotFound, "identifier", "validate", "identifier is empty", nil)
	}
	if trimmed != id {
		return Wrap(ErrNotFound, "identifier", "validate", fmt.Sprintf("identifier %q has surrounding whitespace", id), nil)
	}
	if id == "." || id == ".." {
		return Wrap(ErrNotFound, "identifier", "validate", fmt.Sprintf("identifier %q is a reserved path segment", id), nil)
	}
	if len(id) > 128 {
		return Wrap(ErrNotFound, "identifier", "validate", "identifier exceeds 128 characters", nil)
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return Wrap(ErrNotFound, "identifier", "validate", fmt.Sprintf("identifier %q contains invalid character %q", id, r), nil)
		}
	}
	return nil
}
