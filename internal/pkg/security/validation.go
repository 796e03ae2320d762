package security

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	apperrors "github.com/ricesearch/relevance/internal/pkg/errors"
)

// Validation limits.
const (
	// Query limits.
	MinQueryLength = 1
	MaxQueryLength = 10000

	// Document ID limits.
	MaxDocumentIDLength = 128

	// Result limits.
	MinLimit     = 0
	DefaultLimit = 20
	MaxLimit     = 500

	MaxRequestSize = 10 * 1024 * 1024 // 10MB
)

// ValidationError represents a field validation error.
type ValidationError struct {
	Field      string
	Value      interface{}
	Constraint string
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation failed for %s: %s (got: %v)", e.Field, e.Constraint, e.Value)
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Constraint)
}

// AppError converts the error for an HTTP response.
func (e *ValidationError) AppError() *apperrors.AppError {
	return apperrors.ValidationError(e.Error()).WithDetail("field", e.Field)
}

// documentIDRegex matches valid document IDs: alphanumeric start, then
// alphanumerics, dots, hyphens and underscores.
var documentIDRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// ValidateQuery validates a raw query string.
// Requirements: Required, 1-maxLen chars, valid UTF-8. maxLen <= 0 uses
// MaxQueryLength.
func ValidateQuery(query string, maxLen int) error {
	if maxLen <= 0 {
		maxLen = MaxQueryLength
	}

	if query == "" {
		return &ValidationError{
			Field:      "query",
			Constraint: "required",
		}
	}

	if !utf8.ValidString(query) {
		return &ValidationError{
			Field:      "query",
			Constraint: "must be valid UTF-8",
		}
	}

	length := utf8.RuneCountInString(query)
	if length > maxLen {
		return &ValidationError{
			Field:      "query",
			Value:      length,
			Constraint: fmt.Sprintf("maximum length is %d characters", maxLen),
		}
	}

	return nil
}

// ValidateDocumentID validates a catalog document ID.
func ValidateDocumentID(id string) error {
	if id == "" {
		return &ValidationError{
			Field:      "id",
			Constraint: "required",
		}
	}

	if len(id) > MaxDocumentIDLength {
		return &ValidationError{
			Field:      "id",
			Value:      len(id),
			Constraint: fmt.Sprintf("maximum length is %d characters", MaxDocumentIDLength),
		}
	}

	if !documentIDRegex.MatchString(id) {
		return &ValidationError{
			Field:      "id",
			Value:      SanitizeForLogWithLength(id, 40),
			Constraint: "must contain only alphanumeric characters, dots, hyphens, and underscores, and start with alphanumeric",
		}
	}

	return nil
}

// ValidateLimit validates a result limit. Zero means "no limit".
func ValidateLimit(field string, limit, maxLimit int) error {
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}

	if limit < MinLimit {
		return &ValidationError{
			Field:      field,
			Value:      limit,
			Constraint: fmt.Sprintf("minimum value is %d", MinLimit),
		}
	}

	if limit > maxLimit {
		return &ValidationError{
			Field:      field,
			Value:      limit,
			Constraint: fmt.Sprintf("maximum value is %d", maxLimit),
		}
	}

	return nil
}

// SearchRequestValidator validates a ranking request.
type SearchRequestValidator struct {
	Query          string
	Limit          int
	MaxPerCategory int

	MaxQueryLength int
	MaxLimit       int
}

// Validate validates all fields of the request.
func (v *SearchRequestValidator) Validate() error {
	if err := ValidateQuery(v.Query, v.MaxQueryLength); err != nil {
		return err
	}
	if err := ValidateLimit("limit", v.Limit, v.MaxLimit); err != nil {
		return err
	}
	if err := ValidateLimit("max_per_category", v.MaxPerCategory, v.MaxLimit); err != nil {
		return err
	}
	return nil
}
