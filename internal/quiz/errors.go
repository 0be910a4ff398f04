package quiz

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCount is returned when a non-positive question count is requested.
var ErrInvalidCount = errors.New("question count must be positive")

// SchemaError collects every rule the uploaded table violates.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return "invalid question table: " + strings.Join(e.Problems, "; ")
}

// Addf records one violation.
func (e *SchemaError) Addf(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// Err returns e when it holds at least one problem, nil otherwise.
func (e *SchemaError) Err() error {
	if e == nil || len(e.Problems) == 0 {
		return nil
	}
	return e
}

// InsufficientQuestionsError reports a draw that asked for more rows than the
// pool holds. Category is set when the pool was a single category.
type InsufficientQuestionsError struct {
	Requested int
	Available int
	Category  string
}

func (e *InsufficientQuestionsError) Error() string {
	if e.Category != "" {
		return fmt.Sprintf("not enough questions in category %q: requested %d, available %d",
			e.Category, e.Requested, e.Available)
	}
	return fmt.Sprintf("not enough questions: requested %d, available %d", e.Requested, e.Available)
}

// CategoryCoverageError reports a request too small to include every category.
type CategoryCoverageError struct {
	Requested  int
	Categories int
}

func (e *CategoryCoverageError) Error() string {
	return fmt.Sprintf("question count (%d) must be at least the number of categories (%d), %d short",
		e.Requested, e.Categories, e.Categories-e.Requested)
}
