// Package validation checks request inputs at the API boundary.
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	rerrors "github.com/contextlab/recall/internal/errors"
)

// Input limits.
const (
	// MaxQueryLength bounds user messages; anything longer is almost
	// certainly a paste accident, not a question.
	MaxQueryLength = 2000
	// MaxScopeLength bounds user scope identifiers.
	MaxScopeLength = 128
)

// ValidateQuery rejects empty, oversized, or non-UTF-8 user messages.
func ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return rerrors.New(rerrors.ErrCodeQueryEmpty, "query must not be empty", nil).
			WithSuggestion("provide a non-empty question or message")
	}
	if len(query) > MaxQueryLength {
		return rerrors.New(rerrors.ErrCodeQueryTooLong,
			fmt.Sprintf("query length %d exceeds maximum %d", len(query), MaxQueryLength), nil)
	}
	if !utf8.ValidString(query) {
		return rerrors.New(rerrors.ErrCodeInvalidInput, "query contains invalid UTF-8", nil)
	}
	return nil
}

// ValidateScope rejects empty or oversized user scope identifiers.
func ValidateScope(scope string) error {
	if strings.TrimSpace(scope) == "" {
		return rerrors.New(rerrors.ErrCodeInvalidInput, "user scope must not be empty", nil)
	}
	if len(scope) > MaxScopeLength {
		return rerrors.New(rerrors.ErrCodeInvalidInput,
			fmt.Sprintf("scope length %d exceeds maximum %d", len(scope), MaxScopeLength), nil)
	}
	return nil
}

// ValidateTokenBudget rejects non-positive budgets.
func ValidateTokenBudget(budget int) error {
	if budget <= 0 {
		return rerrors.New(rerrors.ErrCodeInvalidInput,
			fmt.Sprintf("token budget must be positive, got %d", budget), nil)
	}
	return nil
}
