// Package errors provides structured error handling for recall.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Storage errors (chunk/entity store)
//   - 3XX: Network errors (classification, embedding services)
//   - 4XX: Validation errors (input, service responses)
//   - 5XX: Internal errors (cache, pipeline)
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStorage indicates chunk/entity storage errors.
	CategoryStorage Category = "STORAGE"
	// CategoryNetwork indicates external service errors.
	CategoryNetwork Category = "NETWORK"
	// CategoryValidation indicates input or response validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort the query.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
//
// The four recovery paths the engine implements map onto these:
// transport failures (3XX) fall back locally, malformed classifier output
// (ERR_402) falls back to the heuristic extractor, storage unavailability
// (ERR_201) is fatal for the query and surfaced, and cache failures
// (ERR_502) bypass the cache for that query only.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Storage errors (200-299)
	ErrCodeStorageUnavailable = "ERR_201_STORAGE_UNAVAILABLE"
	ErrCodeStorageQuery       = "ERR_202_STORAGE_QUERY"
	ErrCodeStorageCorrupt     = "ERR_203_STORAGE_CORRUPT"

	// Network errors (300-399)
	ErrCodeClassifyTimeout     = "ERR_301_CLASSIFY_TIMEOUT"
	ErrCodeClassifyUnavailable = "ERR_302_CLASSIFY_UNAVAILABLE"
	ErrCodeEmbedTimeout        = "ERR_303_EMBED_TIMEOUT"
	ErrCodeEmbedUnavailable    = "ERR_304_EMBED_UNAVAILABLE"

	// Validation errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeMalformedResponse = "ERR_402_MALFORMED_RESPONSE"
	ErrCodeQueryEmpty        = "ERR_403_QUERY_EMPTY"
	ErrCodeQueryTooLong      = "ERR_404_QUERY_TOO_LONG"
	ErrCodeDimensionMismatch = "ERR_405_DIMENSION_MISMATCH"

	// Internal errors (500-599)
	ErrCodeInternal         = "ERR_501_INTERNAL"
	ErrCodeCacheUnavailable = "ERR_502_CACHE_UNAVAILABLE"
	ErrCodeSearchFailed     = "ERR_503_SEARCH_FAILED"
	ErrCodeAssemblyFailed   = "ERR_504_ASSEMBLY_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "201" from "ERR_201_STORAGE_UNAVAILABLE")
	numStr := code[4:7]
	if len(numStr) < 1 {
		return CategoryInternal
	}

	switch numStr[0] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStorage
	case '3':
		return CategoryNetwork
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	// Storage failures abort the query: an empty context could be misread
	// as "nothing relevant" rather than "couldn't check".
	switch code {
	case ErrCodeStorageUnavailable, ErrCodeStorageCorrupt:
		return SeverityFatal
	}

	// Recoverable-by-fallback errors get warning severity.
	if isRetryableCode(code) || code == ErrCodeMalformedResponse || code == ErrCodeCacheUnavailable {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeClassifyTimeout, ErrCodeClassifyUnavailable,
		ErrCodeEmbedTimeout, ErrCodeEmbedUnavailable:
		return true
	default:
		return false
	}
}
