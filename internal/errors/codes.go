// Package errors provides structured error handling for docqa.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Ingestion and storage I/O errors
//   - 3XX: LLM backend errors
//   - 4XX: Request validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and store I/O errors.
	CategoryIO Category = "IO"
	// CategoryBackend indicates LLM backend errors.
	CategoryBackend Category = "BACKEND"
	// CategoryValidation indicates request validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigInvalid     = "ERR_101_CONFIG_INVALID"
	ErrCodeDocsDirNotFound   = "ERR_102_DOCS_DIR_NOT_FOUND"
	ErrCodeDimensionMismatch = "ERR_103_DIMENSION_MISMATCH"

	// Ingestion and storage errors (200-299)
	ErrCodeFileUnreadable = "ERR_201_FILE_UNREADABLE"
	ErrCodeStoreCorrupt   = "ERR_202_STORE_CORRUPT"

	// Backend errors (300-399)
	ErrCodeBackendUnavailable = "ERR_301_BACKEND_UNAVAILABLE"
	ErrCodeGenerationTimeout  = "ERR_302_GENERATION_TIMEOUT"
	ErrCodeBackendResponse    = "ERR_303_BACKEND_RESPONSE"

	// Request validation errors (400-499)
	ErrCodeEmptyKnowledgeBase = "ERR_401_EMPTY_KNOWLEDGE_BASE"
	ErrCodeNotReady           = "ERR_402_NOT_READY"
	ErrCodeEmptyQuery         = "ERR_403_EMPTY_QUERY"

	// Internal errors (500-599)
	ErrCodeInternal        = "ERR_501_INTERNAL"
	ErrCodeEmbeddingFailed = "ERR_502_EMBEDDING_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Numeric portion, e.g. "101" from "ERR_101_CONFIG_INVALID"
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryBackend
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeStoreCorrupt, ErrCodeDimensionMismatch:
		return SeverityFatal
	case ErrCodeFileUnreadable:
		// Per-file failures degrade the ingest run, never abort it.
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeBackendUnavailable, ErrCodeGenerationTimeout:
		return true
	default:
		return false
	}
}
