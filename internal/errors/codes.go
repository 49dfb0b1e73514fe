// Package errors provides structured error handling for seekd.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO and parsing errors
//   - 3XX: Network errors (vector store, model runtime)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file, disk, and parse errors.
	CategoryIO Category = "IO"
	// CategoryNetwork indicates vector store or model runtime errors.
	CategoryNetwork Category = "NETWORK"
	// CategoryValidation indicates input validation errors.
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
	// Config errors (100-199). Fatal at startup: the worker refuses to serve.
	ErrCodeConfigInvalid     = "ERR_101_CONFIG_INVALID"
	ErrCodeDimensionMismatch = "ERR_102_DIMENSION_MISMATCH"
	ErrCodeCollectionInvalid = "ERR_103_COLLECTION_MISCONFIGURED"

	// IO errors (200-299)
	ErrCodeFileNotFound      = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFilePermission    = "ERR_202_FILE_PERMISSION"
	ErrCodeFileTooLarge      = "ERR_203_FILE_TOO_LARGE"
	ErrCodeParseFailed       = "ERR_204_PARSE_FAILED"
	ErrCodeUnsupportedFormat = "ERR_205_UNSUPPORTED_FORMAT"

	// Network errors (300-399)
	ErrCodeNetworkTimeout         = "ERR_301_NETWORK_TIMEOUT"
	ErrCodeVectorStoreUnavailable = "ERR_302_VECTOR_STORE_UNAVAILABLE"
	ErrCodeModelUnavailable       = "ERR_303_MODEL_UNAVAILABLE"

	// Validation errors (400-499)
	ErrCodeInvalidInput = "ERR_401_INVALID_INPUT"
	ErrCodeInvalidPath  = "ERR_402_INVALID_PATH"
	ErrCodeQueryEmpty   = "ERR_403_QUERY_EMPTY"

	// Internal errors (500-599)
	ErrCodeInternal        = "ERR_501_INTERNAL"
	ErrCodeEmbeddingFailed = "ERR_502_EMBEDDING_FAILED"
	ErrCodeSearchFailed    = "ERR_503_SEARCH_FAILED"
	ErrCodeIndexFailed     = "ERR_504_INDEX_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
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
	if categoryFromCode(code) == CategoryConfig {
		return SeverityFatal
	}
	if isRetryableCode(code) {
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeNetworkTimeout, ErrCodeVectorStoreUnavailable, ErrCodeModelUnavailable:
		return true
	default:
		return false
	}
}
