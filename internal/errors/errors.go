package errors

import (
	"errors"
	"fmt"
)

// KBError carries a stable error code plus the context needed to log,
// retry, and present a failure: category, severity, detail pairs, the
// wrapped cause, and an optional user-facing suggestion.
type KBError struct {
	Code       string
	Message    string
	Category   Category
	Severity   Severity
	Details    map[string]string
	Cause      error
	Retryable  bool
	Suggestion string
}

func (e *KBError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *KBError) Unwrap() error {
	return e.Cause
}

// Is matches two KBErrors by code, so errors.Is(err, New(code, ...))
// works across wrapping.
func (e *KBError) Is(target error) bool {
	t, ok := target.(*KBError)
	return ok && e.Code == t.Code
}

// WithDetail attaches a key-value pair for structured logging. Chains.
func (e *KBError) WithDetail(key, value string) *KBError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion attaches an actionable hint shown to the user. Chains.
func (e *KBError) WithSuggestion(suggestion string) *KBError {
	e.Suggestion = suggestion
	return e
}

// New builds a KBError for code. Category, severity, and retryability
// are all derived from the code's registry entry.
func New(code string, message string, cause error) *KBError {
	return &KBError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap lifts an existing error into a coded KBError, reusing its
// message. Returns nil for a nil error.
func Wrap(code string, err error) *KBError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *KBError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// AINotConfigured creates the error returned when AI-backed search is
// requested but no semantic collaborator is configured.
func AINotConfigured(message string) *KBError {
	return New(ErrCodeAINotConfigured, message, nil).
		WithSuggestion("set the AI provider host and API key in the config file")
}

// IndexError creates an index/storage-related error.
func IndexError(message string, cause error) *KBError {
	return New(ErrCodeIndexOpen, message, cause)
}

// NetworkError creates a retryable network error.
func NetworkError(message string, cause error) *KBError {
	return New(ErrCodeNetworkTimeout, message, cause)
}

// PipelineError creates the wrapped error surfaced when the search
// pipeline itself fails (normalization, merge, ranking). Per-source
// failures degrade instead; this is the one case where Search errors.
func PipelineError(message string, cause error) *KBError {
	return New(ErrCodeSearchPipeline, message, cause)
}

// IsRetryable reports whether err (or anything it wraps) is a
// retryable KBError.
func IsRetryable(err error) bool {
	var ke *KBError
	return errors.As(err, &ke) && ke.Retryable
}

// IsFatal reports whether err carries fatal severity. Fatal errors
// abort the current operation.
func IsFatal(err error) bool {
	var ke *KBError
	return errors.As(err, &ke) && ke.Severity == SeverityFatal
}

// GetCode returns the error code, or "" for non-KBErrors.
func GetCode(err error) string {
	var ke *KBError
	if errors.As(err, &ke) {
		return ke.Code
	}
	return ""
}

// GetCategory returns the error category, or "" for non-KBErrors.
func GetCategory(err error) Category {
	var ke *KBError
	if errors.As(err, &ke) {
		return ke.Category
	}
	return ""
}
