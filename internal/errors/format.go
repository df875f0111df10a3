package errors

import (
	"errors"
	"fmt"
	"strings"
)

// FormatForCLI renders an error as the short Error/Hint/Code block
// printed to stderr. Plain errors are wrapped as internal first.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	var ke *KBError
	if !errors.As(err, &ke) {
		ke = Wrap(ErrCodeInternal, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Error: %s\n", ke.Message)
	if ke.Suggestion != "" {
		fmt.Fprintf(&b, "  Hint: %s\n", ke.Suggestion)
	}
	fmt.Fprintf(&b, "  Code: %s\n", ke.Code)
	return b.String()
}

// FormatForLog flattens an error into slog attribute pairs. Detail
// keys are prefixed to avoid colliding with the fixed attributes.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}

	var ke *KBError
	if !errors.As(err, &ke) {
		return map[string]any{"error": err.Error()}
	}

	attrs := map[string]any{
		"error_code": ke.Code,
		"message":    ke.Message,
		"category":   string(ke.Category),
		"severity":   string(ke.Severity),
		"retryable":  ke.Retryable,
	}
	if ke.Cause != nil {
		attrs["cause"] = ke.Cause.Error()
	}
	for k, v := range ke.Details {
		attrs["detail_"+k] = v
	}
	return attrs
}
