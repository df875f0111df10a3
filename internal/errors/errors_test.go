package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesCategoryAndSeverity(t *testing.T) {
	tests := []struct {
		code      string
		category  Category
		severity  Severity
		retryable bool
	}{
		{ErrCodeConfigInvalid, CategoryConfig, SeverityError, false},
		{ErrCodeIndexCorrupt, CategoryIndex, SeverityFatal, false},
		{ErrCodeNetworkTimeout, CategoryNetwork, SeverityWarning, true},
		{ErrCodeInvalidInput, CategoryValidation, SeverityError, false},
		{ErrCodeSearchPipeline, CategoryInternal, SeverityError, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "boom", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
			assert.Equal(t, tt.retryable, err.Retryable)
		})
	}
}

func TestKBError_Unwrap(t *testing.T) {
	cause := stderrors.New("disk on fire")
	err := New(ErrCodeIndexOpen, "index open failed", cause)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, cause, err.Unwrap())
}

func TestKBError_Is_MatchesByCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(ErrCodeAINotConfigured, "no credentials", nil))

	assert.True(t, stderrors.Is(err, New(ErrCodeAINotConfigured, "", nil)))
	assert.False(t, stderrors.Is(err, New(ErrCodeConfigInvalid, "", nil)))
}

func TestKBError_WithDetail(t *testing.T) {
	err := PipelineError("ranking failed", nil).
		WithDetail("query", "s0c7 abend").
		WithDetail("elapsed_ms", "12")

	assert.Equal(t, "s0c7 abend", err.Details["query"])
	assert.Equal(t, "12", err.Details["elapsed_ms"])
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NetworkError("timeout", nil)))
	assert.False(t, IsRetryable(ConfigError("bad config", nil)))
	assert.False(t, IsRetryable(stderrors.New("plain")))
	assert.False(t, IsRetryable(nil))
}

func TestFormatForCLI(t *testing.T) {
	err := AINotConfigured("semantic search requested without AI provider")
	out := FormatForCLI(err)

	assert.Contains(t, out, "semantic search requested")
	assert.Contains(t, out, "Hint:")
	assert.Contains(t, out, ErrCodeAINotConfigured)
}

func TestFormatForLog(t *testing.T) {
	err := PipelineError("merge failed", stderrors.New("nil entry")).
		WithDetail("query", "jcl error")

	fields := FormatForLog(err)
	assert.Equal(t, ErrCodeSearchPipeline, fields["error_code"])
	assert.Equal(t, "nil entry", fields["cause"])
	assert.Equal(t, "jcl error", fields["detail_query"])
}
