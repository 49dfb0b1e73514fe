package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDerivesCategoryAndSeverity(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		category  Category
		severity  Severity
		retryable bool
	}{
		{"config is fatal", ErrCodeConfigInvalid, CategoryConfig, SeverityFatal, false},
		{"dimension mismatch is fatal", ErrCodeDimensionMismatch, CategoryConfig, SeverityFatal, false},
		{"file not found", ErrCodeFileNotFound, CategoryIO, SeverityError, false},
		{"vector store retryable", ErrCodeVectorStoreUnavailable, CategoryNetwork, SeverityWarning, true},
		{"timeout retryable", ErrCodeNetworkTimeout, CategoryNetwork, SeverityWarning, true},
		{"validation", ErrCodeInvalidPath, CategoryValidation, SeverityError, false},
		{"internal", ErrCodeIndexFailed, CategoryInternal, SeverityError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, "boom", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
			assert.Equal(t, tt.retryable, err.Retryable)
		})
	}
}

func TestErrorChain(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(ErrCodeVectorStoreUnavailable, cause)

	require.NotNil(t, err)
	assert.True(t, stderrors.Is(err, cause))
	assert.True(t, IsRetryable(err))
	assert.Equal(t, ErrCodeVectorStoreUnavailable, GetCode(err))
	assert.Contains(t, err.Error(), "ERR_302")
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestWithDetail(t *testing.T) {
	err := NotFound("/tmp/missing.txt")
	assert.Equal(t, "/tmp/missing.txt", err.Details["path"])
}

func TestIsMatchesByCode(t *testing.T) {
	a := New(ErrCodeFileNotFound, "a", nil)
	b := New(ErrCodeFileNotFound, "b", nil)
	assert.True(t, stderrors.Is(a, b))

	c := New(ErrCodeFilePermission, "c", nil)
	assert.False(t, stderrors.Is(a, c))
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}

	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return New(ErrCodeNetworkTimeout, "timeout", nil)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}

	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		return New(ErrCodeInvalidInput, "bad request", nil)
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryExhaustion(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}

	calls := 0
	_, err := RetryWithResult(context.Background(), cfg, func() (int, error) {
		calls++
		return 0, fmt.Errorf("transient")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls) // initial + 2 retries
	assert.Contains(t, err.Error(), "failed after 2 retries")
}

func TestRetryRespectsContext(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 5, InitialDelay: 50 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, cfg, func() error { return fmt.Errorf("never succeeds") })
	assert.ErrorIs(t, err, context.Canceled)
}
