package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesClassificationFromCode(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		category  Category
		severity  Severity
		retryable bool
	}{
		{"config invalid", ErrCodeConfigInvalid, CategoryConfig, SeverityError, false},
		{"docs dir missing", ErrCodeDocsDirNotFound, CategoryConfig, SeverityError, false},
		{"dimension mismatch is fatal", ErrCodeDimensionMismatch, CategoryConfig, SeverityFatal, false},
		{"unreadable file is a warning", ErrCodeFileUnreadable, CategoryIO, SeverityWarning, false},
		{"corrupt store is fatal", ErrCodeStoreCorrupt, CategoryIO, SeverityFatal, false},
		{"backend unavailable retryable", ErrCodeBackendUnavailable, CategoryBackend, SeverityError, true},
		{"generation timeout retryable", ErrCodeGenerationTimeout, CategoryBackend, SeverityError, true},
		{"malformed response not retryable", ErrCodeBackendResponse, CategoryBackend, SeverityError, false},
		{"empty knowledge base", ErrCodeEmptyKnowledgeBase, CategoryValidation, SeverityError, false},
		{"not ready", ErrCodeNotReady, CategoryValidation, SeverityError, false},
		{"internal", ErrCodeInternal, CategoryInternal, SeverityError, false},
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

func TestError_Message(t *testing.T) {
	err := New(ErrCodeConfigInvalid, "chunk_overlap must be smaller than chunk_size", nil)
	assert.Equal(t, "[ERR_101_CONFIG_INVALID] chunk_overlap must be smaller than chunk_size", err.Error())
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(ErrCodeBackendUnavailable, cause)

	require.NotNil(t, err)
	assert.Equal(t, "connection refused", err.Message)
	assert.ErrorIs(t, err, cause)
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestIs_MatchesByCode(t *testing.T) {
	err := fmt.Errorf("asking failed: %w", NotReady("INDEXING"))

	assert.True(t, stderrors.Is(err, New(ErrCodeNotReady, "", nil)))
	assert.False(t, stderrors.Is(err, New(ErrCodeEmptyKnowledgeBase, "", nil)))
}

func TestEmptyKnowledgeBase_CarriesSuggestion(t *testing.T) {
	err := EmptyKnowledgeBase()
	assert.Equal(t, ErrCodeEmptyKnowledgeBase, err.Code)
	assert.Contains(t, err.Suggestion, "docqa index")
}

func TestWithDetail(t *testing.T) {
	err := New(ErrCodeFileUnreadable, "cannot read file", nil).
		WithDetail("path", "docs/broken.pdf")
	assert.Equal(t, "docs/broken.pdf", err.Details["path"])
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(BackendUnavailable("ollama down", nil)))
	assert.False(t, IsRetryable(New(ErrCodeBackendResponse, "bad json", nil)))
	assert.False(t, IsRetryable(stderrors.New("plain")))
	assert.False(t, IsRetryable(nil))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(New(ErrCodeDimensionMismatch, "384 != 256", nil)))
	assert.False(t, IsFatal(New(ErrCodeEmptyQuery, "", nil)))
	assert.False(t, IsFatal(nil))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeGenerationTimeout, GetCode(GenerationTimeout("deadline", nil)))
	assert.Empty(t, GetCode(stderrors.New("plain")))
}
