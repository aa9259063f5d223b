// Package mcp exposes the question answering pipeline over the Model
// Context Protocol so AI clients can ask questions against the indexed
// documentation.
package mcp

import (
	"context"
	"errors"
	"fmt"

	qaerrors "github.com/docqa/docqa/internal/errors"
)

// Custom MCP error codes.
const (
	// ErrCodeKnowledgeBaseEmpty indicates no documents have been ingested.
	ErrCodeKnowledgeBaseEmpty = -32001

	// ErrCodeBackendUnavailable indicates the LLM backend is unreachable.
	ErrCodeBackendUnavailable = -32002

	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout = -32003

	// ErrCodeNotReady indicates the pipeline is still indexing.
	ErrCodeNotReady = -32004

	// Standard JSON-RPC error codes.
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var qaErr *qaerrors.QAError
	if errors.As(err, &qaErr) {
		return mapQAError(qaErr)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an error for invalid parameters.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// mapQAError converts a QAError to an MCPError.
func mapQAError(qe *qaerrors.QAError) *MCPError {
	message := qe.Message
	if qe.Suggestion != "" {
		message = fmt.Sprintf("%s. %s", qe.Message, qe.Suggestion)
	}

	switch qe.Code {
	case qaerrors.ErrCodeEmptyKnowledgeBase:
		return &MCPError{Code: ErrCodeKnowledgeBaseEmpty, Message: message}
	case qaerrors.ErrCodeNotReady:
		return &MCPError{Code: ErrCodeNotReady, Message: message}
	case qaerrors.ErrCodeBackendUnavailable:
		return &MCPError{Code: ErrCodeBackendUnavailable, Message: message}
	case qaerrors.ErrCodeGenerationTimeout:
		return &MCPError{Code: ErrCodeTimeout, Message: message}
	case qaerrors.ErrCodeEmptyQuery:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	}

	switch qe.Category {
	case qaerrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
