package mcp

import (
	"errors"
	"fmt"

	rerrors "github.com/contextlab/recall/internal/errors"
)

// MCP error codes used by this server.
const (
	// ErrCodeStorageUnavailable indicates the memory store cannot be read.
	ErrCodeStorageUnavailable = -32001

	// Standard JSON-RPC error codes.
	ErrCodeInvalidParams = -32602
	ErrCodeInternalError = -32603
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

// NewInvalidParamsError creates an invalid-params error.
func NewInvalidParamsError(message string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: message}
}

// toolError converts internal errors to MCP errors. Validation failures map
// to invalid params, storage failures to a dedicated code so clients can
// distinguish "could not check" from "nothing found". Everything else is an
// internal error.
func toolError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var re *rerrors.RecallError
	if errors.As(err, &re) {
		switch re.Category {
		case rerrors.CategoryValidation:
			return &MCPError{Code: ErrCodeInvalidParams, Message: re.Message}
		case rerrors.CategoryStorage:
			return &MCPError{Code: ErrCodeStorageUnavailable, Message: re.Message}
		}
	}
	return &MCPError{Code: ErrCodeInternalError, Message: err.Error()}
}
