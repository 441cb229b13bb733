package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the engine.
type ErrorCode string

// Precondition error codes. These are reported before any turn is appended.
const (
	ErrSessionNotFound  ErrorCode = "SESSION_NOT_FOUND"
	ErrSessionNotActive ErrorCode = "SESSION_NOT_ACTIVE"
	ErrNoAgents         ErrorCode = "NO_AGENTS"
	ErrTurnLimitReached ErrorCode = "TURN_LIMIT_REACHED"
	ErrRunInProgress    ErrorCode = "RUN_IN_PROGRESS"
	ErrInvalidPrompt    ErrorCode = "INVALID_PROMPT"
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"
	ErrNoConversation   ErrorCode = "NO_CONVERSATION"
)

// Collaborator error codes. These abort an in-flight run; turns already
// appended stay persisted and the session remains ACTIVE for retry.
const (
	ErrAgentNotFound       ErrorCode = "AGENT_NOT_FOUND"
	ErrCredentialNotFound  ErrorCode = "CREDENTIAL_NOT_FOUND"
	ErrUnknownProvider     ErrorCode = "UNKNOWN_PROVIDER"
	ErrAuthRejected        ErrorCode = "AUTH_REJECTED"
	ErrProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
	ErrInvalidResponse     ErrorCode = "INVALID_RESPONSE"
	ErrCancelled           ErrorCode = "CANCELLED"
	ErrStore               ErrorCode = "STORE_ERROR"
	ErrInternal            ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and context.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
	AgentID    string    `json:"agent_id,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithProvider sets the provider id.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// WithAgent sets the agent the error originated from.
func (e *Error) WithAgent(agentID string) *Error {
	e.AgentID = agentID
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}
