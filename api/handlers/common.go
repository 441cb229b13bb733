package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/agentverse/agentverse/types"
)

// Response is the envelope every endpoint returns.
type Response struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// ErrorInfo is the serialized error payload.
type ErrorInfo struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
	Provider  string `json:"provider,omitempty"`
	AgentID   string `json:"agent_id,omitempty"`
}

// WriteJSON writes data as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a 200 envelope around data.
func WriteSuccess(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// WriteError writes an error envelope, mapping the error code to an HTTP
// status. Untyped errors become a 500 internal error.
func WriteError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var te *types.Error
	if !errors.As(err, &te) {
		te = types.NewError(types.ErrStore, "internal error").WithCause(err)
	}

	status := te.HTTPStatus
	if status == 0 {
		status = statusForCode(te.Code)
	}

	if logger != nil {
		logger.Warn("request failed",
			zap.String("code", string(te.Code)),
			zap.String("message", te.Message),
			zap.Int("status", status),
			zap.Bool("retryable", te.Retryable),
		)
	}

	WriteJSON(w, status, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:      string(te.Code),
			Message:   te.Message,
			Retryable: te.Retryable,
			Provider:  te.Provider,
			AgentID:   te.AgentID,
		},
		Timestamp: time.Now(),
	})
}

// WriteErrorMessage writes a one-off error with an explicit status.
func WriteErrorMessage(w http.ResponseWriter, status int, code types.ErrorCode, message string, logger *zap.Logger) {
	WriteError(w, types.NewError(code, message).WithHTTPStatus(status), logger)
}

func statusForCode(code types.ErrorCode) int {
	switch code {
	case types.ErrSessionNotFound, types.ErrAgentNotFound, types.ErrCredentialNotFound:
		return http.StatusNotFound
	case types.ErrInvalidRequest, types.ErrInvalidPrompt, types.ErrNoAgents,
		types.ErrNoConversation, types.ErrUnknownProvider:
		return http.StatusBadRequest
	case types.ErrSessionNotActive, types.ErrTurnLimitReached, types.ErrRunInProgress:
		return http.StatusConflict
	case types.ErrAuthRejected, types.ErrInvalidResponse:
		return http.StatusBadGateway
	case types.ErrProviderUnavailable, types.ErrCancelled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSONBody decodes a strict JSON request body into dst, writing the
// error response itself on failure.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any, logger *zap.Logger) error {
	if r.Body == nil {
		err := types.NewError(types.ErrInvalidRequest, "request body is empty")
		WriteError(w, err, logger)
		return err
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		apiErr := types.NewError(types.ErrInvalidRequest, "invalid JSON body").
			WithCause(err).
			WithHTTPStatus(http.StatusBadRequest)
		WriteError(w, apiErr, logger)
		return apiErr
	}
	return nil
}

// UserID resolves the caller's identity. Authentication is handled
// upstream of this service; the header carries the resolved user.
func UserID(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	return "default"
}

// ResponseWriter wraps http.ResponseWriter to capture the status code for
// logging and metrics middleware.
type ResponseWriter struct {
	http.ResponseWriter
	StatusCode int
	Written    bool
}

// NewResponseWriter wraps w with a default 200 status.
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{ResponseWriter: w, StatusCode: http.StatusOK}
}

func (rw *ResponseWriter) WriteHeader(code int) {
	if !rw.Written {
		rw.StatusCode = code
		rw.Written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *ResponseWriter) Write(b []byte) (int, error) {
	if !rw.Written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}
