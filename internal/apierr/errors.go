package apierr

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/onnwee/redpull/internal/logger"
)

// ErrorCode represents a structured error code
type ErrorCode string

// Error code constants organized by category
const (
	// RESOLVE_ - Target resolution errors
	ErrResolveInvalidInput ErrorCode = "RESOLVE_INVALID_INPUT"

	// FETCH_ - Listing fetch errors
	ErrFetchHTTP      ErrorCode = "FETCH_HTTP_ERROR"
	ErrFetchMalformed ErrorCode = "FETCH_MALFORMED_RESPONSE"
	ErrFetchNetwork   ErrorCode = "FETCH_NETWORK"

	// SESSION_ - Browsing session errors
	ErrSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	ErrSessionLimit    ErrorCode = "SESSION_LIMIT"

	// VIEWER_ - Enlarge overlay errors
	ErrViewerTileNotFound ErrorCode = "VIEWER_TILE_NOT_FOUND"
	ErrViewerNotOpen      ErrorCode = "VIEWER_NOT_OPEN"
	ErrViewerInvalidIndex ErrorCode = "VIEWER_INVALID_INDEX"

	// SYSTEM_ - System and server errors
	ErrSystemInternal    ErrorCode = "SYSTEM_INTERNAL"
	ErrSystemUnavailable ErrorCode = "SYSTEM_UNAVAILABLE"

	// VALIDATION_ - Request validation errors
	ErrValidationInvalidJSON  ErrorCode = "VALIDATION_INVALID_JSON"
	ErrValidationMissingField ErrorCode = "VALIDATION_MISSING_FIELD"
	ErrValidationInvalidValue ErrorCode = "VALIDATION_INVALID_VALUE"
	ErrValidationTooLarge     ErrorCode = "VALIDATION_BODY_TOO_LARGE"

	// RATE_LIMIT_ - Rate limiting errors
	ErrRateLimitGlobal ErrorCode = "RATE_LIMIT_GLOBAL"
	ErrRateLimitIP     ErrorCode = "RATE_LIMIT_IP"
)

// Error represents a structured API error
type Error struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	status    int                    // HTTP status code (not serialized)
}

// ErrorResponse is the top-level error response wrapper
type ErrorResponse struct {
	Error *Error `json:"error"`
}

// New creates a new API error
func New(code ErrorCode, message string, status int) *Error {
	return &Error{Code: code, Message: message, status: status}
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	e.Details = details
	return e
}

// WithRequestID adds a request ID to the error
func (e *Error) WithRequestID(requestID string) *Error {
	e.RequestID = requestID
	return e
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// Status returns the HTTP status code
func (e *Error) Status() int {
	return e.status
}

// WriteError writes a structured error response to the HTTP response writer
func WriteError(w http.ResponseWriter, err *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status())
	if encErr := json.NewEncoder(w).Encode(ErrorResponse{Error: err}); encErr != nil {
		logger.Warn("failed to encode error response", "code", err.Code, "error", encErr)
	}
}

func orDefault(message, def string) string {
	if message == "" {
		return def
	}
	return message
}

// ResolveInvalidInput reports input that names neither a user nor a subreddit.
func ResolveInvalidInput(input string) *Error {
	return New(ErrResolveInvalidInput, "Could not find a Reddit username or subreddit in the input", http.StatusBadRequest).
		WithDetails(map[string]interface{}{"input": input})
}

// FetchHTTP reports a non-2xx listing response; upstream is the upstream status code.
func FetchHTTP(upstream int, reason, message string) *Error {
	details := map[string]interface{}{"status": upstream}
	if reason != "" {
		details["reason"] = reason
	}
	return New(ErrFetchHTTP, orDefault(message, "Reddit returned an error"), http.StatusBadGateway).WithDetails(details)
}

func FetchMalformed(message string) *Error {
	return New(ErrFetchMalformed, orDefault(message, "Reddit returned a response that could not be read"), http.StatusBadGateway)
}

func FetchNetwork(message string) *Error {
	return New(ErrFetchNetwork, orDefault(message, "Could not reach Reddit"), http.StatusGatewayTimeout)
}

// SessionNotFound creates a session not found error
func SessionNotFound(id string) *Error {
	return New(ErrSessionNotFound, "Session not found or expired", http.StatusNotFound).
		WithDetails(map[string]interface{}{"session_id": id})
}

// SessionLimit reports that no more sessions can be created.
func SessionLimit() *Error {
	return New(ErrSessionLimit, "Too many active sessions, try again later", http.StatusServiceUnavailable)
}

func ViewerTileNotFound(tileID string) *Error {
	return New(ErrViewerTileNotFound, "Tile not found", http.StatusNotFound).
		WithDetails(map[string]interface{}{"tile_id": tileID})
}

func ViewerNotOpen() *Error {
	return New(ErrViewerNotOpen, "No viewer is open", http.StatusBadRequest)
}

func ViewerInvalidIndex(index int) *Error {
	return New(ErrViewerInvalidIndex, "Item index out of range", http.StatusBadRequest).
		WithDetails(map[string]interface{}{"index": index})
}

// SystemInternal creates an internal server error
func SystemInternal(message string) *Error {
	return New(ErrSystemInternal, orDefault(message, "Internal server error"), http.StatusInternalServerError)
}

// SystemUnavailable creates a service unavailable error
func SystemUnavailable(message string) *Error {
	return New(ErrSystemUnavailable, orDefault(message, "Service unavailable"), http.StatusServiceUnavailable)
}

// ValidationInvalidJSON creates an invalid JSON error
func ValidationInvalidJSON() *Error {
	return New(ErrValidationInvalidJSON, "Invalid JSON request body", http.StatusBadRequest)
}

// ValidationMissingField creates a missing field error
func ValidationMissingField(field string) *Error {
	return New(ErrValidationMissingField, "Missing required field: "+field, http.StatusBadRequest).
		WithDetails(map[string]interface{}{"field": field})
}

// ValidationInvalidValue creates an invalid value error
func ValidationInvalidValue(field string, message string) *Error {
	return New(ErrValidationInvalidValue, orDefault(message, "Invalid value for field: "+field), http.StatusBadRequest).
		WithDetails(map[string]interface{}{"field": field})
}

func ValidationTooLarge() *Error {
	return New(ErrValidationTooLarge, "Request body too large", http.StatusRequestEntityTooLarge)
}

// RateLimitGlobal creates a global rate limit error
func RateLimitGlobal() *Error {
	return New(ErrRateLimitGlobal, "Rate limit exceeded - too many requests globally", http.StatusTooManyRequests)
}

// RateLimitIP creates an IP rate limit error
func RateLimitIP() *Error {
	return New(ErrRateLimitIP, "Rate limit exceeded - too many requests from your IP", http.StatusTooManyRequests)
}

// GetRequestID extracts the request ID from the context
func GetRequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(logger.RequestIDKey).(string); ok {
		return reqID
	}
	return ""
}

// WriteErrorWithContext writes a structured error response with request ID from context
func WriteErrorWithContext(w http.ResponseWriter, r *http.Request, err *Error) {
	if reqID := GetRequestID(r.Context()); reqID != "" {
		err = err.WithRequestID(reqID)
	}
	WriteError(w, err)
}
