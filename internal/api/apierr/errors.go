package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/leeschmalz/secret-hitler-role-assigner/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest        = "INVALID_REQUEST"
	CodeSessionNotFound       = "SESSION_NOT_FOUND"
	CodeInvalidSessionID      = "INVALID_SESSION_ID"
	CodeSessionExists         = "SESSION_EXISTS"
	CodeSessionIDExhausted    = "SESSION_ID_EXHAUSTED"
	CodeSessionFull           = "SESSION_FULL"
	CodeAlreadyStarted        = "ALREADY_STARTED"
	CodeNotStarted            = "NOT_STARTED"
	CodePlayerNotFound        = "PLAYER_NOT_FOUND"
	CodeInvalidName           = "INVALID_NAME"
	CodeNameTaken             = "NAME_TAKEN"
	CodeMissingToken          = "MISSING_TOKEN"
	CodeMissingTarget         = "MISSING_TARGET"
	CodePlayerCountOutOfRange = "PLAYER_COUNT_OUT_OF_RANGE"
	CodeUnsupportedCount      = "UNSUPPORTED_PLAYER_COUNT"
	CodeRolesNotAssigned      = "ROLES_NOT_ASSIGNED"
	CodeDevModeDisabled       = "DEV_MODE_DISABLED"
	CodeInternalError         = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// codes pairs each model sentinel with its stable code. The message sent to
// clients is the sentinel's own text, never the wrapped chain.
var codes = []struct {
	err  error
	code string
}{
	{model.ErrSessionNotFound, CodeSessionNotFound},
	{model.ErrInvalidSessionID, CodeInvalidSessionID},
	{model.ErrSessionExists, CodeSessionExists},
	{model.ErrSessionIDExhausted, CodeSessionIDExhausted},
	{model.ErrSessionFull, CodeSessionFull},
	{model.ErrAlreadyStarted, CodeAlreadyStarted},
	{model.ErrNotStarted, CodeNotStarted},
	{model.ErrPlayerNotFound, CodePlayerNotFound},
	{model.ErrInvalidName, CodeInvalidName},
	{model.ErrNameTaken, CodeNameTaken},
	{model.ErrMissingToken, CodeMissingToken},
	{model.ErrMissingTarget, CodeMissingTarget},
	{model.ErrPlayerCountOutOfRange, CodePlayerCountOutOfRange},
	{model.ErrUnsupportedPlayerCount, CodeUnsupportedCount},
	{model.ErrRolesNotAssigned, CodeRolesNotAssigned},
	{model.ErrDevModeDisabled, CodeDevModeDisabled},
}

// StatusFor returns the HTTP status for an error kind
func StatusFor(kind model.Kind) int {
	switch kind {
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindInvalidInput, model.KindStateViolation:
		return http.StatusBadRequest
	case model.KindConflict:
		return http.StatusConflict
	case model.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	for _, c := range codes {
		if errors.Is(err, c.err) {
			return &httpError{StatusFor(model.KindOf(c.err)), APIError{c.code, c.err.Error()}}
		}
	}
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}

// IsInternal reports whether err would be written as an opaque 500
func IsInternal(err error) bool {
	return toHTTPError(err).status == http.StatusInternalServerError
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
