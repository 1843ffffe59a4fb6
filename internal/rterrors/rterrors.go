// Package rterrors provides the HTTP-facing error shape for wampd's
// small external surface: the WebSocket upgrade endpoint and the
// read-only realm/health endpoints. In-session WAMP failures are
// reported as ERROR messages by the router itself and never pass
// through this package.
package rterrors

import (
	"fmt"
	"net/http"
)

// RouteError is a standardized HTTP error with a machine-readable code
// and an automatic status code mapping.
type RouteError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	StatusCode int    `json:"-"`
}

func (e *RouteError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrorResponse is the JSON body written for a RouteError.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

const (
	CodeBadRequest        = "BAD_REQUEST"
	CodeUnsupportedProto  = "UNSUPPORTED_SUBPROTOCOL"
	CodeNotFound          = "NOT_FOUND"
	CodeRealmNotFound     = "REALM_NOT_FOUND"
	CodeInternalServer    = "INTERNAL_SERVER_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// New creates a RouteError, deriving its HTTP status from code.
func New(code, message string) *RouteError {
	return &RouteError{Code: code, Message: message, StatusCode: statusFor(code)}
}

// NewWithDetails creates a RouteError carrying additional debugging
// context in Details.
func NewWithDetails(code, message, details string) *RouteError {
	return &RouteError{Code: code, Message: message, Details: details, StatusCode: statusFor(code)}
}

func statusFor(code string) int {
	switch code {
	case CodeBadRequest, CodeUnsupportedProto:
		return http.StatusBadRequest
	case CodeNotFound, CodeRealmNotFound:
		return http.StatusNotFound
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ToResponse converts a RouteError into its wire shape.
func (e *RouteError) ToResponse() ErrorResponse {
	return ErrorResponse{Error: e.Code, Message: e.Message, Code: e.Code, Details: e.Details}
}

func BadRequest(message string) *RouteError { return New(CodeBadRequest, message) }

func UnsupportedSubprotocol(supported []string) *RouteError {
	return NewWithDetails(CodeUnsupportedProto, "WebSocket upgrade requires the wamp.2.json subprotocol",
		fmt.Sprintf("supported: %v", supported))
}

func RealmNotFound(realm string) *RouteError {
	return New(CodeRealmNotFound, fmt.Sprintf("realm %s does not exist", realm))
}

func InternalServer(message string) *RouteError { return New(CodeInternalServer, message) }

func ServiceUnavailable(service string) *RouteError {
	return New(CodeServiceUnavailable, fmt.Sprintf("%s is currently unavailable", service))
}
