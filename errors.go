package cloudbalance

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

// ErrValidation represents a request that was rejected before it was sent
// because it failed client-side validation.
type ErrValidation struct {
	Reason  string   `json:"reason"`
	Details []string `json:"details,omitempty"`
}

func NewErrValidation(reason string, details ...string) *ErrValidation {
	return &ErrValidation{
		Reason:  reason,
		Details: details,
	}
}

func (e *ErrValidation) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("Invalid request: %s", e.Reason)
	}
	msg := fmt.Sprintf("Invalid request: %s:", e.Reason)
	for i, detail := range e.Details {
		msg = fmt.Sprintf("%s\n  %d. %s", msg, i, detail)
	}
	return msg
}

// ErrAuthentication represents a 401 from the API server.
type ErrAuthentication struct {
	Reason string `json:"message"`
}

func NewErrAuthentication(reason string) *ErrAuthentication {
	return &ErrAuthentication{
		Reason: reason,
	}
}

func (e *ErrAuthentication) Error() string {
	return fmt.Sprintf("Could not authenticate the request: %s", e.Reason)
}

// ErrAuthorization represents a 403 from the API server.
type ErrAuthorization struct {
	Reason string `json:"message"`
}

func NewErrAuthorization(reason string) *ErrAuthorization {
	return &ErrAuthorization{
		Reason: reason,
	}
}

func (e *ErrAuthorization) Error() string {
	if e.Reason == "" {
		return "The request is not authorized."
	}
	return fmt.Sprintf("The request is not authorized: %s", e.Reason)
}

// ErrBadRequest represents a 400 from the API server. When the server rejected
// the request body field by field, Details maps each field to its complaint.
type ErrBadRequest struct {
	Reason  string            `json:"message"`
	Details map[string]string `json:"data,omitempty"`
}

func NewErrBadRequest(reason string) *ErrBadRequest {
	return &ErrBadRequest{
		Reason: reason,
	}
}

func (e *ErrBadRequest) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("Bad request: %s", e.Reason)
	}
	fields := make([]string, 0, len(e.Details))
	for field := range e.Details {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	msg := fmt.Sprintf("Bad request: %s:", e.Reason)
	for _, field := range fields {
		msg = fmt.Sprintf("%s\n  %s: %s", msg, field, e.Details[field])
	}
	return msg
}

// ErrNotFound represents a 404 from the API server.
type ErrNotFound struct {
	Reason string `json:"message"`
}

func NewErrNotFound(reason string) *ErrNotFound {
	return &ErrNotFound{
		Reason: reason,
	}
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("Not found: %s", e.Reason)
}

// ErrConflict represents a request the API server understood but refused
// because it would violate a business rule, e.g. impersonating a user who is
// not a customer.
type ErrConflict struct {
	Reason string `json:"message"`
}

func NewErrConflict(reason string) *ErrConflict {
	return &ErrConflict{
		Reason: reason,
	}
}

func (e *ErrConflict) Error() string {
	return fmt.Sprintf("Conflict: %s", e.Reason)
}

// ErrInternalServer represents a 500 from the API server.
type ErrInternalServer struct {
	Reason string `json:"message"`
}

func NewErrInternalServer() *ErrInternalServer {
	return &ErrInternalServer{}
}

func (e *ErrInternalServer) Error() string {
	if e.Reason == "" {
		return "An internal server error occurred."
	}
	return fmt.Sprintf("An internal server error occurred: %s", e.Reason)
}

// ErrServer represents any other failure reported by the API server: an
// unexpected status code, or a 2xx whose envelope says success is false.
type ErrServer struct {
	StatusCode int    `json:"-"`
	Reason     string `json:"message"`
}

func (e *ErrServer) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("Received %d from API server.", e.StatusCode)
	}
	return fmt.Sprintf("Received %d from API server: %s", e.StatusCode, e.Reason)
}

// ErrNetwork represents a request that never reached the API server or that
// got no response.
type ErrNetwork struct {
	Reason string
	cause  error
}

func (e *ErrNetwork) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("Could not reach API server: %s", e.Reason)
	}
	return fmt.Sprintf("Could not reach API server: %s: %s", e.Reason, e.cause)
}

func (e *ErrNetwork) Unwrap() error {
	return e.cause
}

// ErrMalformedResponse represents a successful status code accompanied by a
// body that could not be understood.
type ErrMalformedResponse struct {
	Reason string
	cause  error
}

func (e *ErrMalformedResponse) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("Malformed response from API server: %s", e.Reason)
	}
	return fmt.Sprintf(
		"Malformed response from API server: %s: %s",
		e.Reason,
		e.cause,
	)
}

func (e *ErrMalformedResponse) Unwrap() error {
	return e.cause
}

// IsAuthError returns true if the error, once unwrapped, indicates the API
// server no longer accepts the session token that was presented.
func IsAuthError(err error) bool {
	switch errors.Cause(err).(type) {
	case *ErrAuthentication, *ErrAuthorization:
		return true
	}
	return false
}

// Message returns a short, user-facing description of the error, preferring
// whatever message the API server supplied.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var reason string
	switch e := errors.Cause(err).(type) {
	case *ErrValidation:
		reason = e.Reason
	case *ErrAuthentication:
		reason = e.Reason
	case *ErrAuthorization:
		reason = e.Reason
	case *ErrBadRequest:
		reason = e.Reason
	case *ErrNotFound:
		reason = e.Reason
	case *ErrConflict:
		reason = e.Reason
	case *ErrInternalServer:
		reason = e.Reason
	case *ErrServer:
		reason = e.Reason
	}
	if reason == "" {
		return errors.Cause(err).Error()
	}
	return reason
}
