package helpdesk

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed call.
type Kind string

const (
	KindTransport    Kind = "transport"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindServer       Kind = "server"
)

// Sentinels matched by errors.Is against *APIError and *ValidationError.
var (
	ErrTransport    = errors.New("helpdesk: transport failure")
	ErrUnauthorized = errors.New("helpdesk: unauthorized")
	ErrForbidden    = errors.New("helpdesk: forbidden")
	ErrValidation   = errors.New("helpdesk: validation failed")
	ErrNotFound     = errors.New("helpdesk: not found")
	ErrConflict     = errors.New("helpdesk: conflict")
	ErrServer       = errors.New("helpdesk: server error")

	// ErrTicketLocked matches writes refused because the ticket is Completed,
	// whether rejected locally or by the server.
	ErrTicketLocked = errors.New("helpdesk: ticket is completed")

	// ErrNoSession is returned by protected calls made without a stored token.
	// No request is sent.
	ErrNoSession = errors.New("helpdesk: not logged in")

	// ErrWrongRole is returned when a session's role does not match the
	// dashboard being entered.
	ErrWrongRole = errors.New("helpdesk: wrong role for this dashboard")
)

var kindSentinels = map[Kind]error{
	KindTransport:    ErrTransport,
	KindUnauthorized: ErrUnauthorized,
	KindForbidden:    ErrForbidden,
	KindValidation:   ErrValidation,
	KindNotFound:     ErrNotFound,
	KindConflict:     ErrConflict,
	KindServer:       ErrServer,
}

const lockedCode = "TICKET_LOCKED"

// APIError is a failed request.
type APIError struct {
	Kind       Kind
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	switch {
	case e.Kind == KindTransport:
		return fmt.Sprintf("request failed: %v", e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s (%d %s)", e.Message, e.StatusCode, e.Code)
	default:
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *APIError) Is(target error) bool {
	if target == ErrTicketLocked {
		return e.Code == lockedCode
	}
	return kindSentinels[e.Kind] == target
}

// ValidationError is a request refused before it was sent.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// kindFor maps a response to a Kind. A Completed-ticket refusal is a
// validation failure even though the server answers 403.
func kindFor(status int, code string) Kind {
	switch {
	case code == lockedCode:
		return KindValidation
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status >= 500:
		return KindServer
	default:
		return KindValidation
	}
}
