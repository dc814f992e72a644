package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// TransportError reports a network failure or an unexpected remote status.
type TransportError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.Status)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ValidationError reports a payload the remote service rejected.
type ValidationError struct {
	Op      string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// NotFoundError reports that the target task no longer exists remotely.
type NotFoundError struct {
	Op string
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: task %d not found", e.Op, e.ID)
}

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

// normalizeStatus maps a non-2xx response to exactly one error kind.
func normalizeStatus(op string, id int64, status int, message string) error {
	switch {
	case status == http.StatusNotFound:
		return &NotFoundError{Op: op, ID: id}
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		if message == "" {
			message = "request rejected"
		}
		return &ValidationError{Op: op, Message: message}
	default:
		return &TransportError{Op: op, Status: status, Message: message}
	}
}
