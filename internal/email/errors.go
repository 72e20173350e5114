package email

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAddress is returned when a recipient fails address validation
	ErrInvalidAddress = errors.New("invalid email address")

	// ErrPoolTimeout is returned when no connection became available in time
	ErrPoolTimeout = errors.New("timed out waiting for an IMAP connection")

	// ErrPoolClosed is returned by Acquire after Close
	ErrPoolClosed = errors.New("connection pool is closed")

	// ErrListUnavailable wraps backend failures while listing a mailbox
	ErrListUnavailable = errors.New("could not list mailbox")

	// ErrFetchUnavailable wraps backend failures while fetching a message
	ErrFetchUnavailable = errors.New("could not fetch message")

	// ErrMessageNotFound is returned when a UID no longer exists
	ErrMessageNotFound = errors.New("message not found")
)

// AuthExhaustedError is returned when every authentication mechanism failed
type AuthExhaustedError struct {
	Attempts []Mechanism
	Last     error
}

func (e *AuthExhaustedError) Error() string {
	return fmt.Sprintf("all %d authentication mechanisms failed, last error: %v", len(e.Attempts), e.Last)
}

func (e *AuthExhaustedError) Unwrap() error {
	return e.Last
}

// breaksConnection reports whether err should take a connection out of service.
// Errors produced by this package for well-formed exchanges leave it usable.
func breaksConnection(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrMessageNotFound)
}
