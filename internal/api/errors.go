package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors callers branch on with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
)

// Category tells a retry policy whether a transport failure is worth retrying.
type Category int

const (
	// Recoverable failures are transient: 5xx, 408, 429 and network errors.
	Recoverable Category = iota
	// Irrecoverable failures will not succeed on retry: other 4xx.
	Irrecoverable
)

func (c Category) String() string {
	switch c {
	case Recoverable:
		return "recoverable"
	case Irrecoverable:
		return "irrecoverable"
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

// TransportError is any failure that is neither ErrNotFound nor
// ErrUnauthorized.
type TransportError struct {
	Op         string
	Category   Category
	StatusCode int    // 0 for network errors
	Body       string // response body, truncated
	Err        error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Category)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsRecoverable reports whether err is a transport failure worth retrying.
func IsRecoverable(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Category == Recoverable
}

const maxErrorBody = 512

// statusError maps a non-2xx response to the error taxonomy. detail is the
// message from the service's error envelope, if it sent one.
func statusError(op string, status int, body, detail string) error {
	switch status {
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	err := fmt.Errorf("HTTP %d", status)
	if detail != "" {
		err = fmt.Errorf("HTTP %d: %s", status, detail)
	}
	return &TransportError{
		Op:         op,
		Category:   classify(status),
		StatusCode: status,
		Body:       body,
		Err:        err,
	}
}

func networkError(op string, err error) error {
	return &TransportError{Op: op, Category: Recoverable, Err: err}
}

func classify(status int) Category {
	switch {
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return Recoverable
	case status >= 400 && status < 500:
		return Irrecoverable
	default:
		return Recoverable
	}
}
