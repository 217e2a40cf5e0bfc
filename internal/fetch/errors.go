package fetch

import (
	"errors"
	"fmt"
)

// TransportError is a network or HTTP-level failure. Status is zero when the
// request never produced a response.
type TransportError struct {
	Status int
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("http error: %d (%s)", e.Status, e.URL)
	}
	return fmt.Sprintf("http request failed (%s): %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is worth another attempt: rate
// limiting, server-side errors, and plain transport failures qualify.
func (e *TransportError) Retryable() bool {
	if e.Status == 0 {
		return true
	}
	return e.Status == 429 || e.Status >= 500
}

// RateLimited reports whether the remote explicitly throttled us.
func (e *TransportError) RateLimited() bool { return e.Status == 429 }

// ParseError indicates the response body was not the JSON we expected.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid json (%s): %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsRateLimited reports whether err carries an HTTP 429 anywhere in its chain.
func IsRateLimited(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.RateLimited()
}

func isRetryable(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable()
	}
	var pe *ParseError
	return errors.As(err, &pe)
}
