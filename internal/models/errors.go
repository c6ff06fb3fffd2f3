package models

import (
	"errors"
	"fmt"
)

var (
	// ErrRouteNotFound is returned when the requested arrival is not adjacent to the departure
	ErrRouteNotFound = errors.New("no sailings found for this route")

	// ErrInvalidResponse is returned for transport or status-code failures of the capacity API
	ErrInvalidResponse = errors.New("invalid response from server")
)

// DecodingError means the capacity payload did not match the expected shape
type DecodingError struct {
	Detail string
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("error decoding API response: %s", e.Detail)
}

// NetworkError wraps any other transport failure
type NetworkError struct {
	Cause error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Cause)
}

func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// IsUpstreamError reports whether err came from the capacity API rather than the caller
func IsUpstreamError(err error) bool {
	var decodeErr *DecodingError
	var netErr *NetworkError
	return errors.Is(err, ErrInvalidResponse) || errors.As(err, &decodeErr) || errors.As(err, &netErr)
}
