package preferences

import (
	"context"
	"errors"
)

// ErrUnsupportedVersion is returned when a stored record was written by an
// incompatible format version
var ErrUnsupportedVersion = errors.New("unsupported preference record version")

// ErrInvalidDepartureTime is returned for favorite sailings whose time is not "HH:mm"
var ErrInvalidDepartureTime = errors.New("invalid departure time")

// Store is a durable key/value boundary for user preferences.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value for key, or found=false if absent
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
