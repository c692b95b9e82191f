package fetch

import (
	"errors"
	"fmt"
)

var (
	// ErrStatus matches every non-2xx response.
	ErrStatus = errors.New("unexpected HTTP status")

	// ErrInvalidProxyAddress is returned for a proxy that is neither
	// host:port nor a socks5:// URL.
	ErrInvalidProxyAddress = errors.New("invalid proxy address: use host:port or socks5://[user:pass@]host:port")

	// ErrRenderUnavailable is returned when no Chrome binary can be started.
	ErrRenderUnavailable = errors.New("headless browser unavailable")
)

// StatusError carries the status code of a rejected response.
type StatusError struct {
	URL        string
	StatusCode int
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d %s", e.URL, e.StatusCode, statusText(e.StatusCode))
}

// Is makes errors.Is(err, ErrStatus) true.
func (e *StatusError) Is(target error) bool {
	return target == ErrStatus
}

// Temporary reports whether a retry on the next pass may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
