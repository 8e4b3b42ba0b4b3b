package failover

import (
	"errors"
	"fmt"
)

var (
	// ErrNoInterfaces is returned when no interface was available at selection time.
	ErrNoInterfaces = errors.New("no network interfaces available")

	// ErrAllInterfacesFailed matches every *ExhaustedError.
	ErrAllInterfacesFailed = errors.New("all network interfaces failed")

	// ErrInterfaceUnusable is returned by the dispatcher when the bound
	// interface is gone or has no address of the required family.
	ErrInterfaceUnusable = errors.New("network interface unusable")

	// ErrNilResponse replaces a nil response returned without an error. It
	// is not retryable.
	ErrNilResponse = errors.New("dispatcher returned nil response and nil error")
)

// ExhaustedError is returned when every candidate failed with a retryable
// error. It unwraps to the last of those errors.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d network interfaces failed, last error: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrAllInterfacesFailed
}
