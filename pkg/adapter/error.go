package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// AdapterError carries provider failure metadata so the dispatch retry
// policy can tell rate limits and outages apart from hard failures.
type AdapterError struct {
	Status    int
	Temporary bool
	Err       error
}

func (e *AdapterError) Error() string {
	if e == nil {
		return "adapter error"
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("adapter error (status=%d)", e.Status)
}

func (e *AdapterError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsTransient reports whether a failed adapter call is worth retrying.
// Rate limits (429), server-side errors (5xx), and timeouts are transient;
// context cancellation is the caller's decision and is not.
func IsTransient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, context.DeadlineExceeded):
		return true
	}

	var adapterErr *AdapterError
	if errors.As(err, &adapterErr) {
		return adapterErr.Temporary ||
			adapterErr.Status == 429 ||
			(adapterErr.Status >= 500 && adapterErr.Status <= 599)
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
