package keyvarango

import (
	"errors"
	"fmt"
)

var (
	ErrBackendRequired = errors.New("keyvarango: backend is required")
	ErrCodecRequired   = errors.New("keyvarango: codec is required")
)

// ProvisionError reports that the backend could not provision the
// collection. The store stays unprovisioned and retries on the next call.
type ProvisionError struct {
	Err error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("keyvarango: provision: %v", e.Err)
}

func (e *ProvisionError) Unwrap() error { return e.Err }

// DecodeError reports a stored value the codec could not decode.
type DecodeError struct {
	Key string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("keyvarango: decode %q: %v", e.Key, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
