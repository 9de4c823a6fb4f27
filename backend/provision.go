package backend

import (
	"context"
	"errors"
)

// CreateOrOpen runs create and, if it fails (typically because the object
// already exists), falls back to open. When both fail the two errors are
// returned joined so the original create failure is not lost.
func CreateOrOpen[T any](ctx context.Context, create, open func(context.Context) (T, error)) (T, error) {
	v, createErr := create(ctx)
	if createErr == nil {
		return v, nil
	}
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}
	v, openErr := open(ctx)
	if openErr != nil {
		var zero T
		return zero, errors.Join(createErr, openErr)
	}
	return v, nil
}
