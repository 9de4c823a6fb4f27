package keyvarango

import (
	"context"
	"time"

	"github.com/TimMikeladze/keyv-arango/backend"
	c "github.com/TimMikeladze/keyv-arango/codec"
)

// Store is the generic cache API. V is the caller's value type;
// serialization is handled by a pluggable Codec[V].
//
// A miss is reported as ok=false, never as a zero or null V, so stored
// zero values and misses stay distinguishable.
type Store[V any] interface {
	Get(ctx context.Context, key string) (v V, ok bool, err error)
	// GetMany returns one Result per input key, in input order.
	GetMany(ctx context.Context, keys []string) ([]Result[V], error)
	Has(ctx context.Context, key string) (bool, error)
	// Set stores value; ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value V, ttl time.Duration) error
	// Delete reports whether a record was removed. Lookup and removal
	// failures are logged and reported as false with a nil error.
	Delete(ctx context.Context, key string) (bool, error)
	// Clear removes every record visible to this store.
	Clear(ctx context.Context) error
	Close(ctx context.Context) error
}

// Result is one slot of a GetMany response.
type Result[V any] struct {
	Value V
	Found bool
}

// Options configure a Store. Backend and Codec are required.
type Options[V any] struct {
	// Required
	Backend backend.Backend
	Codec   c.Codec[V]

	Namespace string // "" => no namespace
	// StrictNamespace makes a store without Namespace see only records that
	// have no namespace. By default such a store applies no namespace filter
	// and sees (and clears) every record in the collection.
	StrictNamespace bool
	// DisableCollectionCache re-provisions the collection before every
	// operation instead of memoizing the first handle.
	DisableCollectionCache bool

	Logger Logger           // if nil, NopLogger is used
	Hooks  Hooks            // if nil, NopHooks is used
	Now    func() time.Time // if nil, time.Now
}

func New[V any](opts Options[V]) (Store[V], error) {
	return newStore[V](opts)
}
