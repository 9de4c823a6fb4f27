package keyvarango

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The store calls them inline on operation paths.
type Hooks interface {
	// The backend provisioned a collection. cached reports whether the
	// handle was memoized.
	Provisioned(cached bool)

	// Provisioning failed; the operation returns a *ProvisionError.
	ProvisionFailed(err error)

	// Delete hit a lookup or removal error and reported false instead.
	DeleteSuppressed(key string, err error)

	// A stored value could not be decoded.
	DecodeFailed(key string, err error)

	// Set lost a race and retried once.
	// reason ∈ {"duplicate", "vanished"}
	WriteConflict(key, reason string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) Provisioned(bool)               {}
func (NopHooks) ProvisionFailed(error)          {}
func (NopHooks) DeleteSuppressed(string, error) {}
func (NopHooks) DecodeFailed(string, error)     {}
func (NopHooks) WriteConflict(string, string)   {}
