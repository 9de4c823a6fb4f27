// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    DeleteSuppressedEvery: 10, // sample logs: ~every 10th suppressed delete
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	st, _ := keyvarango.New[User](keyvarango.Options[User]{
//	    Namespace: "users",
//	    Backend:   be,
//	    Codec:     codec.JSON[User]{},
//	    Hooks:     hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"

	keyvarango "github.com/TimMikeladze/keyv-arango"
)

type Hooks struct {
	inner   keyvarango.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex // guards q against send-after-close
	closed  bool
	dropped atomic.Uint64
}

var _ keyvarango.Hooks = (*Hooks)(nil)

func New(inner keyvarango.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events fired after
// Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded because the queue was
// full or closed.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) Provisioned(cached bool)          { h.try(func() { h.inner.Provisioned(cached) }) }
func (h *Hooks) ProvisionFailed(err error)        { h.try(func() { h.inner.ProvisionFailed(err) }) }
func (h *Hooks) DecodeFailed(k string, err error) { h.try(func() { h.inner.DecodeFailed(k, err) }) }
func (h *Hooks) WriteConflict(k, r string)        { h.try(func() { h.inner.WriteConflict(k, r) }) }
func (h *Hooks) DeleteSuppressed(k string, err error) {
	h.try(func() { h.inner.DeleteSuppressed(k, err) })
}
