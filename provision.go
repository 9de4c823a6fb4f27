package keyvarango

import (
	"context"

	"github.com/TimMikeladze/keyv-arango/backend"
)

// provisioned is the second lifecycle state; a nil pointer means the store
// is still unprovisioned.
type provisioned struct {
	col backend.Collection
}

// collection returns a provisioned collection handle, provisioning on first
// use. With caching enabled the first success is memoized; failures leave
// the store unprovisioned so the next call tries again.
func (s *store[V]) collection(ctx context.Context) (backend.Collection, error) {
	if !s.cacheCollection {
		return s.provision(ctx)
	}
	if p := s.state.Load(); p != nil {
		return p.col, nil
	}

	s.provisionMu.Lock()
	defer s.provisionMu.Unlock()
	if p := s.state.Load(); p != nil {
		return p.col, nil
	}
	col, err := s.provision(ctx)
	if err != nil {
		return nil, err
	}
	s.state.Store(&provisioned{col: col})
	return col, nil
}

func (s *store[V]) provision(ctx context.Context) (backend.Collection, error) {
	col, err := s.backend.Provision(ctx)
	if err != nil {
		s.log.Error("provisioning failed", Fields{"namespace": s.scope.Namespace, "err": err})
		s.hooks.ProvisionFailed(err)
		return nil, &ProvisionError{Err: err}
	}
	s.log.Debug("collection provisioned", Fields{"namespace": s.scope.Namespace, "cached": s.cacheCollection})
	s.hooks.Provisioned(s.cacheCollection)
	return col, nil
}
