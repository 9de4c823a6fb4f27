package keyvarango

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/TimMikeladze/keyv-arango/backend"
	c "github.com/TimMikeladze/keyv-arango/codec"
)

type store[V any] struct {
	backend    backend.Backend
	codec      c.Codec[V]
	jsonNative bool
	scope      backend.Scope
	log        Logger
	hooks      Hooks
	now        func() time.Time

	cacheCollection bool
	provisionMu     sync.Mutex
	state           atomic.Pointer[provisioned]
}

func newStore[V any](opts Options[V]) (*store[V], error) {
	if opts.Backend == nil {
		return nil, ErrBackendRequired
	}
	if opts.Codec == nil {
		return nil, ErrCodecRequired
	}

	s := &store[V]{
		backend:         opts.Backend,
		codec:           opts.Codec,
		jsonNative:      c.IsJSON(opts.Codec),
		scope:           backend.Scope{Namespace: opts.Namespace, Strict: opts.StrictNamespace},
		cacheCollection: !opts.DisableCollectionCache,
		now:             opts.Now,
	}

	// defaults
	s.log = coalesce[Logger](opts.Logger, NopLogger{})
	s.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

func (s *store[V]) Close(ctx context.Context) error {
	return s.backend.Close(ctx)
}

func (s *store[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	col, err := s.collection(ctx)
	if err != nil {
		return zero, false, err
	}
	return s.get(ctx, col, key)
}

func (s *store[V]) get(ctx context.Context, col backend.Collection, key string) (V, bool, error) {
	var zero V
	recs, err := col.Find(ctx, s.scope, []string{key})
	if err != nil {
		return zero, false, err
	}
	live := s.liveByKey(recs, col.ExpireAfter())
	rec, ok := live[key]
	if !ok {
		return zero, false, nil
	}
	v, err := s.decode(key, rec.Value)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

func (s *store[V]) GetMany(ctx context.Context, keys []string) ([]Result[V], error) {
	col, err := s.collection(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Result[V], len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	recs, err := col.Find(ctx, s.scope, keys)
	if err != nil {
		return nil, err
	}
	live := s.liveByKey(recs, col.ExpireAfter())
	// duplicates decode independently so slots never alias
	for i, k := range keys {
		rec, ok := live[k]
		if !ok {
			continue
		}
		v, err := s.decode(k, rec.Value)
		if err != nil {
			return nil, err
		}
		out[i] = Result[V]{Value: v, Found: true}
	}
	return out, nil
}

func (s *store[V]) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.Get(ctx, key)
	return ok, err
}

func (s *store[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	col, err := s.collection(ctx)
	if err != nil {
		return err
	}
	raw, err := s.encode(value)
	if err != nil {
		return err
	}
	exp := s.expiresAt(ttl)

	// two attempts: a lost insert race turns into an update and a record
	// swept between lookup and update turns into an insert
	for attempt := 0; ; attempt++ {
		id, err := s.lookupID(ctx, col, key)
		if err != nil {
			return err
		}
		var reason string
		if id != "" {
			err = col.Update(ctx, backend.Record{ID: id, Key: key, Namespace: s.scope.Namespace, Value: raw, ExpiresAt: exp})
			reason = "vanished"
			if err == nil || !errors.Is(err, backend.ErrNotFound) || attempt > 0 {
				return err
			}
		} else {
			err = col.Insert(ctx, backend.Record{Key: key, Namespace: s.scope.Namespace, Value: raw, ExpiresAt: exp})
			reason = "duplicate"
			if err == nil || !errors.Is(err, backend.ErrDuplicate) || attempt > 0 {
				return err
			}
		}
		s.log.Debug("set raced with a concurrent writer; retrying", Fields{"key": key, "reason": reason})
		s.hooks.WriteConflict(key, reason)
	}
}

func (s *store[V]) Delete(ctx context.Context, key string) (bool, error) {
	col, err := s.collection(ctx)
	if err != nil {
		return false, err
	}
	ok, err := s.exists(ctx, col, key)
	if err != nil {
		s.suppress(key, err)
		return false, nil
	}
	if !ok {
		return false, nil
	}
	n, err := col.Remove(ctx, s.scope, key)
	if err != nil {
		s.suppress(key, err)
		return false, nil
	}
	return n > 0, nil
}

func (s *store[V]) Clear(ctx context.Context) error {
	col, err := s.collection(ctx)
	if err != nil {
		return err
	}
	return col.RemoveAll(ctx, s.scope)
}

// exists reports a live record for key without decoding it, so values the
// codec can no longer read remain deletable.
func (s *store[V]) exists(ctx context.Context, col backend.Collection, key string) (bool, error) {
	recs, err := col.Find(ctx, s.scope, []string{key})
	if err != nil {
		return false, err
	}
	_, ok := s.liveByKey(recs, col.ExpireAfter())[key]
	return ok, nil
}

// lookupID returns the ID of the record holding exactly (key, namespace),
// expired or not, or "" when there is none. Writes target the pair the
// unique index guards even when reads are unscoped.
func (s *store[V]) lookupID(ctx context.Context, col backend.Collection, key string) (string, error) {
	exact := backend.Scope{Namespace: s.scope.Namespace, Strict: true}
	recs, err := col.Find(ctx, exact, []string{key})
	if err != nil {
		return "", err
	}
	for _, r := range recs {
		if r.Key == key && r.Namespace == s.scope.Namespace {
			return r.ID, nil
		}
	}
	return "", nil
}

// liveByKey keeps the first unexpired record per key.
func (s *store[V]) liveByKey(recs []backend.Record, grace time.Duration) map[string]backend.Record {
	now := s.now()
	out := make(map[string]backend.Record, len(recs))
	for _, r := range recs {
		if _, seen := out[r.Key]; seen || r.Expired(now, grace) || !s.scope.Match(r.Namespace) {
			continue
		}
		out[r.Key] = r
	}
	return out
}

func (s *store[V]) expiresAt(ttl time.Duration) *int64 {
	if ttl <= 0 {
		return nil
	}
	exp := s.now().Add(ttl).Unix()
	return &exp
}

func (s *store[V]) encode(v V) (json.RawMessage, error) {
	b, err := s.codec.Encode(v)
	if err != nil {
		return nil, err
	}
	if s.jsonNative {
		if !json.Valid(b) {
			return nil, fmt.Errorf("keyvarango: codec %T declared JSON output but produced invalid JSON", s.codec)
		}
		return b, nil
	}
	return json.Marshal(b) // base64 string
}

func (s *store[V]) decode(key string, raw json.RawMessage) (V, error) {
	payload := []byte(raw)
	if !s.jsonNative {
		payload = nil
		if err := json.Unmarshal(raw, &payload); err != nil {
			return s.decodeFailed(key, err)
		}
	}
	v, err := s.codec.Decode(payload)
	if err != nil {
		return s.decodeFailed(key, err)
	}
	return v, nil
}

func (s *store[V]) decodeFailed(key string, err error) (V, error) {
	var zero V
	s.log.Warn("stored value failed to decode", Fields{"key": key, "err": err})
	s.hooks.DecodeFailed(key, err)
	return zero, &DecodeError{Key: key, Err: err}
}

func (s *store[V]) suppress(key string, err error) {
	s.log.Warn("delete failed; reporting not removed", Fields{"key": key, "err": err})
	s.hooks.DeleteSuppressed(key, err)
}
