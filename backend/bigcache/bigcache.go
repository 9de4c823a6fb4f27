// Package bigcache is an in-process keyvarango backend over allegro/bigcache.
//
// BigCache has no per-entry TTL, so the backend runs its own sweep loop that
// deletes records whose ExpiresAt + ExpireAfter is in the past, the way a
// database TTL index would. Intended for tests and single-process use.
package bigcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/TimMikeladze/keyv-arango/backend"
)

const (
	defaultSweep   = time.Second
	defaultShards  = 64
	defaultEntries = 64 * 16
	// bigcache evicts the oldest entry on Set once it outlives LifeWindow,
	// and a zero window evicts anything older than a second.
	noAging = 100 * 365 * 24 * time.Hour
)

type Config struct {
	SweepInterval      time.Duration // 0 => 1s; negative disables the sweep loop
	ExpireAfter        time.Duration // grace added to ExpiresAt before sweep deletes
	Shards             int           // power of two; 0 => 64
	MaxEntriesInWindow int           // initial sizing hint; 0 => 1024
	MaxEntrySize       int
	HardMaxCacheSizeMB int              // ~ memory limit; 0 = unlimited
	Now                func() time.Time // nil => time.Now
}

type Provider struct {
	c     *bc.BigCache
	mu    sync.Mutex // serializes check-then-write
	grace time.Duration
	now   func() time.Time

	ticker    *time.Ticker
	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var (
	_ backend.Backend    = (*Provider)(nil)
	_ backend.Collection = (*Provider)(nil)
)

func New(cfg Config) (*Provider, error) {
	// Entries never age out on bigcache's own clock; expiry is per record.
	conf := bc.DefaultConfig(noAging)
	conf.CleanWindow = 0
	conf.Verbose = false
	conf.Shards = defaultShards
	conf.MaxEntriesInWindow = defaultEntries
	if cfg.Shards > 0 {
		conf.Shards = cfg.Shards
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.NewBigCache(conf)
	if err != nil {
		return nil, fmt.Errorf("bigcache backend: %w", err)
	}

	p := &Provider{c: c, grace: cfg.ExpireAfter, now: cfg.Now}
	if p.now == nil {
		p.now = time.Now
	}

	interval := cfg.SweepInterval
	if interval == 0 {
		interval = defaultSweep
	}
	if interval > 0 {
		p.ticker = time.NewTicker(interval)
		p.stopCh = make(chan struct{})
		p.wg.Add(1)
		go p.sweepLoop()
	}
	return p, nil
}

// Provision returns the provider itself; there is nothing to create.
func (p *Provider) Provision(context.Context) (backend.Collection, error) { return p, nil }

type document struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	Namespace string          `json:"namespace,omitempty"`
	ExpiresAt *int64          `json:"expiresAt,omitempty"`
}

func (d document) record(id string) backend.Record {
	return backend.Record{ID: id, Key: d.Key, Namespace: d.Namespace, Value: d.Value, ExpiresAt: d.ExpiresAt}
}

func (p *Provider) Find(_ context.Context, scope backend.Scope, keys []string) ([]backend.Record, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	if scope.Filtered() {
		out := make([]backend.Record, 0, len(keys))
		seen := make(map[string]struct{}, len(keys))
		for _, k := range keys {
			id := storageKey(scope.Namespace, k)
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			d, ok, err := p.load(id)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, d.record(id))
			}
		}
		return out, nil
	}

	want := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		want[k] = struct{}{}
	}
	var out []backend.Record
	err := p.each(func(id string, d document) {
		if _, ok := want[d.Key]; ok {
			out = append(out, d.record(id))
		}
	})
	return out, err
}

func (p *Provider) Insert(_ context.Context, r backend.Record) error {
	id := storageKey(r.Namespace, r.Key)
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok, err := p.load(id); err != nil {
		return err
	} else if ok {
		return backend.ErrDuplicate
	}
	return p.store(id, document{Key: r.Key, Value: r.Value, Namespace: r.Namespace, ExpiresAt: r.ExpiresAt})
}

func (p *Provider) Update(_ context.Context, r backend.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok, err := p.load(r.ID)
	if err != nil {
		return err
	}
	if !ok {
		return backend.ErrNotFound
	}
	d.Value = r.Value
	d.ExpiresAt = r.ExpiresAt
	return p.store(r.ID, d)
}

func (p *Provider) Remove(ctx context.Context, scope backend.Scope, key string) (int, error) {
	recs, err := p.Find(ctx, scope, []string{key})
	if err != nil {
		return 0, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, r := range recs {
		if err := p.c.Delete(r.ID); err != nil {
			if errors.Is(err, bc.ErrEntryNotFound) {
				continue
			}
			return n, fmt.Errorf("bigcache backend: remove: %w", err)
		}
		n++
	}
	return n, nil
}

func (p *Provider) RemoveAll(_ context.Context, scope backend.Scope) error {
	var ids []string
	if err := p.each(func(id string, d document) {
		if scope.Match(d.Namespace) {
			ids = append(ids, id)
		}
	}); err != nil {
		return err
	}
	return p.delete(ids)
}

func (p *Provider) ExpireAfter() time.Duration { return p.grace }

// Sweep deletes every record past its expiry plus grace.
func (p *Provider) Sweep() error {
	now := p.now()
	var ids []string
	if err := p.each(func(id string, d document) {
		if d.record(id).Expired(now, p.grace) {
			ids = append(ids, id)
		}
	}); err != nil {
		return err
	}
	return p.delete(ids)
}

// Len reports the number of stored records, swept or not.
func (p *Provider) Len() int { return p.c.Len() }

func (p *Provider) Close(context.Context) error {
	var err error
	p.closeOnce.Do(func() {
		if p.stopCh != nil {
			close(p.stopCh)
			p.ticker.Stop()
			p.wg.Wait()
		}
		err = p.c.Close()
	})
	return err
}

func (p *Provider) sweepLoop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ticker.C:
			_ = p.Sweep()
		case <-p.stopCh:
			return
		}
	}
}

func (p *Provider) load(id string) (document, bool, error) {
	b, err := p.c.Get(id)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return document{}, false, nil
	}
	if err != nil {
		return document{}, false, fmt.Errorf("bigcache backend: get: %w", err)
	}
	var d document
	if err := json.Unmarshal(b, &d); err != nil {
		return document{}, false, fmt.Errorf("bigcache backend: decode %q: %w", id, err)
	}
	return d, true, nil
}

func (p *Provider) store(id string, d document) error {
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("bigcache backend: encode: %w", err)
	}
	if err := p.c.Set(id, b); err != nil {
		return fmt.Errorf("bigcache backend: set: %w", err)
	}
	return nil
}

// each visits a snapshot of all entries; callers must not delete inside fn.
func (p *Provider) each(fn func(id string, d document)) error {
	it := p.c.Iterator()
	for it.SetNext() {
		e, err := it.Value()
		if err != nil {
			// entry changed under the iterator; skip it
			continue
		}
		var d document
		if err := json.Unmarshal(e.Value(), &d); err != nil {
			return fmt.Errorf("bigcache backend: decode %q: %w", e.Key(), err)
		}
		fn(e.Key(), d)
	}
	return nil
}

func (p *Provider) delete(ids []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range ids {
		if err := p.c.Delete(id); err != nil && !errors.Is(err, bc.ErrEntryNotFound) {
			return fmt.Errorf("bigcache backend: delete: %w", err)
		}
	}
	return nil
}

// storageKey length-prefixes the namespace so no key/namespace pair collides.
func storageKey(ns, key string) string {
	return strconv.Itoa(len(ns)) + ":" + ns + ":" + key
}
