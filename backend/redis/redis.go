// Package redis is a keyvarango backend over Redis.
//
// Each record is one string key holding a JSON document:
//
//	<prefix>:<escaped namespace>:<escaped key> -> {"key":..,"value":..,"namespace":..,"expiresAt":..}
//
// Namespace and key are query-escaped so neither contains ':' or glob
// metacharacters; that keeps SCAN patterns exact. Expiry uses EXPIREAT at
// ExpiresAt + ExpireAfter, so Redis itself deletes expired records.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/TimMikeladze/keyv-arango/backend"
)

const (
	DefaultPrefix    = "keyv"
	defaultScanCount = 256
)

var ErrNilClient = errors.New("redis backend: nil client")

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool          // set true only if this backend exclusively owns the client
	Prefix      string        // "" => keyv
	ExpireAfter time.Duration // grace added to ExpiresAt before EXPIREAT fires
	ScanCount   int64         // SCAN COUNT hint; 0 => 256
}

type Redis struct {
	rdb         goredis.UniversalClient
	closeClient bool
	prefix      string
	grace       time.Duration
	scanCount   int64
}

var (
	_ backend.Backend    = (*Redis)(nil)
	_ backend.Collection = (*Redis)(nil)
)

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	count := cfg.ScanCount
	if count <= 0 {
		count = defaultScanCount
	}
	return &Redis{
		rdb:         cfg.Client,
		closeClient: cfg.CloseClient,
		prefix:      escape(prefix),
		grace:       cfg.ExpireAfter,
		scanCount:   count,
	}, nil
}

// Provision pings the server; Redis needs no schema.
func (p *Redis) Provision(ctx context.Context) (backend.Collection, error) {
	if err := p.rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis backend: ping: %w", err)
	}
	return p, nil
}

type document struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	Namespace string          `json:"namespace,omitempty"`
	ExpiresAt *int64          `json:"expiresAt,omitempty"`
}

func (p *Redis) Find(ctx context.Context, scope backend.Scope, keys []string) ([]backend.Record, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	var ids []string
	if scope.Filtered() {
		ids = make([]string, 0, len(keys))
		seen := make(map[string]struct{}, len(keys))
		for _, k := range keys {
			id := p.storageKey(scope.Namespace, k)
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	} else {
		var err error
		if ids, err = p.scanKeys(ctx, keys); err != nil {
			return nil, fmt.Errorf("redis backend: find: %w", err)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	vals, err := p.rdb.MGet(ctx, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis backend: find: %w", err)
	}
	out := make([]backend.Record, 0, len(vals))
	for i, v := range vals {
		var raw []byte
		switch vv := v.(type) {
		case nil:
			continue // miss or expired between scan and get
		case string:
			raw = []byte(vv)
		case []byte:
			raw = vv
		default:
			return nil, fmt.Errorf("redis backend: unexpected value type %T at %s", v, ids[i])
		}
		var d document
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("redis backend: decode %s: %w", ids[i], err)
		}
		out = append(out, backend.Record{
			ID:        ids[i],
			Key:       d.Key,
			Namespace: d.Namespace,
			Value:     d.Value,
			ExpiresAt: d.ExpiresAt,
		})
	}
	return out, nil
}

func (p *Redis) Insert(ctx context.Context, r backend.Record) error {
	b, err := json.Marshal(document{Key: r.Key, Value: r.Value, Namespace: r.Namespace, ExpiresAt: r.ExpiresAt})
	if err != nil {
		return fmt.Errorf("redis backend: encode: %w", err)
	}
	err = p.rdb.SetArgs(ctx, p.storageKey(r.Namespace, r.Key), b, goredis.SetArgs{
		Mode:     "NX",
		ExpireAt: p.expireAt(r.ExpiresAt),
	}).Err()
	if err == goredis.Nil {
		return backend.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("redis backend: insert: %w", err)
	}
	return nil
}

func (p *Redis) Update(ctx context.Context, r backend.Record) error {
	id := r.ID
	key, ns, err := p.parseStorageKey(id)
	if err != nil {
		return err
	}
	b, err := json.Marshal(document{Key: key, Value: r.Value, Namespace: ns, ExpiresAt: r.ExpiresAt})
	if err != nil {
		return fmt.Errorf("redis backend: encode: %w", err)
	}
	// without ExpireAt, SET XX drops any previous TTL
	err = p.rdb.SetArgs(ctx, id, b, goredis.SetArgs{
		Mode:     "XX",
		ExpireAt: p.expireAt(r.ExpiresAt),
	}).Err()
	if err == goredis.Nil {
		return backend.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("redis backend: update: %w", err)
	}
	return nil
}

func (p *Redis) Remove(ctx context.Context, scope backend.Scope, key string) (int, error) {
	var ids []string
	if scope.Filtered() {
		ids = []string{p.storageKey(scope.Namespace, key)}
	} else {
		var err error
		if ids, err = p.scanKeys(ctx, []string{key}); err != nil {
			return 0, fmt.Errorf("redis backend: remove: %w", err)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := p.rdb.Del(ctx, ids...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis backend: remove: %w", err)
	}
	return int(n), nil
}

func (p *Redis) RemoveAll(ctx context.Context, scope backend.Scope) error {
	pattern := p.prefix + ":*"
	if scope.Filtered() {
		pattern = p.prefix + ":" + escape(scope.Namespace) + ":*"
	}
	batch := make([]string, 0, p.scanCount)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := p.rdb.Del(ctx, batch...).Err()
		batch = batch[:0]
		return err
	}
	iter := p.rdb.Scan(ctx, 0, pattern, p.scanCount).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if int64(len(batch)) >= p.scanCount {
			if err := flush(); err != nil {
				return fmt.Errorf("redis backend: remove all: %w", err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis backend: remove all: %w", err)
	}
	if err := flush(); err != nil {
		return fmt.Errorf("redis backend: remove all: %w", err)
	}
	return nil
}

func (p *Redis) ExpireAfter() time.Duration { return p.grace }

// Close releases the underlying redis client only when this backend owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (p *Redis) Close(context.Context) error {
	if p.closeClient {
		if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

// scanKeys finds storage keys for the given user keys in every namespace.
func (p *Redis) scanKeys(ctx context.Context, keys []string) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})
	for _, k := range keys {
		iter := p.rdb.Scan(ctx, 0, p.prefix+":*:"+escape(k), p.scanCount).Iterator()
		for iter.Next(ctx) {
			id := iter.Val()
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
		if err := iter.Err(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (p *Redis) expireAt(expiresAt *int64) time.Time {
	if expiresAt == nil {
		return time.Time{}
	}
	return time.Unix(*expiresAt, 0).Add(p.grace)
}

func (p *Redis) storageKey(ns, key string) string {
	return p.prefix + ":" + escape(ns) + ":" + escape(key)
}

func (p *Redis) parseStorageKey(id string) (key, ns string, err error) {
	rest, ok := strings.CutPrefix(id, p.prefix+":")
	if !ok {
		return "", "", fmt.Errorf("redis backend: foreign id %q", id)
	}
	escNS, escKey, ok := strings.Cut(rest, ":")
	if !ok {
		return "", "", fmt.Errorf("redis backend: malformed id %q", id)
	}
	if ns, err = url.QueryUnescape(escNS); err != nil {
		return "", "", fmt.Errorf("redis backend: malformed id %q: %w", id, err)
	}
	if key, err = url.QueryUnescape(escKey); err != nil {
		return "", "", fmt.Errorf("redis backend: malformed id %q: %w", id, err)
	}
	return key, ns, nil
}

// escape leaves only [A-Za-z0-9-_.~] and %XX, so no ':' or glob metacharacters.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
