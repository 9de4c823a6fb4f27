// Package arango is a keyvarango backend over ArangoDB.
//
// Records live as documents in one collection:
//
//	{ _key, key, value, namespace?, <ExpireField>? }
//
// Provisioning creates (or opens) the database and collection and ensures a
// unique persistent index over (key, namespace) plus a TTL index over
// ExpireField. Expiry is left to ArangoDB's TTL background thread, which
// removes a document once ExpireField + ExpireAfterSeconds is in the past.
package arango

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	driver "github.com/arangodb/go-driver"
	arangohttp "github.com/arangodb/go-driver/http"

	"github.com/TimMikeladze/keyv-arango/backend"
)

const (
	DefaultDatabase    = "_system"
	DefaultCollection  = "keyv"
	DefaultExpireField = "expireDate"
	DefaultIndexPrefix = "keyv"
)

var ErrNoConnection = errors.New("arango backend: client or endpoints required")

// reserved document attributes the expiry field must not shadow.
var reserved = map[string]struct{}{
	"_key": {}, "_id": {}, "_rev": {}, "key": {}, "value": {}, "namespace": {},
}

type Config struct {
	// Client is used as-is when set. Otherwise a client is built from
	// Endpoints and the optional credentials.
	Client    driver.Client
	Endpoints []string
	Username  string
	Password  string
	TLSConfig *tls.Config

	DatabaseName       string // "" => _system
	CollectionName     string // "" => keyv
	ExpireField        string // "" => expireDate
	ExpireAfterSeconds int    // TTL index grace; 0 => delete at ExpireField
	IndexPrefix        string // index names; "" => keyv
}

type Backend struct {
	client driver.Client
	cfg    Config
}

var _ backend.Backend = (*Backend)(nil)

func New(cfg Config) (*Backend, error) {
	if cfg.DatabaseName == "" {
		cfg.DatabaseName = DefaultDatabase
	}
	if cfg.CollectionName == "" {
		cfg.CollectionName = DefaultCollection
	}
	if cfg.ExpireField == "" {
		cfg.ExpireField = DefaultExpireField
	}
	if cfg.IndexPrefix == "" {
		cfg.IndexPrefix = DefaultIndexPrefix
	}
	if _, ok := reserved[cfg.ExpireField]; ok {
		return nil, fmt.Errorf("arango backend: expire field %q collides with a record attribute", cfg.ExpireField)
	}
	if cfg.ExpireAfterSeconds < 0 {
		return nil, fmt.Errorf("arango backend: negative ExpireAfterSeconds %d", cfg.ExpireAfterSeconds)
	}

	client := cfg.Client
	if client == nil {
		if len(cfg.Endpoints) == 0 {
			return nil, ErrNoConnection
		}
		conn, err := arangohttp.NewConnection(arangohttp.ConnectionConfig{
			Endpoints: cfg.Endpoints,
			TLSConfig: cfg.TLSConfig,
		})
		if err != nil {
			return nil, fmt.Errorf("arango backend: connection: %w", err)
		}
		cc := driver.ClientConfig{Connection: conn}
		if cfg.Username != "" {
			cc.Authentication = driver.BasicAuthentication(cfg.Username, cfg.Password)
		}
		client, err = driver.NewClient(cc)
		if err != nil {
			return nil, fmt.Errorf("arango backend: client: %w", err)
		}
	}
	return &Backend{client: client, cfg: cfg}, nil
}

// Provision ensures database, collection and indexes exist.
func (b *Backend) Provision(ctx context.Context) (backend.Collection, error) {
	db, err := b.database(ctx)
	if err != nil {
		return nil, fmt.Errorf("arango backend: database %q: %w", b.cfg.DatabaseName, err)
	}
	name := b.cfg.CollectionName
	col, err := backend.CreateOrOpen(ctx,
		func(ctx context.Context) (driver.Collection, error) { return db.CreateCollection(ctx, name, nil) },
		func(ctx context.Context) (driver.Collection, error) { return db.Collection(ctx, name) },
	)
	if err != nil {
		return nil, fmt.Errorf("arango backend: collection %q: %w", name, err)
	}

	if _, _, err := col.EnsurePersistentIndex(ctx, []string{"key", "namespace"}, &driver.EnsurePersistentIndexOptions{
		Unique: true,
		Name:   indexName(b.cfg.IndexPrefix, "key_namespace"),
	}); err != nil {
		return nil, fmt.Errorf("arango backend: unique index: %w", err)
	}
	if _, _, err := col.EnsureTTLIndex(ctx, b.cfg.ExpireField, b.cfg.ExpireAfterSeconds, &driver.EnsureTTLIndexOptions{
		Name: indexName(b.cfg.IndexPrefix, "ttl"),
	}); err != nil {
		return nil, fmt.Errorf("arango backend: ttl index: %w", err)
	}

	return &collection{
		db:          db,
		docs:        col,
		name:        name,
		expireField: b.cfg.ExpireField,
		grace:       time.Duration(b.cfg.ExpireAfterSeconds) * time.Second,
	}, nil
}

func (b *Backend) database(ctx context.Context) (driver.Database, error) {
	name := b.cfg.DatabaseName
	if name == DefaultDatabase {
		// _system always exists and cannot be created.
		return b.client.Database(ctx, name)
	}
	return backend.CreateOrOpen(ctx,
		func(ctx context.Context) (driver.Database, error) { return b.client.CreateDatabase(ctx, name, nil) },
		func(ctx context.Context) (driver.Database, error) { return b.client.Database(ctx, name) },
	)
}

// Close is a no-op; the HTTP connection has nothing to release.
func (b *Backend) Close(context.Context) error { return nil }

// querier and documents are the slices of driver.Database and
// driver.Collection the collection needs.
type querier interface {
	Query(ctx context.Context, query string, bindVars map[string]interface{}) (driver.Cursor, error)
}

type documents interface {
	CreateDocument(ctx context.Context, document interface{}) (driver.DocumentMeta, error)
	ReplaceDocument(ctx context.Context, key string, document interface{}) (driver.DocumentMeta, error)
}

type collection struct {
	db          querier
	docs        documents
	name        string
	expireField string
	grace       time.Duration
}

var _ backend.Collection = (*collection)(nil)

type row struct {
	ID        string          `json:"id"`
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	Namespace *string         `json:"namespace"`
	ExpiresAt *float64        `json:"expiresAt"`
}

func (r row) record() backend.Record {
	rec := backend.Record{ID: r.ID, Key: r.Key, Value: r.Value}
	if r.Namespace != nil {
		rec.Namespace = *r.Namespace
	}
	if r.ExpiresAt != nil {
		exp := int64(math.Floor(*r.ExpiresAt))
		rec.ExpiresAt = &exp
	}
	return rec
}

func (c *collection) Find(ctx context.Context, scope backend.Scope, keys []string) ([]backend.Record, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	q := findQuery(c.name, c.expireField, scope, keys)
	cur, err := c.db.Query(ctx, q.String(), q.vars)
	if err != nil {
		return nil, fmt.Errorf("arango backend: find: %w", err)
	}
	defer cur.Close()

	var out []backend.Record
	for {
		var r row
		if _, err := cur.ReadDocument(ctx, &r); err != nil {
			if driver.IsNoMoreDocuments(err) {
				return out, nil
			}
			return nil, fmt.Errorf("arango backend: find: %w", err)
		}
		out = append(out, r.record())
	}
}

// document is the stored shape of r; empty namespace and nil expiry are
// omitted so the TTL index skips records that never expire.
func (c *collection) document(r backend.Record) map[string]any {
	doc := map[string]any{"key": r.Key, "value": r.Value}
	if r.Namespace != "" {
		doc["namespace"] = r.Namespace
	}
	if r.ExpiresAt != nil {
		doc[c.expireField] = *r.ExpiresAt
	}
	return doc
}

func (c *collection) Insert(ctx context.Context, r backend.Record) error {
	if _, err := c.docs.CreateDocument(ctx, c.document(r)); err != nil {
		if driver.IsConflict(err) {
			return fmt.Errorf("%w: %v", backend.ErrDuplicate, err)
		}
		return fmt.Errorf("arango backend: insert: %w", err)
	}
	return nil
}

// Update replaces the whole document. A PATCH would deep-merge object
// values into the old one, leaving fields the new value no longer has.
func (c *collection) Update(ctx context.Context, r backend.Record) error {
	if _, err := c.docs.ReplaceDocument(ctx, r.ID, c.document(r)); err != nil {
		if driver.IsNotFound(err) {
			return fmt.Errorf("%w: %v", backend.ErrNotFound, err)
		}
		return fmt.Errorf("arango backend: update: %w", err)
	}
	return nil
}

func (c *collection) Remove(ctx context.Context, scope backend.Scope, key string) (int, error) {
	n, err := c.remove(ctx, removeQuery(c.name, scope, &key))
	if err != nil {
		return 0, fmt.Errorf("arango backend: remove: %w", err)
	}
	return n, nil
}

func (c *collection) RemoveAll(ctx context.Context, scope backend.Scope) error {
	if _, err := c.remove(ctx, removeQuery(c.name, scope, nil)); err != nil {
		return fmt.Errorf("arango backend: remove all: %w", err)
	}
	return nil
}

func (c *collection) ExpireAfter() time.Duration { return c.grace }

func (c *collection) remove(ctx context.Context, q *query) (int, error) {
	cur, err := c.db.Query(ctx, q.String(), q.vars)
	if err != nil {
		return 0, err
	}
	defer cur.Close()

	n := 0
	for {
		var id string
		if _, err := cur.ReadDocument(ctx, &id); err != nil {
			if driver.IsNoMoreDocuments(err) {
				return n, nil
			}
			return n, err
		}
		n++
	}
}
