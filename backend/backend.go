// Package backend defines the storage abstraction used by keyvarango.
//
// A Backend provisions a Collection (creating the database, collection and
// indexes it needs on first use). A Collection stores Records addressed by
// (Key, Namespace) and identified internally by a backend-assigned ID.
//
// Backends own expiration: records carry an absolute ExpiresAt and the
// backend is expected to delete them eventually (ArangoDB TTL index, Redis
// EXPIREAT, a sweep loop for in-process stores). The store treats expired
// records as absent on read regardless of whether they were swept yet.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrDuplicate is returned by Insert when a record for the same
	// (Key, Namespace) already exists.
	ErrDuplicate = errors.New("backend: duplicate record")
	// ErrNotFound is returned by Update when the target ID no longer exists.
	ErrNotFound = errors.New("backend: record not found")
)

// Record is a single persisted cache entry.
type Record struct {
	ID        string          // backend-assigned; empty on Insert
	Key       string          // caller key
	Namespace string          // "" => no namespace
	Value     json.RawMessage // encoded payload, always valid JSON
	ExpiresAt *int64          // unix seconds; nil => no expiry
}

// Expired reports whether r is past its expiry plus grace at now.
func (r Record) Expired(now time.Time, grace time.Duration) bool {
	if r.ExpiresAt == nil {
		return false
	}
	return now.Unix() > *r.ExpiresAt+int64(grace/time.Second)
}

// Scope selects which records an operation sees.
//
// With Namespace set, only records of that namespace match. With Namespace
// empty and Strict false, no namespace filter is applied at all and every
// record matches. With Namespace empty and Strict true, only records
// without a namespace match.
type Scope struct {
	Namespace string
	Strict    bool
}

// Filtered reports whether a namespace predicate applies.
func (s Scope) Filtered() bool { return s.Namespace != "" || s.Strict }

// Match reports whether a record with namespace ns is visible in s.
func (s Scope) Match(ns string) bool {
	if !s.Filtered() {
		return true
	}
	return ns == s.Namespace
}

// Collection is a provisioned record store. Must be safe for concurrent use.
type Collection interface {
	// Find returns every record in scope whose Key is one of keys,
	// expired-but-unswept records included. Order is unspecified.
	Find(ctx context.Context, scope Scope, keys []string) ([]Record, error)

	// Insert stores a new record. Returns ErrDuplicate if (Key, Namespace)
	// is already taken.
	Insert(ctx context.Context, r Record) error

	// Update replaces the value and expiry of the record r.ID with those of
	// r. Nothing of the old value survives, and a nil ExpiresAt clears the
	// expiry. Returns ErrNotFound if the ID is gone.
	Update(ctx context.Context, r Record) error

	// Remove deletes records in scope with the given key and returns how
	// many were removed.
	Remove(ctx context.Context, scope Scope, key string) (int, error)

	// RemoveAll deletes every record in scope.
	RemoveAll(ctx context.Context, scope Scope) error

	// ExpireAfter is the grace period added to ExpiresAt before the
	// backend deletes a record.
	ExpireAfter() time.Duration
}

// Backend provisions collections.
type Backend interface {
	// Provision ensures the collection and its indexes exist and returns
	// a handle. Must be idempotent.
	Provision(ctx context.Context) (Collection, error)

	// Close releases resources.
	Close(ctx context.Context) error
}
