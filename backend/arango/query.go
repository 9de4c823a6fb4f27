package arango

import (
	"strings"

	"github.com/TimMikeladze/keyv-arango/backend"
)

// query is an AQL statement plus its bind parameters. Values never get
// interpolated into the text; the collection goes through @@col.
type query struct {
	text strings.Builder
	vars map[string]any
}

func newQuery(collection string) *query {
	return &query{vars: map[string]any{"@col": collection}}
}

func (q *query) line(s string) *query {
	if q.text.Len() > 0 {
		q.text.WriteByte('\n')
	}
	q.text.WriteString(s)
	return q
}

func (q *query) bind(name string, v any) *query {
	q.vars[name] = v
	return q
}

// scope appends the namespace predicate. Unfiltered scopes add nothing.
func (q *query) scope(s backend.Scope) *query {
	if !s.Filtered() {
		return q
	}
	if s.Namespace == "" {
		return q.line("  FILTER doc.namespace == null")
	}
	return q.line("  FILTER doc.namespace == @namespace").bind("namespace", s.Namespace)
}

func (q *query) String() string { return q.text.String() }

// findQuery selects records by key in scope, projecting the configured
// expiry field onto a fixed name.
func findQuery(collection, expireField string, s backend.Scope, keys []string) *query {
	q := newQuery(collection).line("FOR doc IN @@col").scope(s)
	if len(keys) == 1 {
		q.line("  FILTER doc.key == @key").bind("key", keys[0])
	} else {
		q.line("  FILTER doc.key IN @keys").bind("keys", keys)
	}
	return q.line("  RETURN { id: doc._key, key: doc.key, value: doc.value, namespace: doc.namespace, expiresAt: doc[@field] }").
		bind("field", expireField)
}

// removeQuery deletes records in scope, optionally restricted to a key,
// returning one row per removed document.
func removeQuery(collection string, s backend.Scope, key *string) *query {
	q := newQuery(collection).line("FOR doc IN @@col").scope(s)
	if key != nil {
		q.line("  FILTER doc.key == @key").bind("key", *key)
	}
	return q.line("  REMOVE doc IN @@col").line("  RETURN OLD._key")
}

// indexName joins prefix and suffix with an underscore, dropping empties.
func indexName(prefix, suffix string) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{prefix, suffix} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "_")
}
