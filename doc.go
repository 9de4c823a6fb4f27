// Package keyvarango implements a key-value cache store over a document
// database, using the database's native TTL index for expiration.
//
// Components:
//   - Backend: provisions a Collection of records (ArangoDB, Redis, or an
//     in-process BigCache store). Expiry is the backend's job.
//   - Codec[V]: (de)serializes V <-> []byte. JSON codecs are stored as a
//     native JSON value; binary codecs as a base64 string.
//   - Namespace: optional partition of the keyspace.
//
// Records:
//
//	{ key, value, namespace?, <expireField>? }  one per (key, namespace)
//
// The collection is provisioned lazily on the first operation and the
// handle is memoized for the store's lifetime unless
// Options.DisableCollectionCache is set.
//
// Usage:
//
//	be, _ := arango.New(arango.Config{Endpoints: []string{"http://localhost:8529"}})
//	st, _ := keyvarango.New[User](keyvarango.Options[User]{
//	    Namespace: "users",
//	    Backend:   be,
//	    Codec:     codec.JSON[User]{},
//	})
//	_ = st.Set(ctx, "u:1", u, time.Hour)
//	u, ok, err := st.Get(ctx, "u:1")
package keyvarango
