package arango_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	keyvarango "github.com/TimMikeladze/keyv-arango"
	"github.com/TimMikeladze/keyv-arango/backend/arango"
	"github.com/TimMikeladze/keyv-arango/codec"
)

// Set ARANGO_URL (and optionally ARANGO_USER / ARANGO_PASSWORD) to run
// these against a live server, e.g. ARANGO_URL=http://localhost:8529.
func newBackend(t *testing.T) *arango.Backend {
	t.Helper()
	url := os.Getenv("ARANGO_URL")
	if url == "" {
		t.Skip("ARANGO_URL not set")
	}
	be, err := arango.New(arango.Config{
		Endpoints:      []string{url},
		Username:       os.Getenv("ARANGO_USER"),
		Password:       os.Getenv("ARANGO_PASSWORD"),
		CollectionName: fmt.Sprintf("keyv_it_%d", time.Now().UnixNano()),
	})
	if err != nil {
		t.Fatalf("arango.New: %v", err)
	}
	return be
}

func newStore(t *testing.T, namespace string) keyvarango.Store[string] {
	t.Helper()
	be := newBackend(t)
	st, err := keyvarango.New[string](keyvarango.Options[string]{
		Backend:   be,
		Codec:     codec.String{},
		Namespace: namespace,
	})
	if err != nil {
		t.Fatalf("keyvarango.New: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Clear(context.Background())
		_ = st.Close(context.Background())
	})
	return st
}

func TestArangoRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newStore(t, "it")

	if _, ok, err := st.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("miss: ok=%v err=%v", ok, err)
	}
	if err := st.Set(ctx, "k", "v1", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := st.Set(ctx, "k", "v2", 0); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	v, ok, err := st.Get(ctx, "k")
	if err != nil || !ok || v != "v2" {
		t.Fatalf("Get=%q ok=%v err=%v", v, ok, err)
	}

	res, err := st.GetMany(ctx, []string{"k", "nope", "k"})
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if !res[0].Found || res[1].Found || !res[2].Found || res[2].Value != "v2" {
		t.Fatalf("GetMany=%+v", res)
	}

	removed, err := st.Delete(ctx, "k")
	if err != nil || !removed {
		t.Fatalf("Delete removed=%v err=%v", removed, err)
	}
	if removed, _ := st.Delete(ctx, "k"); removed {
		t.Fatalf("second Delete reported removal")
	}
}

func TestArangoOverwriteDropsOldFields(t *testing.T) {
	ctx := context.Background()
	st, err := keyvarango.New[map[string]int](keyvarango.Options[map[string]int]{
		Backend: newBackend(t),
		Codec:   codec.JSON[map[string]int]{},
	})
	if err != nil {
		t.Fatalf("keyvarango.New: %v", err)
	}
	t.Cleanup(func() { _ = st.Clear(ctx) })

	if err := st.Set(ctx, "obj", map[string]int{"a": 1, "b": 2}, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := st.Set(ctx, "obj", map[string]int{"a": 3}, 0); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, ok, err := st.Get(ctx, "obj")
	if err != nil || !ok {
		t.Fatalf("Get ok=%v err=%v", ok, err)
	}
	if len(got) != 1 || got["a"] != 3 {
		t.Fatalf("Get=%v want map[a:3]", got)
	}
}

func TestArangoClearIsScoped(t *testing.T) {
	ctx := context.Background()
	st := newStore(t, "a")
	if err := st.Set(ctx, "x", "1", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := st.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if ok, err := st.Has(ctx, "x"); err != nil || ok {
		t.Fatalf("Has after Clear: ok=%v err=%v", ok, err)
	}
}

func TestArangoTTL(t *testing.T) {
	ctx := context.Background()
	st := newStore(t, "ttl")
	if err := st.Set(ctx, "short", "v", 100*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	// reads hide the record once its expiry second has passed; the server
	// sweep removes the document later
	deadline := time.Now().Add(10 * time.Second)
	for {
		ok, err := st.Has(ctx, "short")
		if err != nil {
			t.Fatalf("Has: %v", err)
		}
		if !ok {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("record still present after TTL sweep window")
		}
		time.Sleep(200 * time.Millisecond)
	}
}
