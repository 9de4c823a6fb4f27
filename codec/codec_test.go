package codec

import (
	"errors"
	"strings"
	"testing"
	"time"

	"google.golang.org/protobuf/types/known/wrapperspb"
)

type item struct {
	ID   string    `json:"id" msgpack:"id" cbor:"id"`
	N    int       `json:"n" msgpack:"n" cbor:"n"`
	Seen time.Time `json:"seen" msgpack:"seen" cbor:"seen"`
}

func TestIsJSON(t *testing.T) {
	cases := []struct {
		name string
		c    any
		want bool
	}{
		{"json", JSON[item]{}, true},
		{"string", String{}, true},
		{"bytes", Bytes{}, false},
		{"msgpack", Msgpack[item]{}, false},
		{"cbor", MustCBOR[item](CBOROptions{}), false},
		{"limit over json", LimitCodec[item]{Inner: JSON[item]{}}, true},
		{"limit over msgpack", LimitCodec[item]{Inner: Msgpack[item]{}}, false},
	}
	for _, tc := range cases {
		if got := IsJSON(tc.c); got != tc.want {
			t.Fatalf("%s: IsJSON=%v want %v", tc.name, got, tc.want)
		}
	}
}

func TestCodecsPreserveValues(t *testing.T) {
	want := item{ID: "a", N: 7, Seen: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	codecs := map[string]Codec[item]{
		"json":    JSON[item]{},
		"msgpack": Msgpack[item]{},
		"cbor":    MustCBOR[item](CBOROptions{Deterministic: true}),
	}
	for name, c := range codecs {
		b, err := c.Encode(want)
		if err != nil {
			t.Fatalf("%s: Encode: %v", name, err)
		}
		got, err := c.Decode(b)
		if err != nil {
			t.Fatalf("%s: Decode: %v", name, err)
		}
		if got.ID != want.ID || got.N != want.N || !got.Seen.Equal(want.Seen) {
			t.Fatalf("%s: got %+v want %+v", name, got, want)
		}
	}
}

func TestStringIsJSONString(t *testing.T) {
	b, err := String{}.Encode(`he said "hi"`)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"he said \"hi\""` {
		t.Fatalf("unexpected encoding %s", b)
	}
	s, err := String{}.Decode(b)
	if err != nil || s != `he said "hi"` {
		t.Fatalf("Decode=%q err=%v", s, err)
	}
}

func TestLimitCodecRejectsOversized(t *testing.T) {
	c := LimitCodec[string]{Inner: String{}, MaxDecode: 8}
	if _, err := c.Decode([]byte(`"` + strings.Repeat("x", 16) + `"`)); !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
	if s, err := c.Decode([]byte(`"ok"`)); err != nil || s != "ok" {
		t.Fatalf("small payload: %q %v", s, err)
	}
}

func TestCBORDeterministic(t *testing.T) {
	c := MustCBOR[map[string]int](CBOROptions{Deterministic: true})
	a, err := c.Encode(map[string]int{"b": 2, "a": 1, "c": 3})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		b, err := c.Encode(map[string]int{"c": 3, "a": 1, "b": 2})
		if err != nil {
			t.Fatal(err)
		}
		if string(a) != string(b) {
			t.Fatalf("deterministic CBOR produced different bytes")
		}
	}
}

func TestProtobuf(t *testing.T) {
	c := NewProtobuf(func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} })
	b, err := c.Encode(wrapperspb.String("hello"))
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.Decode(b)
	if err != nil || got.GetValue() != "hello" {
		t.Fatalf("Decode=%v err=%v", got, err)
	}
	if IsJSON(c) {
		t.Fatalf("protobuf must not be stored as native JSON")
	}
}

func TestProtoJSON(t *testing.T) {
	c := NewProtoJSON(func() *wrapperspb.Int64Value { return &wrapperspb.Int64Value{} })
	if !IsJSON(c) {
		t.Fatalf("protojson codec should be stored as native JSON")
	}
	b, err := c.Encode(wrapperspb.Int64(42))
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.Decode(b)
	if err != nil || got.GetValue() != 42 {
		t.Fatalf("Decode=%v err=%v", got, err)
	}
}

func TestProtobufWithoutCtor(t *testing.T) {
	var c Protobuf[*wrapperspb.StringValue]
	if _, err := c.Decode(nil); err == nil {
		t.Fatalf("expected error from zero-value codec")
	}
}
