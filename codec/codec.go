// Package codec converts cache values to and from the bytes stored in a
// record's value field.
//
// Codecs whose output is JSON implement JSONNative; the store embeds their
// bytes in the document as a native JSON value, which keeps records
// readable and queryable in the database. Any other codec's output is
// stored as a base64 JSON string.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// JSONNative is implemented by codecs whose Encode output is valid JSON.
type JSONNative interface {
	JSONPayload() bool
}

// IsJSON reports whether c declares JSON output.
func IsJSON(c any) bool {
	n, ok := c.(JSONNative)
	return ok && n.JSONPayload()
}
