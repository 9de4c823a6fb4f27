package codec

import "encoding/json"

// Bytes is an identity codec for []byte values. Encode/Decode return the
// input unchanged; the store keeps them as a base64 string.
type Bytes struct{}

func (Bytes) Encode(b []byte) ([]byte, error) { return b, nil }
func (Bytes) Decode(b []byte) ([]byte, error) { return b, nil }

// String stores Go strings as plain JSON strings, so a record written with
// String reads back as {"value": "..."} in the database.
type String struct{}

var _ JSONNative = String{}

func (String) Encode(s string) ([]byte, error) { return json.Marshal(s) }
func (String) Decode(b []byte) (string, error) {
	var s string
	err := json.Unmarshal(b, &s)
	return s, err
}

func (String) JSONPayload() bool { return true }
