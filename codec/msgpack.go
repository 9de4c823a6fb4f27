package codec

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Msgpack stores values as MessagePack. Smaller than JSON for numeric-heavy
// values, but the record's value field becomes a base64 string that AQL
// cannot look inside. Field names follow `msgpack:"..."` tags.
type Msgpack[V any] struct{}

var _ Codec[struct{}] = Msgpack[struct{}]{}

func (Msgpack[V]) Encode(v V) ([]byte, error) { return msgpack.Marshal(v) }

func (Msgpack[V]) Decode(b []byte) (V, error) {
	var v V
	if err := msgpack.Unmarshal(b, &v); err != nil {
		return v, fmt.Errorf("msgpack codec: %w", err)
	}
	return v, nil
}
