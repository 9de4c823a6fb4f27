package codec

import (
	"errors"
	"fmt"
)

// LimitCodec refuses to decode payloads longer than MaxDecode bytes before
// handing them to Inner. A collection shared with other writers can hold
// arbitrarily large values; the check bounds what a single Get allocates.
// The limit applies to the codec payload, i.e. after base64 unwrapping.
// MaxDecode <= 0 disables the check.
type LimitCodec[V any] struct {
	Inner     Codec[V]
	MaxDecode int
}

// ErrPayloadTooLarge is wrapped by LimitCodec.Decode on oversized input.
var ErrPayloadTooLarge = errors.New("codec: payload too large")

func (c LimitCodec[V]) Encode(v V) ([]byte, error) { return c.Inner.Encode(v) }

func (c LimitCodec[V]) Decode(b []byte) (V, error) {
	if c.MaxDecode > 0 && len(b) > c.MaxDecode {
		var zero V
		return zero, fmt.Errorf("%w: %d > %d bytes", ErrPayloadTooLarge, len(b), c.MaxDecode)
	}
	return c.Inner.Decode(b)
}

// JSONPayload follows Inner, so wrapping never changes how a value is stored.
func (c LimitCodec[V]) JSONPayload() bool { return IsJSON(c.Inner) }
