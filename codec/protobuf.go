package codec

import (
	"errors"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// Protobuf stores messages of type T. By default the binary wire format is
// used and kept as a base64 string in the record; with JSON set the message
// is written with protojson and embedded as a native JSON value instead.
type Protobuf[T proto.Message] struct {
	newMsg func() T
	json   bool
}

// NewProtobuf returns a binary protobuf codec. ctor must return a fresh,
// non-nil message, e.g. func() *pb.User { return &pb.User{} }.
func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{newMsg: ctor}
}

// NewProtoJSON returns a protobuf codec that stores the canonical JSON
// mapping of the message.
func NewProtoJSON[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{newMsg: ctor, json: true}
}

var errNoCtor = errors.New("protobuf codec: no message constructor")

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	if c.json {
		return protojson.Marshal(v)
	}
	return proto.Marshal(v)
}

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	if c.newMsg == nil {
		var zero T
		return zero, errNoCtor
	}
	m := c.newMsg()
	if c.json {
		return m, protojson.Unmarshal(b, m)
	}
	return m, proto.Unmarshal(b, m)
}

// JSONPayload reports whether the codec was built with NewProtoJSON.
func (c Protobuf[T]) JSONPayload() bool { return c.json }
