package codec

import "unicode/utf8"

// StringCodec carries a single string per message as raw UTF-8 bytes, with
// no framing of its own.
type StringCodec struct{}

// BinaryCodec passes message bytes through untouched, for channels whose
// handler does its own decoding. Values must be byte lists.
type BinaryCodec struct{}

var (
	StringMessage = StringCodec{}
	BinaryMessage = BinaryCodec{}
)

// EncodeMessage implements MessageCodec.
func (StringCodec) EncodeMessage(value Value) ([]byte, error) {
	if value.Kind() != KindString {
		return nil, NewUnsupportedTypeError("string codec cannot encode kind %s", value.Kind())
	}
	return []byte(value.String()), nil
}

// DecodeMessage implements MessageCodec.
func (StringCodec) DecodeMessage(data []byte) (Value, error) {
	if !utf8.Valid(data) {
		return Value{}, NewMalformedError("message is not valid UTF-8")
	}
	return String(string(data)), nil
}

// EncodeMessage implements MessageCodec.
func (BinaryCodec) EncodeMessage(value Value) ([]byte, error) {
	if value.Kind() != KindByteList {
		return nil, NewUnsupportedTypeError("binary codec cannot encode kind %s", value.Kind())
	}
	return value.ByteList(), nil
}

// DecodeMessage implements MessageCodec.
func (BinaryCodec) DecodeMessage(data []byte) (Value, error) {
	return ByteList(data), nil
}
