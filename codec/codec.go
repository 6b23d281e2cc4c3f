// Package codec implements the payload codecs used by platform channels:
// the standard binary codec, the JSON codec, the plain string codec and the
// raw binary passthrough, plus the method-call envelope layered on top of
// them. The standard codec's byte layout MUST match the remote runtime's
// codec exactly; any deviation breaks interop silently.
package codec

import (
	"errors"
	"fmt"
)

// MessageCodec encodes and decodes a single Value per message buffer.
type MessageCodec interface {
	// EncodeMessage encodes value into a message buffer.
	EncodeMessage(value Value) ([]byte, error)
	// DecodeMessage decodes a message buffer into a Value. The whole buffer
	// must be consumed; trailing bytes are malformed.
	DecodeMessage(data []byte) (Value, error)
}

// MethodCodec encodes and decodes method calls and their reply envelopes.
type MethodCodec interface {
	// EncodeMethodCall encodes a method call into a channel payload.
	EncodeMethodCall(call MethodCall) ([]byte, error)
	// DecodeMethodCall decodes a channel payload into a method call.
	DecodeMethodCall(data []byte) (MethodCall, error)
	// EncodeSuccessEnvelope encodes a successful result.
	EncodeSuccessEnvelope(result Value) ([]byte, error)
	// EncodeErrorEnvelope encodes an error reply. An empty message encodes
	// as null on the wire.
	EncodeErrorEnvelope(code, message string, details Value) ([]byte, error)
	// DecodeEnvelope decodes a reply buffer. A zero-length buffer decodes
	// as NotImplemented, never as Success(Null).
	DecodeEnvelope(data []byte) (MethodResult, error)
}

// CodecErrorKind discriminates codec failures.
type CodecErrorKind int

const (
	// ErrorKindMalformed marks undersized, truncated or structurally
	// inconsistent buffers.
	ErrorKindMalformed CodecErrorKind = iota
	// ErrorKindUnsupportedType marks unknown type discriminants and values
	// a codec cannot represent.
	ErrorKindUnsupportedType
)

func (k CodecErrorKind) String() string {
	switch k {
	case ErrorKindMalformed:
		return "Malformed"
	case ErrorKindUnsupportedType:
		return "UnsupportedType"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// CodecError represents a decode or encode failure.
type CodecError struct {
	Kind    CodecErrorKind
	Message string
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewMalformedError creates a malformed-buffer error.
func NewMalformedError(format string, args ...interface{}) *CodecError {
	return &CodecError{Kind: ErrorKindMalformed, Message: fmt.Sprintf(format, args...)}
}

// NewUnsupportedTypeError creates an unsupported-type error.
func NewUnsupportedTypeError(format string, args ...interface{}) *CodecError {
	return &CodecError{Kind: ErrorKindUnsupportedType, Message: fmt.Sprintf(format, args...)}
}

// IsMalformed reports whether err is a malformed-buffer codec error.
func IsMalformed(err error) bool {
	var ce *CodecError
	return errors.As(err, &ce) && ce.Kind == ErrorKindMalformed
}

// IsUnsupportedType reports whether err is an unsupported-type codec error.
func IsUnsupportedType(err error) bool {
	var ce *CodecError
	return errors.As(err, &ce) && ce.Kind == ErrorKindUnsupportedType
}
