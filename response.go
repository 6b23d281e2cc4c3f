package flutterhost

import (
	"log/slog"
	"runtime"
	"sync/atomic"

	"github.com/machinefabric/flutterhost-go/codec"
	"github.com/machinefabric/flutterhost-go/embedder"
)

// ResponseHandle is the one-shot reply capability for an inbound platform
// message. It may be handed off across goroutines freely, but exactly one
// reply goes through it: the first Respond or NotImplemented wins and
// every later attempt returns ErrAlreadyResponded.
//
// A handle that is garbage collected without ever replying logs a warning,
// since the remote caller is left waiting forever.
type ResponseHandle struct {
	channel  string
	token    embedder.ResponseToken
	send     func(token embedder.ResponseToken, message []byte) error
	consumed atomic.Bool
}

func newResponseHandle(channel string, token embedder.ResponseToken, send func(embedder.ResponseToken, []byte) error) *ResponseHandle {
	h := &ResponseHandle{channel: channel, token: token, send: send}
	runtime.SetFinalizer(h, func(h *ResponseHandle) {
		if !h.consumed.Load() {
			slog.Warn("platform message dropped without a response", "channel", h.channel)
		}
	})
	return h
}

// Channel returns the name of the channel the message arrived on.
func (h *ResponseHandle) Channel() string {
	return h.channel
}

// Respond sends the raw reply bytes. A nil or empty message is the
// not-implemented reply; use NotImplemented to make that intent explicit.
func (h *ResponseHandle) Respond(message []byte) error {
	if !h.consumed.CompareAndSwap(false, true) {
		return ErrAlreadyResponded
	}
	runtime.SetFinalizer(h, nil)
	return h.send(h.token, message)
}

// NotImplemented sends the zero-length reply that tells the caller no
// handler claims this message.
func (h *ResponseHandle) NotImplemented() error {
	return h.Respond(nil)
}

// Responded reports whether a reply has already gone through this handle.
func (h *ResponseHandle) Responded() bool {
	return h.consumed.Load()
}

// MessageResponder pairs a response handle with a message codec. A nil
// responder or a responder without a handle swallows replies, so handler
// code answers unconditionally and fire-and-forget messages stay safe.
type MessageResponder struct {
	handle *ResponseHandle
	codec  codec.MessageCodec
}

// NewMessageResponder builds a responder for the given handle, which may
// be nil.
func NewMessageResponder(handle *ResponseHandle, c codec.MessageCodec) *MessageResponder {
	return &MessageResponder{handle: handle, codec: c}
}

// Send encodes value and replies with it.
func (r *MessageResponder) Send(value codec.Value) error {
	if r == nil || r.handle == nil {
		return nil
	}
	encoded, err := r.codec.EncodeMessage(value)
	if err != nil {
		return err
	}
	return r.handle.Respond(encoded)
}

// MethodResponder pairs a response handle with a method codec and speaks
// in envelopes. Like MessageResponder it tolerates a missing handle.
type MethodResponder struct {
	handle *ResponseHandle
	codec  codec.MethodCodec
}

// NewMethodResponder builds a responder for the given handle, which may be
// nil.
func NewMethodResponder(handle *ResponseHandle, c codec.MethodCodec) *MethodResponder {
	return &MethodResponder{handle: handle, codec: c}
}

// SendResult replies with an already-built method result.
func (r *MethodResponder) SendResult(result codec.MethodResult) error {
	if r == nil || r.handle == nil {
		return nil
	}
	if result.IsNotImplemented() {
		return r.handle.NotImplemented()
	}
	var encoded []byte
	var err error
	if result.IsSuccess() {
		encoded, err = r.codec.EncodeSuccessEnvelope(result.Value())
	} else {
		encoded, err = r.codec.EncodeErrorEnvelope(result.Code(), result.Message(), result.Details())
	}
	if err != nil {
		return err
	}
	return r.handle.Respond(encoded)
}

// Success replies with a success envelope wrapping value.
func (r *MethodResponder) Success(value codec.Value) error {
	return r.SendResult(codec.Success(value))
}

// Error replies with an error envelope.
func (r *MethodResponder) Error(code, message string, details codec.Value) error {
	return r.SendResult(codec.ErrorResult(code, message, details))
}

// NotImplemented replies with the not-implemented envelope.
func (r *MethodResponder) NotImplemented() error {
	return r.SendResult(codec.NotImplemented())
}
