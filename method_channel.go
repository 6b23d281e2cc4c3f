package flutterhost

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/machinefabric/flutterhost-go/codec"
)

// MethodHandler processes one inbound method call. The responder is always
// non-nil; when the caller did not request a reply the responder's sends
// are no-ops, so handlers answer unconditionally.
type MethodHandler func(call codec.MethodCall, responder *MethodResponder)

// MethodChannel speaks method-call envelopes over a named channel.
type MethodChannel struct {
	name      string
	codec     codec.MethodCodec
	messenger BinaryMessenger
	handler   atomic.Pointer[MethodHandler]
}

// NewMethodChannel builds a method channel bound to messenger. Register it
// with the engine's registry to receive inbound calls.
func NewMethodChannel(messenger BinaryMessenger, name string, c codec.MethodCodec) *MethodChannel {
	return &MethodChannel{name: name, codec: c, messenger: messenger}
}

// Name implements Channel.
func (ch *MethodChannel) Name() string {
	return ch.name
}

// SetMethodHandler installs the inbound call handler. Passing nil clears
// it; calls arriving with no handler installed are answered not
// implemented. The swap is atomic with respect to in-flight dispatch: a
// message already past the load keeps the handler it saw.
func (ch *MethodChannel) SetMethodHandler(h MethodHandler) {
	if h == nil {
		ch.handler.Store(nil)
		return
	}
	ch.handler.Store(&h)
}

// HandlePlatformMessage implements Channel.
func (ch *MethodChannel) HandlePlatformMessage(msg *PlatformMessage) {
	responder := NewMethodResponder(msg.Response, ch.codec)

	call, err := ch.codec.DecodeMethodCall(msg.Payload)
	if err != nil {
		slog.Warn("failed to decode method call", "channel", ch.name, "error", err)
		if err := responder.NotImplemented(); err != nil {
			slog.Warn("failed to reply to malformed method call", "channel", ch.name, "error", err)
		}
		return
	}

	h := ch.handler.Load()
	if h == nil {
		if err := responder.NotImplemented(); err != nil {
			slog.Warn("failed to reply to unhandled method call", "channel", ch.name, "method", call.Method, "error", err)
		}
		return
	}
	(*h)(call, responder)
}

// InvokeMethod sends a fire-and-forget method call to the remote side.
func (ch *MethodChannel) InvokeMethod(method string, arguments codec.Value) error {
	encoded, err := ch.codec.EncodeMethodCall(codec.MethodCall{Method: method, Arguments: arguments})
	if err != nil {
		return err
	}
	return ch.messenger.Send(ch.name, encoded)
}

// InvokeMethodWithReply sends a method call and delivers the decoded
// result to onResult exactly once. A zero-length reply surfaces as the
// not-implemented result.
func (ch *MethodChannel) InvokeMethodWithReply(method string, arguments codec.Value, onResult func(codec.MethodResult)) error {
	encoded, err := ch.codec.EncodeMethodCall(codec.MethodCall{Method: method, Arguments: arguments})
	if err != nil {
		return err
	}
	return ch.messenger.SendWithReply(ch.name, encoded, func(reply []byte) {
		result, err := ch.codec.DecodeEnvelope(reply)
		if err != nil {
			slog.Warn("failed to decode method call reply", "channel", ch.name, "method", method, "error", err)
			result = codec.NotImplemented()
		}
		onResult(result)
	})
}

// Call sends a method call and blocks until the reply arrives or ctx is
// done. Error envelopes come back as *MethodError; a not-implemented
// reply comes back as ErrMethodNotImplemented.
func (ch *MethodChannel) Call(ctx context.Context, method string, arguments codec.Value) (codec.Value, error) {
	done := make(chan codec.MethodResult, 1)
	if err := ch.InvokeMethodWithReply(method, arguments, func(result codec.MethodResult) {
		done <- result
	}); err != nil {
		return codec.Null(), err
	}

	select {
	case <-ctx.Done():
		return codec.Null(), ctx.Err()
	case result := <-done:
		switch result.Status() {
		case codec.StatusSuccess:
			return result.Value(), nil
		case codec.StatusError:
			return codec.Null(), &MethodError{Code: result.Code(), Message: result.Message(), Details: result.Details()}
		default:
			return codec.Null(), ErrMethodNotImplemented
		}
	}
}
