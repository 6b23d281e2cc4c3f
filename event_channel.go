package flutterhost

import (
	"log/slog"
	"sync"

	"github.com/machinefabric/flutterhost-go/codec"
)

// StreamHandler produces an event stream on demand. OnListen is called
// when the remote side subscribes; a non-nil error refuses the
// subscription and is reported back as an error envelope. OnCancel is
// called at most once per successful OnListen.
type StreamHandler interface {
	OnListen(arguments codec.Value, sink *EventSink) error
	OnCancel(arguments codec.Value)
}

// EventChannel multiplexes a subscription protocol over method-call
// framing: inbound "listen" and "cancel" calls control the stream, and
// events flow outward as envelopes on the same channel.
type EventChannel struct {
	name      string
	codec     codec.MethodCodec
	messenger BinaryMessenger

	mu      sync.Mutex
	handler StreamHandler
	sink    *EventSink
}

// NewEventChannel builds an event channel bound to messenger.
func NewEventChannel(messenger BinaryMessenger, name string, c codec.MethodCodec) *EventChannel {
	return &EventChannel{name: name, codec: c, messenger: messenger}
}

// Name implements Channel.
func (ch *EventChannel) Name() string {
	return ch.name
}

// SetStreamHandler installs the stream handler; nil clears it. Clearing
// the handler while a subscription is live cancels the active sink.
func (ch *EventChannel) SetStreamHandler(h StreamHandler) {
	ch.mu.Lock()
	ch.handler = h
	sink := ch.sink
	if h == nil {
		ch.sink = nil
	}
	ch.mu.Unlock()
	if h == nil && sink != nil {
		sink.close()
	}
}

// HandlePlatformMessage implements Channel.
func (ch *EventChannel) HandlePlatformMessage(msg *PlatformMessage) {
	responder := NewMethodResponder(msg.Response, ch.codec)

	call, err := ch.codec.DecodeMethodCall(msg.Payload)
	if err != nil {
		slog.Warn("failed to decode stream control call", "channel", ch.name, "error", err)
		if err := responder.NotImplemented(); err != nil {
			slog.Warn("failed to reply on stream channel", "channel", ch.name, "error", err)
		}
		return
	}

	switch call.Method {
	case "listen":
		ch.onListen(call.Arguments, responder)
	case "cancel":
		ch.onCancel(call.Arguments, responder)
	default:
		if err := responder.NotImplemented(); err != nil {
			slog.Warn("failed to reply on stream channel", "channel", ch.name, "method", call.Method, "error", err)
		}
	}
}

func (ch *EventChannel) onListen(arguments codec.Value, responder *MethodResponder) {
	ch.mu.Lock()
	handler := ch.handler
	// A second listen replaces the previous subscription.
	previous := ch.sink
	var sink *EventSink
	if handler != nil {
		sink = &EventSink{channel: ch.name, codec: ch.codec, messenger: ch.messenger}
		ch.sink = sink
	}
	ch.mu.Unlock()

	if previous != nil {
		previous.close()
	}
	if handler == nil {
		if err := responder.NotImplemented(); err != nil {
			slog.Warn("failed to reply on stream channel", "channel", ch.name, "error", err)
		}
		return
	}

	if err := handler.OnListen(arguments, sink); err != nil {
		ch.mu.Lock()
		if ch.sink == sink {
			ch.sink = nil
		}
		ch.mu.Unlock()
		sink.close()
		if err := responder.Error("error", err.Error(), codec.Null()); err != nil {
			slog.Warn("failed to reply on stream channel", "channel", ch.name, "error", err)
		}
		return
	}
	if err := responder.Success(codec.Null()); err != nil {
		slog.Warn("failed to reply on stream channel", "channel", ch.name, "error", err)
	}
}

func (ch *EventChannel) onCancel(arguments codec.Value, responder *MethodResponder) {
	ch.mu.Lock()
	handler := ch.handler
	sink := ch.sink
	ch.sink = nil
	ch.mu.Unlock()

	// Cancel with no live subscription is a no-op, not an error.
	if sink != nil {
		sink.close()
		if handler != nil {
			handler.OnCancel(arguments)
		}
	}
	if err := responder.Success(codec.Null()); err != nil {
		slog.Warn("failed to reply on stream channel", "channel", ch.name, "error", err)
	}
}

// EventSink delivers events for one subscription. After the subscription
// is cancelled or ended, further sends are silently dropped.
type EventSink struct {
	channel   string
	codec     codec.MethodCodec
	messenger BinaryMessenger

	mu     sync.Mutex
	closed bool
}

func (s *EventSink) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *EventSink) send(build func() ([]byte, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	encoded, err := build()
	if err != nil {
		return err
	}
	return s.messenger.Send(s.channel, encoded)
}

// Success emits one event.
func (s *EventSink) Success(event codec.Value) error {
	return s.send(func() ([]byte, error) {
		return s.codec.EncodeSuccessEnvelope(event)
	})
}

// Error emits an error event. The stream stays open.
func (s *EventSink) Error(code, message string, details codec.Value) error {
	return s.send(func() ([]byte, error) {
		return s.codec.EncodeErrorEnvelope(code, message, details)
	})
}

// EndOfStream tells the subscriber no more events will come and closes
// the sink.
func (s *EventSink) EndOfStream() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.messenger.Send(s.channel, nil)
}
