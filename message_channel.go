package flutterhost

import (
	"log/slog"
	"sync/atomic"

	"github.com/machinefabric/flutterhost-go/codec"
)

// MessageHandler processes one inbound basic message. The responder is
// always non-nil; its sends are no-ops when no reply was requested.
type MessageHandler func(message codec.Value, responder *MessageResponder)

// MessageChannel speaks bare codec values over a named channel, without
// method-call framing.
type MessageChannel struct {
	name      string
	codec     codec.MessageCodec
	messenger BinaryMessenger
	handler   atomic.Pointer[MessageHandler]
}

// NewMessageChannel builds a basic message channel bound to messenger.
func NewMessageChannel(messenger BinaryMessenger, name string, c codec.MessageCodec) *MessageChannel {
	return &MessageChannel{name: name, codec: c, messenger: messenger}
}

// Name implements Channel.
func (ch *MessageChannel) Name() string {
	return ch.name
}

// SetMessageHandler installs the inbound handler; nil clears it.
func (ch *MessageChannel) SetMessageHandler(h MessageHandler) {
	if h == nil {
		ch.handler.Store(nil)
		return
	}
	ch.handler.Store(&h)
}

// HandlePlatformMessage implements Channel.
func (ch *MessageChannel) HandlePlatformMessage(msg *PlatformMessage) {
	responder := NewMessageResponder(msg.Response, ch.codec)

	value, err := ch.codec.DecodeMessage(msg.Payload)
	if err != nil {
		slog.Warn("failed to decode message", "channel", ch.name, "error", err)
		if msg.Response != nil {
			if err := msg.Response.NotImplemented(); err != nil {
				slog.Warn("failed to reply to malformed message", "channel", ch.name, "error", err)
			}
		}
		return
	}

	h := ch.handler.Load()
	if h == nil {
		if msg.Response != nil {
			if err := msg.Response.NotImplemented(); err != nil {
				slog.Warn("failed to reply to unhandled message", "channel", ch.name, "error", err)
			}
		}
		return
	}
	(*h)(value, responder)
}

// Send delivers value to the remote side without waiting for a reply.
func (ch *MessageChannel) Send(value codec.Value) error {
	encoded, err := ch.codec.EncodeMessage(value)
	if err != nil {
		return err
	}
	return ch.messenger.Send(ch.name, encoded)
}

// SendWithReply delivers value and hands the decoded reply to onReply
// exactly once. Decode failures surface through the error argument.
func (ch *MessageChannel) SendWithReply(value codec.Value, onReply func(reply codec.Value, err error)) error {
	encoded, err := ch.codec.EncodeMessage(value)
	if err != nil {
		return err
	}
	return ch.messenger.SendWithReply(ch.name, encoded, func(reply []byte) {
		value, err := ch.codec.DecodeMessage(reply)
		onReply(value, err)
	})
}
