package flutterhost

// PlatformMessage is one inbound message from the engine: the channel name
// it arrived on, the raw payload, and an optional one-shot response handle.
//
// Payload is a borrowed view of the engine's buffer; it is valid only for
// the duration of the dispatch call. Handlers that retain payload bytes
// past their return must copy them. Response is nil when the sender did
// not request a reply.
type PlatformMessage struct {
	Channel  string
	Payload  []byte
	Response *ResponseHandle
}

// ExpectsResponse reports whether the sender is waiting for a reply.
func (m *PlatformMessage) ExpectsResponse() bool {
	return m.Response != nil
}
