package flutterhost

// BinaryMessenger carries raw channel traffic toward the engine. Engine
// implements it; tests substitute in-process fakes.
type BinaryMessenger interface {
	// Send delivers message on the named channel without waiting for a
	// reply.
	Send(channel string, message []byte) error

	// SendWithReply delivers message and invokes onReply exactly once
	// with the raw reply bytes. A zero-length reply means the remote
	// side has no handler for the channel or method.
	SendWithReply(channel string, message []byte, onReply func(reply []byte)) error
}

// Channel is a named duplex conduit for platform messages. Implementations
// decode inbound payloads with their codec and answer through the
// message's response handle.
type Channel interface {
	Name() string
	HandlePlatformMessage(msg *PlatformMessage)
}
