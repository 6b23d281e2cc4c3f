// Package embedder is the foreign-function boundary to the engine's
// embedder library. It exposes the minimal raw surface the channel layer
// depends on; everything above it (registries, channels, plugins) is
// engine-agnostic and testable against an in-process fake.
package embedder

import "fmt"

// ResponseToken is the engine's opaque handle for one pending reply. The
// zero token means no reply is expected (fire-and-forget message) and must
// never be passed back to the engine.
type ResponseToken uintptr

// IsZero reports whether the token denotes a fire-and-forget message.
func (t ResponseToken) IsZero() bool {
	return t == 0
}

// PlatformMessageHandler receives every inbound platform message. The
// payload is owned by the engine and is only valid for the duration of the
// call; implementations copy what they keep.
type PlatformMessageHandler func(channel string, message []byte, token ResponseToken)

// RawEngine is the engine surface used by the channel layer. The purego
// binding implements it against the embedder shared library; tests
// substitute an in-process fake.
type RawEngine interface {
	// SendPlatformMessage sends a message to the remote side of channel.
	// A zero token requests no reply.
	SendPlatformMessage(channel string, message []byte, token ResponseToken) error

	// CreateResponseHandle registers onReply to be invoked exactly once
	// with the remote side's reply and returns the token to send with.
	CreateResponseHandle(onReply func(message []byte)) (ResponseToken, error)

	// ReleaseResponseHandle discards a token obtained from
	// CreateResponseHandle that was never sent.
	ReleaseResponseHandle(token ResponseToken) error

	// SendPlatformMessageResponse completes the engine's pending reply for
	// token. A nil or empty message is the not-implemented reply.
	SendPlatformMessageResponse(token ResponseToken, message []byte) error
}

// EngineErrorKind mirrors the embedder library's result codes.
type EngineErrorKind int

const (
	EngineErrorInvalidLibraryVersion EngineErrorKind = iota
	EngineErrorInvalidArguments
	EngineErrorInternalInconsistency
	EngineErrorNotAttached
)

func (k EngineErrorKind) String() string {
	switch k {
	case EngineErrorInvalidLibraryVersion:
		return "InvalidLibraryVersion"
	case EngineErrorInvalidArguments:
		return "InvalidArguments"
	case EngineErrorInternalInconsistency:
		return "InternalInconsistency"
	case EngineErrorNotAttached:
		return "NotAttached"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// EngineError represents a failed embedder call.
type EngineError struct {
	Kind EngineErrorKind
	Call string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Call, e.Kind)
}

// engineResultToError converts an embedder result code; call names the
// embedder function for diagnostics.
func engineResultToError(result int32, call string) error {
	switch result {
	case 0:
		return nil
	case 1:
		return &EngineError{Kind: EngineErrorInvalidLibraryVersion, Call: call}
	case 2:
		return &EngineError{Kind: EngineErrorInvalidArguments, Call: call}
	default:
		return &EngineError{Kind: EngineErrorInternalInconsistency, Call: call}
	}
}
