//go:build darwin || linux

package embedder

import (
	"fmt"
	"log/slog"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

// platformMessage mirrors the embedder library's FlutterPlatformMessage
// struct. Field order and widths must match the C layout.
type platformMessage struct {
	structSize     uintptr
	channel        *byte // null-terminated
	message        *byte
	messageSize    uintptr
	responseHandle uintptr
}

// Lib binds the embedder shared library through purego, without cgo. One
// Lib serves one engine instance.
type Lib struct {
	id     uintptr
	handle uintptr

	mu      sync.RWMutex
	engine  uintptr
	handler PlatformMessageHandler

	sendPlatformMessage         func(engine uintptr, message *platformMessage) int32
	sendPlatformMessageResponse func(engine uintptr, handle uintptr, data *byte, length uintptr) int32
	createResponseHandle        func(engine uintptr, callback uintptr, userData uintptr, out *uintptr) int32
	releaseResponseHandle       func(engine uintptr, handle uintptr) int32
}

// Package state shared with the C callback trampolines. purego callbacks
// are created once and never freed, so dispatch is keyed by user data.
var (
	trampolineMu     sync.Mutex
	libs             = map[uintptr]*Lib{}
	nextLibID        uintptr
	pendingResponses = map[uintptr]*pendingResponse{}
	handleIDs        = map[ResponseToken]uintptr{}
	nextResponseID   uintptr
)

type pendingResponse struct {
	lib     *Lib
	onReply func(message []byte)
	token   ResponseToken
}

// Open loads the embedder library at path and binds the platform-message
// entry points. The engine pointer is attached later by the runner layer
// once engine initialization (out of scope here) has produced it.
func Open(path string) (*Lib, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("failed to load embedder library %s: %w", path, err)
	}

	l := &Lib{handle: handle}
	purego.RegisterLibFunc(&l.sendPlatformMessage, handle, "FlutterEngineSendPlatformMessage")
	purego.RegisterLibFunc(&l.sendPlatformMessageResponse, handle, "FlutterEngineSendPlatformMessageResponse")
	purego.RegisterLibFunc(&l.createResponseHandle, handle, "FlutterPlatformMessageCreateResponseHandle")
	purego.RegisterLibFunc(&l.releaseResponseHandle, handle, "FlutterPlatformMessageReleaseResponseHandle")

	trampolineMu.Lock()
	nextLibID++
	l.id = nextLibID
	libs[l.id] = l
	trampolineMu.Unlock()

	return l, nil
}

// Close detaches the Lib from trampoline dispatch. The library itself
// stays mapped; purego callbacks referencing it are never freed.
func (l *Lib) Close() {
	trampolineMu.Lock()
	delete(libs, l.id)
	for id, p := range pendingResponses {
		if p.lib == l {
			delete(pendingResponses, id)
			delete(handleIDs, p.token)
		}
	}
	trampolineMu.Unlock()
}

// AttachEngine records the engine pointer produced by engine
// initialization.
func (l *Lib) AttachEngine(engine uintptr) {
	l.mu.Lock()
	l.engine = engine
	l.mu.Unlock()
}

// SetPlatformMessageHandler installs the single inbound dispatch target.
func (l *Lib) SetPlatformMessageHandler(h PlatformMessageHandler) {
	l.mu.Lock()
	l.handler = h
	l.mu.Unlock()
}

// PlatformMessageCallback returns the C-callable callback pointer to place
// in the engine's project arguments, paired with
// PlatformMessageCallbackUserData.
func (l *Lib) PlatformMessageCallback() uintptr {
	return messageTrampoline
}

// PlatformMessageCallbackUserData returns the user data to register the
// callback with.
func (l *Lib) PlatformMessageCallbackUserData() uintptr {
	return l.id
}

func (l *Lib) enginePtr() (uintptr, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.engine == 0 {
		return 0, &EngineError{Kind: EngineErrorNotAttached, Call: "enginePtr"}
	}
	return l.engine, nil
}

// SendPlatformMessage implements RawEngine.
func (l *Lib) SendPlatformMessage(channel string, message []byte, token ResponseToken) error {
	engine, err := l.enginePtr()
	if err != nil {
		return err
	}

	cChannel := append([]byte(channel), 0)
	msg := platformMessage{
		structSize:     unsafe.Sizeof(platformMessage{}),
		channel:        &cChannel[0],
		messageSize:    uintptr(len(message)),
		responseHandle: uintptr(token),
	}
	if len(message) > 0 {
		msg.message = &message[0]
	}

	return engineResultToError(l.sendPlatformMessage(engine, &msg), "FlutterEngineSendPlatformMessage")
}

// CreateResponseHandle implements RawEngine.
func (l *Lib) CreateResponseHandle(onReply func(message []byte)) (ResponseToken, error) {
	engine, err := l.enginePtr()
	if err != nil {
		return 0, err
	}

	trampolineMu.Lock()
	nextResponseID++
	id := nextResponseID
	entry := &pendingResponse{lib: l, onReply: onReply}
	pendingResponses[id] = entry
	trampolineMu.Unlock()

	var out uintptr
	result := l.createResponseHandle(engine, responseTrampoline, id, &out)
	if err := engineResultToError(result, "FlutterPlatformMessageCreateResponseHandle"); err != nil {
		trampolineMu.Lock()
		delete(pendingResponses, id)
		trampolineMu.Unlock()
		return 0, err
	}

	token := ResponseToken(out)
	trampolineMu.Lock()
	entry.token = token
	handleIDs[token] = id
	trampolineMu.Unlock()
	return token, nil
}

// ReleaseResponseHandle implements RawEngine.
func (l *Lib) ReleaseResponseHandle(token ResponseToken) error {
	engine, err := l.enginePtr()
	if err != nil {
		return err
	}

	trampolineMu.Lock()
	if id, ok := handleIDs[token]; ok {
		delete(handleIDs, token)
		delete(pendingResponses, id)
	}
	trampolineMu.Unlock()

	result := l.releaseResponseHandle(engine, uintptr(token))
	return engineResultToError(result, "FlutterPlatformMessageReleaseResponseHandle")
}

// SendPlatformMessageResponse implements RawEngine.
func (l *Lib) SendPlatformMessageResponse(token ResponseToken, message []byte) error {
	engine, err := l.enginePtr()
	if err != nil {
		return err
	}

	var data *byte
	if len(message) > 0 {
		data = &message[0]
	}
	result := l.sendPlatformMessageResponse(engine, uintptr(token), data, uintptr(len(message)))
	return engineResultToError(result, "FlutterEngineSendPlatformMessageResponse")
}

// messageTrampoline is the single FlutterPlatformMessageCallback handed to
// every engine. Panics must not unwind across the FFI boundary.
var messageTrampoline = purego.NewCallback(func(message uintptr, userData uintptr) uintptr {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in platform message callback", "panic", r)
		}
	}()

	trampolineMu.Lock()
	l := libs[userData]
	trampolineMu.Unlock()
	if l == nil || message == 0 {
		return 0
	}

	msg := (*platformMessage)(unsafe.Pointer(message))
	channel := goString(msg.channel)
	var payload []byte
	if msg.message != nil && msg.messageSize > 0 {
		// Borrowed view; valid only until this callback returns.
		payload = unsafe.Slice(msg.message, msg.messageSize)
	}
	token := ResponseToken(msg.responseHandle)

	l.mu.RLock()
	handler := l.handler
	l.mu.RUnlock()

	if handler == nil {
		// Never leak the engine's pending-reply bookkeeping.
		if !token.IsZero() {
			if err := l.SendPlatformMessageResponse(token, nil); err != nil {
				slog.Error("failed to reply to unhandled message", "channel", channel, "error", err)
			}
		}
		return 0
	}

	handler(channel, payload, token)
	return 0
})

// responseTrampoline is the single FlutterDataCallback used for every
// response handle; user data selects the pending continuation.
var responseTrampoline = purego.NewCallback(func(data uintptr, size uintptr, userData uintptr) uintptr {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in platform message reply callback", "panic", r)
		}
	}()

	trampolineMu.Lock()
	entry := pendingResponses[userData]
	if entry != nil {
		delete(pendingResponses, userData)
		delete(handleIDs, entry.token)
	}
	trampolineMu.Unlock()
	if entry == nil || entry.onReply == nil {
		return 0
	}

	var reply []byte
	if data != 0 && size > 0 {
		// The engine owns the buffer; copy before it goes away.
		view := unsafe.Slice((*byte)(unsafe.Pointer(data)), size)
		reply = make([]byte, size)
		copy(reply, view)
	}
	entry.onReply(reply)
	return 0
})

func goString(c *byte) string {
	if c == nil {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Add(unsafe.Pointer(c), n)) != 0 {
		n++
	}
	return string(unsafe.Slice(c, n))
}
