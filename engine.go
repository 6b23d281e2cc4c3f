package flutterhost

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/machinefabric/flutterhost-go/embedder"
)

// MessageObserver sees a copy of every message crossing the boundary.
// Observers must not retain the payload slice past the call.
type MessageObserver interface {
	ObserveInbound(channel string, payload []byte)
	ObserveOutbound(channel string, payload []byte)
}

type pendingReply struct {
	token   embedder.ResponseToken
	onReply func(reply []byte)
}

// Engine owns one engine instance's channel registry, plugin set, and
// pending outbound replies. It implements BinaryMessenger for the
// channels registered on it.
//
// Each Engine has its own registry; nothing in this package is process
// global, so multiple engines coexist in one host.
type Engine struct {
	raw      embedder.RawEngine
	registry *ChannelRegistry

	mu      sync.Mutex
	plugins map[string]Plugin
	pending map[uuid.UUID]*pendingReply
	closed  bool

	observer atomic.Pointer[MessageObserver]
}

// NewEngine builds an Engine over a raw transport. Wire the engine's
// HandlePlatformMessage into the transport's inbound callback to complete
// the loop.
func NewEngine(raw embedder.RawEngine) *Engine {
	return &Engine{
		raw:      raw,
		registry: NewChannelRegistry(),
		plugins:  make(map[string]Plugin),
		pending:  make(map[uuid.UUID]*pendingReply),
	}
}

// Registry returns the engine's channel registry.
func (e *Engine) Registry() *ChannelRegistry {
	return e.registry
}

// SetMessageObserver installs o as the traffic observer; nil clears it.
func (e *Engine) SetMessageObserver(o MessageObserver) {
	if o == nil {
		e.observer.Store(nil)
		return
	}
	e.observer.Store(&o)
}

func (e *Engine) observeInbound(channel string, payload []byte) {
	if o := e.observer.Load(); o != nil {
		(*o).ObserveInbound(channel, payload)
	}
}

func (e *Engine) observeOutbound(channel string, payload []byte) {
	if o := e.observer.Load(); o != nil {
		(*o).ObserveOutbound(channel, payload)
	}
}

// Send implements BinaryMessenger.
func (e *Engine) Send(channel string, message []byte) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return ErrEngineShutDown
	}
	e.observeOutbound(channel, message)
	return e.raw.SendPlatformMessage(channel, message, 0)
}

// SendWithReply implements BinaryMessenger. The reply callback fires on
// whatever goroutine delivers the transport's response, exactly once;
// Shutdown resolves still-pending replies with a zero-length reply.
func (e *Engine) SendWithReply(channel string, message []byte, onReply func(reply []byte)) error {
	id := uuid.New()

	token, err := e.raw.CreateResponseHandle(func(reply []byte) {
		p := e.takePending(id)
		if p == nil {
			return
		}
		if err := e.raw.ReleaseResponseHandle(p.token); err != nil {
			slog.Warn("failed to release response handle", "channel", channel, "error", err)
		}
		p.onReply(reply)
	})
	if err != nil {
		return err
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		if err := e.raw.ReleaseResponseHandle(token); err != nil {
			slog.Warn("failed to release response handle", "channel", channel, "error", err)
		}
		return ErrEngineShutDown
	}
	e.pending[id] = &pendingReply{token: token, onReply: onReply}
	e.mu.Unlock()

	e.observeOutbound(channel, message)
	if err := e.raw.SendPlatformMessage(channel, message, token); err != nil {
		if p := e.takePending(id); p != nil {
			if rerr := e.raw.ReleaseResponseHandle(p.token); rerr != nil {
				slog.Warn("failed to release response handle", "channel", channel, "error", rerr)
			}
		}
		return err
	}
	return nil
}

func (e *Engine) takePending(id uuid.UUID) *pendingReply {
	e.mu.Lock()
	p := e.pending[id]
	delete(e.pending, id)
	e.mu.Unlock()
	return p
}

// HandlePlatformMessage is the inbound entry point, shaped to match
// embedder.PlatformMessageHandler. It never panics: a handler panic is
// contained here, logged, and answered not implemented so the sender is
// not left hanging.
func (e *Engine) HandlePlatformMessage(channel string, payload []byte, token embedder.ResponseToken) {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()

	var handle *ResponseHandle
	if !token.IsZero() {
		handle = newResponseHandle(channel, token, e.sendResponse)
	}

	if closed {
		if handle != nil {
			if err := handle.NotImplemented(); err != nil {
				slog.Warn("failed to reply after shutdown", "channel", channel, "error", err)
			}
		}
		return
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in platform message handler", "channel", channel, "panic", r)
			if handle != nil && !handle.Responded() {
				if err := handle.NotImplemented(); err != nil {
					slog.Warn("failed to reply after handler panic", "channel", channel, "error", err)
				}
			}
		}
	}()

	e.observeInbound(channel, payload)
	e.registry.Handle(&PlatformMessage{Channel: channel, Payload: payload, Response: handle})
}

func (e *Engine) sendResponse(token embedder.ResponseToken, message []byte) error {
	return e.raw.SendPlatformMessageResponse(token, message)
}

// Shutdown tears the engine down: plugins are deinitialized, channels
// unregistered, and every pending outbound reply is resolved with a
// zero-length reply so waiting callers unblock. Further sends return
// ErrEngineShutDown. Shutdown is idempotent.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	plugins := e.plugins
	e.plugins = make(map[string]Plugin)
	pending := e.pending
	e.pending = make(map[uuid.UUID]*pendingReply)
	e.mu.Unlock()

	for name, p := range plugins {
		e.registry.RemovePlugin(name)
		if d, ok := p.(PluginDeinitializer); ok {
			d.DeinitPlugin()
		}
	}
	e.registry.clear()
	for _, p := range pending {
		if err := e.raw.ReleaseResponseHandle(p.token); err != nil {
			slog.Warn("failed to release response handle", "error", err)
		}
		p.onReply(nil)
	}
}
