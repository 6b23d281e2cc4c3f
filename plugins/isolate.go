package plugins

import (
	"sync"

	flutterhost "github.com/machinefabric/flutterhost-go"
	"github.com/machinefabric/flutterhost-go/codec"
)

// IsolatePlugin watches for the root isolate announcing itself, which
// marks the point where the UI side is ready for traffic.
type IsolatePlugin struct {
	mu        sync.Mutex
	isolateID string
	ready     chan struct{}
	onReady   func(isolateID string)
}

// NewIsolatePlugin builds the plugin. onReady, if non-nil, fires once
// when the root isolate announces itself.
func NewIsolatePlugin(onReady func(isolateID string)) *IsolatePlugin {
	return &IsolatePlugin{ready: make(chan struct{}), onReady: onReady}
}

// Name implements flutterhost.Plugin.
func (p *IsolatePlugin) Name() string {
	return "isolate"
}

// InitPlugin implements flutterhost.Plugin.
func (p *IsolatePlugin) InitPlugin(registrar *flutterhost.Registrar) error {
	ch := flutterhost.NewMessageChannel(registrar.Messenger(), "flutter/isolate", codec.StringMessage)
	ch.SetMessageHandler(func(message codec.Value, responder *flutterhost.MessageResponder) {
		p.mu.Lock()
		first := p.isolateID == ""
		if first {
			p.isolateID = message.String()
			close(p.ready)
		}
		cb := p.onReady
		p.mu.Unlock()

		if first && cb != nil {
			cb(message.String())
		}
		_ = responder.Send(codec.Null())
	})
	registrar.RegisterChannel(ch)
	return nil
}

// Ready returns a channel closed once the root isolate has announced
// itself.
func (p *IsolatePlugin) Ready() <-chan struct{} {
	return p.ready
}

// IsolateID returns the announced isolate identifier; empty until Ready.
func (p *IsolatePlugin) IsolateID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isolateID
}
