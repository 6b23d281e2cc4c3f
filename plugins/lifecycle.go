// Package plugins carries the standard plugins a desktop host wires into
// every engine: application lifecycle, navigation, platform services,
// text input, settings, key events, and localization.
package plugins

import (
	flutterhost "github.com/machinefabric/flutterhost-go"
	"github.com/machinefabric/flutterhost-go/codec"
)

// LifecycleState is an application lifecycle phase, spelled the way the
// framework expects it on the wire.
type LifecycleState string

const (
	LifecycleResumed  LifecycleState = "AppLifecycleState.resumed"
	LifecycleInactive LifecycleState = "AppLifecycleState.inactive"
	LifecyclePaused   LifecycleState = "AppLifecycleState.paused"
	LifecycleDetached LifecycleState = "AppLifecycleState.detached"
)

// LifecyclePlugin pushes application lifecycle transitions to the UI
// side. The channel carries bare strings with no envelope.
type LifecyclePlugin struct {
	channel *flutterhost.MessageChannel
}

// NewLifecyclePlugin builds the plugin.
func NewLifecyclePlugin() *LifecyclePlugin {
	return &LifecyclePlugin{}
}

// Name implements flutterhost.Plugin.
func (p *LifecyclePlugin) Name() string {
	return "lifecycle"
}

// InitPlugin implements flutterhost.Plugin.
func (p *LifecyclePlugin) InitPlugin(registrar *flutterhost.Registrar) error {
	p.channel = flutterhost.NewMessageChannel(registrar.Messenger(), "flutter/lifecycle", codec.StringMessage)
	registrar.RegisterChannel(p.channel)
	return nil
}

// SetState announces a lifecycle transition.
func (p *LifecyclePlugin) SetState(state LifecycleState) error {
	return p.channel.Send(codec.String(string(state)))
}
