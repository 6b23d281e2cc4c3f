package plugins

import (
	flutterhost "github.com/machinefabric/flutterhost-go"
	"github.com/machinefabric/flutterhost-go/codec"
)

// NavigationPlugin drives the framework's navigator from the host side.
type NavigationPlugin struct {
	channel *flutterhost.MethodChannel
}

// NewNavigationPlugin builds the plugin.
func NewNavigationPlugin() *NavigationPlugin {
	return &NavigationPlugin{}
}

// Name implements flutterhost.Plugin.
func (p *NavigationPlugin) Name() string {
	return "navigation"
}

// InitPlugin implements flutterhost.Plugin.
func (p *NavigationPlugin) InitPlugin(registrar *flutterhost.Registrar) error {
	p.channel = flutterhost.NewMethodChannel(registrar.Messenger(), "flutter/navigation", codec.JSONMethod)
	registrar.RegisterChannel(p.channel)
	return nil
}

// SetInitialRoute tells the framework which route to start on. Only
// effective before the first frame.
func (p *NavigationPlugin) SetInitialRoute(route string) error {
	return p.channel.InvokeMethod("setInitialRoute", codec.String(route))
}

// PushRoute asks the navigator to push the named route.
func (p *NavigationPlugin) PushRoute(route string) error {
	return p.channel.InvokeMethod("pushRoute", codec.String(route))
}

// PopRoute asks the navigator to pop the current route, as a back button
// would.
func (p *NavigationPlugin) PopRoute() error {
	return p.channel.InvokeMethod("popRoute", codec.Null())
}
