package plugins

import (
	flutterhost "github.com/machinefabric/flutterhost-go"
	"github.com/machinefabric/flutterhost-go/codec"
)

// Brightness selects the platform brightness the framework renders for.
type Brightness string

const (
	BrightnessLight Brightness = "light"
	BrightnessDark  Brightness = "dark"
)

// Settings is the user-settings snapshot pushed to the framework.
type Settings struct {
	TextScaleFactor       float64
	AlwaysUse24HourFormat bool
	PlatformBrightness    Brightness
}

// SettingsPlugin pushes host user settings to the framework. The channel
// carries JSON messages with no envelope.
type SettingsPlugin struct {
	channel *flutterhost.MessageChannel
}

// NewSettingsPlugin builds the plugin.
func NewSettingsPlugin() *SettingsPlugin {
	return &SettingsPlugin{}
}

// Name implements flutterhost.Plugin.
func (p *SettingsPlugin) Name() string {
	return "settings"
}

// InitPlugin implements flutterhost.Plugin.
func (p *SettingsPlugin) InitPlugin(registrar *flutterhost.Registrar) error {
	p.channel = flutterhost.NewMessageChannel(registrar.Messenger(), "flutter/settings", codec.JSONMessage)
	registrar.RegisterChannel(p.channel)
	return nil
}

// Send pushes the settings snapshot.
func (p *SettingsPlugin) Send(s Settings) error {
	brightness := s.PlatformBrightness
	if brightness == "" {
		brightness = BrightnessLight
	}
	return p.channel.Send(codec.Map(
		codec.Pair{Key: codec.String("textScaleFactor"), Value: codec.Float64(s.TextScaleFactor)},
		codec.Pair{Key: codec.String("alwaysUse24HourFormat"), Value: codec.Bool(s.AlwaysUse24HourFormat)},
		codec.Pair{Key: codec.String("platformBrightness"), Value: codec.String(string(brightness))},
	))
}
