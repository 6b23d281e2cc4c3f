package plugins

import (
	flutterhost "github.com/machinefabric/flutterhost-go"
	"github.com/machinefabric/flutterhost-go/codec"
)

// KeyEventType distinguishes press from release.
type KeyEventType string

const (
	KeyDown KeyEventType = "keydown"
	KeyUp   KeyEventType = "keyup"
)

// KeyEvent is one raw keyboard event in the framework's linux keymap
// encoding.
type KeyEvent struct {
	Type                KeyEventType
	ScanCode            int64
	KeyCode             int64
	Modifiers           int64
	UnicodeScalarValues int64
}

// KeyEventPlugin forwards raw keyboard events to the framework.
type KeyEventPlugin struct {
	channel *flutterhost.MessageChannel
}

// NewKeyEventPlugin builds the plugin.
func NewKeyEventPlugin() *KeyEventPlugin {
	return &KeyEventPlugin{}
}

// Name implements flutterhost.Plugin.
func (p *KeyEventPlugin) Name() string {
	return "keyevent"
}

// InitPlugin implements flutterhost.Plugin.
func (p *KeyEventPlugin) InitPlugin(registrar *flutterhost.Registrar) error {
	p.channel = flutterhost.NewMessageChannel(registrar.Messenger(), "flutter/keyevent", codec.JSONMessage)
	registrar.RegisterChannel(p.channel)
	return nil
}

// Send forwards one key event.
func (p *KeyEventPlugin) Send(event KeyEvent) error {
	pairs := []codec.Pair{
		{Key: codec.String("keymap"), Value: codec.String("linux")},
		{Key: codec.String("toolkit"), Value: codec.String("glfw")},
		{Key: codec.String("type"), Value: codec.String(string(event.Type))},
		{Key: codec.String("scanCode"), Value: codec.Int64(event.ScanCode)},
		{Key: codec.String("keyCode"), Value: codec.Int64(event.KeyCode)},
		{Key: codec.String("modifiers"), Value: codec.Int64(event.Modifiers)},
	}
	if event.UnicodeScalarValues != 0 {
		pairs = append(pairs, codec.Pair{
			Key:   codec.String("unicodeScalarValues"),
			Value: codec.Int64(event.UnicodeScalarValues),
		})
	}
	return p.channel.Send(codec.Map(pairs...))
}
