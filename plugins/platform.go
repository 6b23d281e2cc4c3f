package plugins

import (
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	flutterhost "github.com/machinefabric/flutterhost-go"
	"github.com/machinefabric/flutterhost-go/codec"
)

// Clipboard abstracts the host clipboard for the platform plugin.
type Clipboard interface {
	SetText(text string) error
	Text() (string, error)
}

// MemoryClipboard is an in-process Clipboard, used when the host has no
// system clipboard to offer.
type MemoryClipboard struct {
	mu   sync.Mutex
	text string
}

func (c *MemoryClipboard) SetText(text string) error {
	c.mu.Lock()
	c.text = text
	c.mu.Unlock()
	return nil
}

func (c *MemoryClipboard) Text() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text, nil
}

// AppSwitcherDescription is the window metadata the framework pushes
// through SystemChrome.
type AppSwitcherDescription struct {
	Label        string
	PrimaryColor int64
}

// PlatformPlugin answers the framework's platform service calls:
// clipboard access, application switcher metadata, and the system
// navigator pop that closes the application.
type PlatformPlugin struct {
	clipboard Clipboard

	// OnPop runs when the framework asks the host to close, typically by
	// tearing down the window.
	OnPop func()

	// OnAppSwitcherDescription runs when the framework updates the window
	// title and accent color.
	OnAppSwitcherDescription func(desc AppSwitcherDescription)
}

// Argument shapes are validated up front so handler code can index
// blindly.
var (
	clipboardSetDataSchema = mustCompileSchema(`{
		"type": "object",
		"properties": {"text": {"type": ["string", "null"]}},
		"required": ["text"]
	}`)
	switcherDescriptionSchema = mustCompileSchema(`{
		"type": "object",
		"properties": {
			"label": {"type": "string"},
			"primaryColor": {"type": "integer"}
		},
		"required": ["label"]
	}`)
)

func mustCompileSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("invalid platform schema: %v", err))
	}
	return schema
}

func validateArguments(schema *gojsonschema.Schema, arguments codec.Value) error {
	encoded, err := codec.JSONMessage.EncodeMessage(arguments)
	if err != nil {
		return err
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(encoded))
	if err != nil {
		return err
	}
	if !result.Valid() {
		return fmt.Errorf("invalid arguments: %s", result.Errors()[0].String())
	}
	return nil
}

// NewPlatformPlugin builds the plugin. A nil clipboard gets an in-memory
// one.
func NewPlatformPlugin(clipboard Clipboard) *PlatformPlugin {
	if clipboard == nil {
		clipboard = &MemoryClipboard{}
	}
	return &PlatformPlugin{clipboard: clipboard}
}

// Name implements flutterhost.Plugin.
func (p *PlatformPlugin) Name() string {
	return "platform"
}

// InitPlugin implements flutterhost.Plugin.
func (p *PlatformPlugin) InitPlugin(registrar *flutterhost.Registrar) error {
	ch := flutterhost.NewMethodChannel(registrar.Messenger(), "flutter/platform", codec.JSONMethod)
	ch.SetMethodHandler(p.handleMethodCall)
	registrar.RegisterChannel(ch)
	return nil
}

func (p *PlatformPlugin) handleMethodCall(call codec.MethodCall, responder *flutterhost.MethodResponder) {
	switch call.Method {
	case "Clipboard.setData":
		p.clipboardSetData(call.Arguments, responder)
	case "Clipboard.getData":
		p.clipboardGetData(call.Arguments, responder)
	case "SystemNavigator.pop":
		if p.OnPop != nil {
			p.OnPop()
		}
		_ = responder.Success(codec.Null())
	case "SystemChrome.setApplicationSwitcherDescription":
		p.setAppSwitcherDescription(call.Arguments, responder)
	default:
		_ = responder.NotImplemented()
	}
}

func (p *PlatformPlugin) clipboardSetData(arguments codec.Value, responder *flutterhost.MethodResponder) {
	if err := validateArguments(clipboardSetDataSchema, arguments); err != nil {
		_ = responder.Error("argument_error", err.Error(), codec.Null())
		return
	}
	var text string
	if v, ok := arguments.GetString("text"); ok && v.Kind() == codec.KindString {
		text = v.String()
	}
	if err := p.clipboard.SetText(text); err != nil {
		_ = responder.Error("clipboard_error", err.Error(), codec.Null())
		return
	}
	_ = responder.Success(codec.Null())
}

func (p *PlatformPlugin) clipboardGetData(arguments codec.Value, responder *flutterhost.MethodResponder) {
	// The only format the framework requests today.
	if arguments.Kind() == codec.KindString && arguments.String() != "text/plain" {
		_ = responder.Error("unknown_format", fmt.Sprintf("unsupported clipboard format %q", arguments.String()), codec.Null())
		return
	}
	text, err := p.clipboard.Text()
	if err != nil {
		_ = responder.Error("clipboard_error", err.Error(), codec.Null())
		return
	}
	_ = responder.Success(codec.Map(codec.Pair{Key: codec.String("text"), Value: codec.String(text)}))
}

func (p *PlatformPlugin) setAppSwitcherDescription(arguments codec.Value, responder *flutterhost.MethodResponder) {
	if err := validateArguments(switcherDescriptionSchema, arguments); err != nil {
		_ = responder.Error("argument_error", err.Error(), codec.Null())
		return
	}
	desc := AppSwitcherDescription{}
	if v, ok := arguments.GetString("label"); ok {
		desc.Label = v.String()
	}
	if color, ok := arguments.GetString("primaryColor"); ok && !color.IsNull() {
		desc.PrimaryColor = color.Int64()
	}
	if p.OnAppSwitcherDescription != nil {
		p.OnAppSwitcherDescription(desc)
	}
	_ = responder.Success(codec.Null())
}
