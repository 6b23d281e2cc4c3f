package plugins

import (
	"sync"

	flutterhost "github.com/machinefabric/flutterhost-go"
	"github.com/machinefabric/flutterhost-go/codec"
)

// EditingState mirrors the framework's text editing value. Selection
// indices are rune offsets; base equals extent for a collapsed cursor.
type EditingState struct {
	Text            string
	SelectionBase   int
	SelectionExtent int
	ComposingBase   int
	ComposingExtent int
}

// TextInputPlugin owns the host side of the text input protocol: the
// framework attaches a client, the host edits the client's text and
// reports every change back.
type TextInputPlugin struct {
	channel *flutterhost.MethodChannel

	mu       sync.Mutex
	clientID int64
	state    EditingState

	// OnShow and OnHide run when the framework asks for the input
	// surface, for hosts that present an on-screen keyboard.
	OnShow func()
	OnHide func()
}

// NewTextInputPlugin builds the plugin.
func NewTextInputPlugin() *TextInputPlugin {
	return &TextInputPlugin{}
}

// Name implements flutterhost.Plugin.
func (p *TextInputPlugin) Name() string {
	return "textinput"
}

// InitPlugin implements flutterhost.Plugin.
func (p *TextInputPlugin) InitPlugin(registrar *flutterhost.Registrar) error {
	p.channel = flutterhost.NewMethodChannel(registrar.Messenger(), "flutter/textinput", codec.JSONMethod)
	p.channel.SetMethodHandler(p.handleMethodCall)
	registrar.RegisterChannel(p.channel)
	return nil
}

func (p *TextInputPlugin) handleMethodCall(call codec.MethodCall, responder *flutterhost.MethodResponder) {
	switch call.Method {
	case "TextInput.setClient":
		args := call.Arguments.List()
		if len(args) < 1 {
			_ = responder.Error("argument_error", "setClient expects [clientID, configuration]", codec.Null())
			return
		}
		p.mu.Lock()
		p.clientID = args[0].Int64()
		p.state = EditingState{ComposingBase: -1, ComposingExtent: -1}
		p.mu.Unlock()
		_ = responder.Success(codec.Null())
	case "TextInput.clearClient":
		p.mu.Lock()
		p.clientID = 0
		p.mu.Unlock()
		_ = responder.Success(codec.Null())
	case "TextInput.setEditingState":
		p.mu.Lock()
		p.state = decodeEditingState(call.Arguments)
		p.mu.Unlock()
		_ = responder.Success(codec.Null())
	case "TextInput.show":
		if p.OnShow != nil {
			p.OnShow()
		}
		_ = responder.Success(codec.Null())
	case "TextInput.hide":
		if p.OnHide != nil {
			p.OnHide()
		}
		_ = responder.Success(codec.Null())
	default:
		_ = responder.NotImplemented()
	}
}

func decodeEditingState(v codec.Value) EditingState {
	state := EditingState{ComposingBase: -1, ComposingExtent: -1}
	if s, ok := v.GetString("text"); ok {
		state.Text = s.String()
	}
	if n, ok := v.GetString("selectionBase"); ok {
		state.SelectionBase = int(n.Int64())
	}
	if n, ok := v.GetString("selectionExtent"); ok {
		state.SelectionExtent = int(n.Int64())
	}
	if n, ok := v.GetString("composingBase"); ok {
		state.ComposingBase = int(n.Int64())
	}
	if n, ok := v.GetString("composingExtent"); ok {
		state.ComposingExtent = int(n.Int64())
	}
	return state
}

// HasClient reports whether the framework has attached a text client.
func (p *TextInputPlugin) HasClient() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clientID != 0
}

// State returns the current editing state.
func (p *TextInputPlugin) State() EditingState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// AddCharacters inserts text at the cursor, replacing any selection.
func (p *TextInputPlugin) AddCharacters(text string) error {
	return p.edit(func(s *EditingState) {
		runes := []rune(s.Text)
		lo, hi := s.selectionRange(len(runes))
		inserted := []rune(text)
		out := append(append(append([]rune{}, runes[:lo]...), inserted...), runes[hi:]...)
		s.Text = string(out)
		s.SelectionBase = lo + len(inserted)
		s.SelectionExtent = s.SelectionBase
	})
}

// Backspace deletes the selection, or the rune before a collapsed cursor.
func (p *TextInputPlugin) Backspace() error {
	return p.edit(func(s *EditingState) {
		runes := []rune(s.Text)
		lo, hi := s.selectionRange(len(runes))
		if lo == hi {
			if lo == 0 {
				return
			}
			lo--
		}
		s.Text = string(append(append([]rune{}, runes[:lo]...), runes[hi:]...))
		s.SelectionBase = lo
		s.SelectionExtent = lo
	})
}

// MoveCursorLeft collapses the selection leftward or steps back one rune.
func (p *TextInputPlugin) MoveCursorLeft() error {
	return p.edit(func(s *EditingState) {
		lo, hi := s.selectionRange(len([]rune(s.Text)))
		if lo != hi {
			s.SelectionBase, s.SelectionExtent = lo, lo
			return
		}
		if lo > 0 {
			lo--
		}
		s.SelectionBase, s.SelectionExtent = lo, lo
	})
}

// MoveCursorRight collapses the selection rightward or steps forward one
// rune.
func (p *TextInputPlugin) MoveCursorRight() error {
	return p.edit(func(s *EditingState) {
		n := len([]rune(s.Text))
		lo, hi := s.selectionRange(n)
		if lo != hi {
			s.SelectionBase, s.SelectionExtent = hi, hi
			return
		}
		if hi < n {
			hi++
		}
		s.SelectionBase, s.SelectionExtent = hi, hi
	})
}

// SelectAll selects the whole text.
func (p *TextInputPlugin) SelectAll() error {
	return p.edit(func(s *EditingState) {
		s.SelectionBase = 0
		s.SelectionExtent = len([]rune(s.Text))
	})
}

// PerformAction reports an input action such as "TextInputAction.done".
func (p *TextInputPlugin) PerformAction(action string) error {
	p.mu.Lock()
	clientID := p.clientID
	p.mu.Unlock()
	if clientID == 0 {
		return nil
	}
	return p.channel.InvokeMethod("TextInputClient.performAction",
		codec.List(codec.Int64(clientID), codec.String(action)))
}

func (s *EditingState) selectionRange(max int) (int, int) {
	clamp := func(v int) int {
		if v < 0 {
			return 0
		}
		if v > max {
			return max
		}
		return v
	}
	lo, hi := clamp(s.SelectionBase), clamp(s.SelectionExtent)
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi
}

func (p *TextInputPlugin) edit(mutate func(*EditingState)) error {
	p.mu.Lock()
	if p.clientID == 0 {
		p.mu.Unlock()
		return nil
	}
	mutate(&p.state)
	clientID := p.clientID
	state := p.state
	p.mu.Unlock()
	return p.sendEditingState(clientID, state)
}

func (p *TextInputPlugin) sendEditingState(clientID int64, state EditingState) error {
	return p.channel.InvokeMethod("TextInputClient.updateEditingState", codec.List(
		codec.Int64(clientID),
		codec.Map(
			codec.Pair{Key: codec.String("text"), Value: codec.String(state.Text)},
			codec.Pair{Key: codec.String("selectionBase"), Value: codec.Int64(int64(state.SelectionBase))},
			codec.Pair{Key: codec.String("selectionExtent"), Value: codec.Int64(int64(state.SelectionExtent))},
			codec.Pair{Key: codec.String("selectionAffinity"), Value: codec.String("TextAffinity.downstream")},
			codec.Pair{Key: codec.String("selectionIsDirectional"), Value: codec.Bool(false)},
			codec.Pair{Key: codec.String("composingBase"), Value: codec.Int64(int64(state.ComposingBase))},
			codec.Pair{Key: codec.String("composingExtent"), Value: codec.Int64(int64(state.ComposingExtent))},
		),
	))
}
