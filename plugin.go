package flutterhost

import (
	"fmt"
)

// Plugin is a named bundle of channels. InitPlugin runs once when the
// plugin is added to an engine; channels registered through the registrar
// are attributed to the plugin and torn down with it.
type Plugin interface {
	Name() string
	InitPlugin(registrar *Registrar) error
}

// PluginDeinitializer is implemented by plugins that hold resources
// beyond their channels. DeinitPlugin runs when the plugin is removed or
// the engine shuts down, after its channels are unregistered.
type PluginDeinitializer interface {
	DeinitPlugin()
}

// Registrar is a plugin's view of its engine during registration.
type Registrar struct {
	engine *Engine
	plugin string
}

// Messenger returns the engine's binary messenger for building channels.
func (r *Registrar) Messenger() BinaryMessenger {
	return r.engine
}

// RegisterChannel installs ch, attributed to the registering plugin.
func (r *Registrar) RegisterChannel(ch Channel) {
	r.engine.registry.RegisterForPlugin(r.plugin, ch)
}

// AddPlugin initializes p against the engine. Adding two plugins with the
// same name is an error; a failed InitPlugin leaves no channels behind.
func (e *Engine) AddPlugin(p Plugin) error {
	name := p.Name()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return &PluginError{Plugin: name, Err: ErrEngineShutDown}
	}
	if _, exists := e.plugins[name]; exists {
		e.mu.Unlock()
		return &PluginError{Plugin: name, Err: fmt.Errorf("already added")}
	}
	e.plugins[name] = p
	e.mu.Unlock()

	if err := p.InitPlugin(&Registrar{engine: e, plugin: name}); err != nil {
		e.mu.Lock()
		delete(e.plugins, name)
		e.mu.Unlock()
		e.registry.RemovePlugin(name)
		return &PluginError{Plugin: name, Err: err}
	}
	return nil
}

// RemovePlugin unregisters the plugin's channels and deinitializes it.
// Removing an unknown name is a no-op.
func (e *Engine) RemovePlugin(name string) {
	e.mu.Lock()
	p, ok := e.plugins[name]
	delete(e.plugins, name)
	e.mu.Unlock()
	if !ok {
		return
	}

	e.registry.RemovePlugin(name)
	if d, ok := p.(PluginDeinitializer); ok {
		d.DeinitPlugin()
	}
}

// PluginNamed returns the added plugin with the given name, if any.
func (e *Engine) PluginNamed(name string) (Plugin, bool) {
	e.mu.Lock()
	p, ok := e.plugins[name]
	e.mu.Unlock()
	return p, ok
}
