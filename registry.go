package flutterhost

import (
	"log/slog"
	"sort"
	"sync"
)

// ChannelRegistry maps channel names to their handlers. The namespace is
// flat: one channel per name, and a later registration under the same
// name replaces the earlier one. Registration and lookup are atomic with
// respect to each other; a message already dispatched keeps the channel
// reference it resolved, even if the name is re-registered mid-flight.
type ChannelRegistry struct {
	mu       sync.RWMutex
	channels map[string]Channel
	byPlugin map[string][]string
}

// NewChannelRegistry builds an empty registry.
func NewChannelRegistry() *ChannelRegistry {
	return &ChannelRegistry{
		channels: make(map[string]Channel),
		byPlugin: make(map[string][]string),
	}
}

// Register installs ch under its name, replacing any previous channel
// with that name.
func (r *ChannelRegistry) Register(ch Channel) {
	r.register("", ch)
}

// RegisterForPlugin installs ch and attributes it to plugin, so the
// channel is torn down when the plugin is removed.
func (r *ChannelRegistry) RegisterForPlugin(plugin string, ch Channel) {
	r.register(plugin, ch)
}

func (r *ChannelRegistry) register(plugin string, ch Channel) {
	name := ch.Name()
	r.mu.Lock()
	if _, exists := r.channels[name]; exists {
		slog.Warn("replacing registered channel", "channel", name)
	}
	r.channels[name] = ch
	if plugin != "" {
		r.byPlugin[plugin] = append(r.byPlugin[plugin], name)
	}
	r.mu.Unlock()
}

// Unregister removes the channel with the given name if present.
func (r *ChannelRegistry) Unregister(name string) {
	r.mu.Lock()
	delete(r.channels, name)
	r.mu.Unlock()
}

// RemovePlugin unregisters every channel attributed to plugin.
func (r *ChannelRegistry) RemovePlugin(plugin string) {
	r.mu.Lock()
	for _, name := range r.byPlugin[plugin] {
		delete(r.channels, name)
	}
	delete(r.byPlugin, plugin)
	r.mu.Unlock()
}

func (r *ChannelRegistry) clear() {
	r.mu.Lock()
	r.channels = make(map[string]Channel)
	r.byPlugin = make(map[string][]string)
	r.mu.Unlock()
}

// Lookup returns the channel registered under name, if any.
func (r *ChannelRegistry) Lookup(name string) (Channel, bool) {
	r.mu.RLock()
	ch, ok := r.channels[name]
	r.mu.RUnlock()
	return ch, ok
}

// Names returns the registered channel names, sorted.
func (r *ChannelRegistry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.channels))
	for name := range r.channels {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Handle routes one inbound message to its channel. A message for an
// unknown channel is answered not implemented when the sender expects a
// reply, and dropped otherwise. Dispatch runs outside the registry lock,
// so handlers may register and unregister channels freely.
func (r *ChannelRegistry) Handle(msg *PlatformMessage) {
	ch, ok := r.Lookup(msg.Channel)
	if !ok {
		slog.Debug("message for unregistered channel", "channel", msg.Channel)
		if msg.Response != nil {
			if err := msg.Response.NotImplemented(); err != nil {
				slog.Warn("failed to reply to unregistered channel", "channel", msg.Channel, "error", err)
			}
		}
		return
	}
	ch.HandlePlatformMessage(msg)
}
