package notify

import "sort"

// Registry is a simple map-based set of channels keyed by name.
type Registry struct {
	channels map[string]Channel
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[string]Channel),
	}
}

// Register adds ch under its name, replacing any previous channel of that name.
func (r *Registry) Register(ch Channel) {
	r.channels[ch.Name()] = ch
}

// Get returns the channel registered under name, or false if not registered.
func (r *Registry) Get(name string) (Channel, bool) {
	ch, ok := r.channels[name]
	return ch, ok
}

// All returns the registered channels ordered by name.
func (r *Registry) All() []Channel {
	names := make([]string, 0, len(r.channels))
	for name := range r.channels {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Channel, 0, len(names))
	for _, name := range names {
		out = append(out, r.channels[name])
	}
	return out
}
