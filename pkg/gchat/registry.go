package gchat

import "sync"

// BotConfig describes one named webhook client.
type BotConfig struct {
	Name  string       `json:"name"`
	URL   string       `json:"url"`
	Proxy *ProxyConfig `json:"proxy,omitempty"`
}

// RegistryConfig lists bots in registration order plus a default proxy for
// bots that don't set their own.
type RegistryConfig struct {
	Bots  []BotConfig  `json:"bots"`
	Proxy *ProxyConfig `json:"proxy,omitempty"`
}

// Registry holds named clients in insertion order.
//
// Re-registering a name replaces its client but keeps its position.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	names   []string
	clients map[string]*Client

	defaultProxy *ProxyConfig
	opts         []Option
}

// NewRegistry registers cfg.Bots in order. opts are applied to every client
// the registry creates.
func NewRegistry(cfg RegistryConfig, opts ...Option) *Registry {
	r := &Registry{
		clients: map[string]*Client{},
		opts:    opts,
	}
	if cfg.Proxy != nil {
		p := *cfg.Proxy
		r.defaultProxy = &p
	}
	for _, b := range cfg.Bots {
		r.Register(b.Name, b)
	}
	return r
}

// Register creates a client for cfg.URL and stores it under name. The bot's
// own proxy wins over the registry default; with neither, sends go direct.
func (r *Registry) Register(name string, cfg BotConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registerLocked(name, cfg)
}

func (r *Registry) registerLocked(name string, cfg BotConfig) {
	c := New(cfg.URL, r.opts...)
	proxy := cfg.Proxy
	if proxy == nil {
		proxy = r.defaultProxy
	}
	if proxy != nil {
		c.SetProxy(*proxy)
	}

	if _, ok := r.clients[name]; !ok {
		r.names = append(r.names, name)
	}
	r.clients[name] = c
}

// Get returns the client registered under name.
func (r *Registry) Get(name string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[name]
	return c, ok
}

// ForEach calls fn once per bot in insertion order. fn runs without the
// registry lock held, over a snapshot taken at call time.
func (r *Registry) ForEach(fn func(c *Client, name string)) {
	r.mu.RLock()
	names := append([]string(nil), r.names...)
	clients := make([]*Client, len(names))
	for i, n := range names {
		clients[i] = r.clients[n]
	}
	r.mu.RUnlock()

	for i, n := range names {
		fn(clients[i], n)
	}
}

// Names returns the registered bot names in insertion order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.names...)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}

// Remove drops name from the registry and reports whether it was present.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(name)
}

func (r *Registry) removeLocked(name string) bool {
	if _, ok := r.clients[name]; !ok {
		return false
	}
	delete(r.clients, name)
	for i, n := range r.names {
		if n == name {
			r.names = append(r.names[:i], r.names[i+1:]...)
			break
		}
	}
	return true
}

// Reload makes the registry match cfg: bots missing from cfg are removed,
// the rest are re-registered (existing names keep their position). The
// default proxy is replaced by cfg.Proxy.
func (r *Registry) Reload(cfg RegistryConfig) (added, removed int) {
	desired := make(map[string]struct{}, len(cfg.Bots))
	for _, b := range cfg.Bots {
		desired[b.Name] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.defaultProxy = nil
	if cfg.Proxy != nil {
		p := *cfg.Proxy
		r.defaultProxy = &p
	}

	for _, n := range append([]string(nil), r.names...) {
		if _, ok := desired[n]; !ok {
			r.removeLocked(n)
			removed++
		}
	}
	for _, b := range cfg.Bots {
		if _, ok := r.clients[b.Name]; !ok {
			added++
		}
		r.registerLocked(b.Name, b)
	}
	return added, removed
}
