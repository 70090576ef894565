package services

import "sync"

// ConnectionRegistry maps a player's wallet address to its live event sink.
// Registering over an existing entry replaces it (reconnect); Unregister is
// a no-op when a newer sink has been registered since, so a slow close of
// an old socket cannot evict its replacement.
type ConnectionRegistry struct {
	mu    sync.RWMutex
	sinks map[string]EventSink
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{sinks: make(map[string]EventSink)}
}

func (r *ConnectionRegistry) Register(walletAddress string, sink EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[walletAddress] = sink
}

func (r *ConnectionRegistry) Lookup(walletAddress string) (EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sink, ok := r.sinks[walletAddress]
	return sink, ok
}

func (r *ConnectionRegistry) Unregister(walletAddress string, sink EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.sinks[walletAddress]; ok && current == sink {
		delete(r.sinks, walletAddress)
	}
}
