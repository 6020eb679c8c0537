package config

import "sync/atomic"

// Live holds the current config for long-running processes. The
// watcher swaps it on reload; request paths load it per call, so
// tuning changes apply without a restart.
type Live struct {
	p atomic.Pointer[Config]
}

// NewLive creates a holder seeded with cfg.
func NewLive(cfg Config) *Live {
	l := &Live{}
	l.p.Store(&cfg)
	return l
}

// Load returns the current config.
func (l *Live) Load() Config {
	return *l.p.Load()
}

// Store replaces the current config.
func (l *Live) Store(cfg Config) {
	l.p.Store(&cfg)
}
