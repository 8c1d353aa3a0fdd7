package config

import "sync/atomic"

// Holder keeps the live configuration and supports reloading it from the
// same YAML path. Readers always see a complete config: a failed reload
// preserves the previous one.
type Holder struct {
	current atomic.Pointer[Config]
	path    string
}

// NewHolder wraps an already-loaded config.
func NewHolder(cfg *Config, yamlPath string) *Holder {
	h := &Holder{path: yamlPath}
	h.current.Store(cfg)
	return h
}

// Get returns the current config.
func (h *Holder) Get() *Config {
	return h.current.Load()
}

// Reload re-runs the full load hierarchy. On error the old config stays.
func (h *Holder) Reload() error {
	cfg, err := LoadFrom(h.path)
	if err != nil {
		return err
	}
	h.current.Store(cfg)
	return nil
}
