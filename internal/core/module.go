package core

import "sync"

// ModuleID uniquely identifies a module. IDs are namespaced with dots,
// e.g. "provider.ollama" or "gateway.http".
type ModuleID string

// Module is the interface all modules implement. A module's ModuleInfo must
// be callable on a zero-value instance — registration reads it before any
// configuration happens.
type Module interface {
	ModuleInfo() ModuleInfo
}

// ModuleInfo describes a registered module: its unique ID and a constructor
// returning a fresh, unconfigured instance.
type ModuleInfo struct {
	ID  ModuleID
	New func() Module
}

// serviceRegistry is the cross-module discovery map shared by every
// AppContext derived from the same root. Modules register the values they
// expose during Provision or Start; consumers resolve them lazily so load
// order stays irrelevant.
type serviceRegistry struct {
	mu       sync.RWMutex
	services map[string]any
}

func newServiceRegistry() *serviceRegistry {
	return &serviceRegistry{services: make(map[string]any)}
}

// RegisterService makes value discoverable under name. Registering the same
// name twice replaces the previous value; last writer wins.
func (ctx *AppContext) RegisterService(name string, value any) {
	ctx.services.mu.Lock()
	defer ctx.services.mu.Unlock()
	ctx.services.services[name] = value
}

// Service returns the service registered under name, or false if absent.
func (ctx *AppContext) Service(name string) (any, bool) {
	ctx.services.mu.RLock()
	defer ctx.services.mu.RUnlock()
	v, ok := ctx.services.services[name]
	return v, ok
}

// GetService is an alias for Service kept for call-site readability when the
// result is immediately type-asserted.
func (ctx *AppContext) GetService(name string) (any, bool) {
	return ctx.Service(name)
}
