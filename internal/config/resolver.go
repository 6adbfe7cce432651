package config

import "slices"

// Resolve returns the module IDs from the configuration in sorted order, so
// module loading is deterministic across runs.
func Resolve(cfg *Config) []string {
	ids := make([]string, 0, len(cfg.Modules))
	for id := range cfg.Modules {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
