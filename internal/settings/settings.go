// Package settings persists daemon configuration that changes at runtime:
// the active provider selection, encrypted credentials, and user-defined
// transformations. Values are opaque byte slices; callers own the encoding.
package settings

import (
	"context"
	"errors"
)

// ErrKeyNotFound indicates the requested key does not exist.
var ErrKeyNotFound = errors.New("settings: key not found")

// Well-known keys. Secrets and transformations are stored one per key under
// their prefix followed by the provider kind or transformation ID.
const (
	KeyProviderConfig       = "provider.config"
	SecretKeyPrefix         = "secret."
	TransformationKeyPrefix = "transformation."
)

// Op describes the kind of change carried by an Event.
type Op int

const (
	// OpSet indicates a key was created or its value replaced.
	OpSet Op = iota
	// OpRemove indicates a key was deleted.
	OpRemove
)

// Event describes a single mutation of the store. Value is nil for OpRemove.
type Event struct {
	Op    Op
	Key   string
	Value []byte
}

// Store is the interface for runtime settings persistence.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value for key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any existing value.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing an absent key returns ErrKeyNotFound.
	Remove(ctx context.Context, key string) error

	// Keys returns all keys with the given prefix, in unspecified order.
	// An empty prefix returns every key.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Watch registers a channel that receives an Event for every mutation
	// applied after the call. The returned func unregisters the channel.
	// Events are delivered best-effort: a slow receiver drops events
	// rather than blocking writers.
	Watch(ch chan<- Event) (cancel func())
}
