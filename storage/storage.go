// Package storage holds origin-scoped key/value data for the Web Storage
// area that form persistence writes to. Two backends are provided: an
// in-memory map and a SQLite database.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("storage: store is closed")

// Store is an origin-partitioned key/value store.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, origin, key string) (string, bool, error)
	// Set inserts or replaces the value for key.
	Set(ctx context.Context, origin, key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, origin, key string) error
	// Keys returns the keys stored for origin in ascending order.
	Keys(ctx context.Context, origin string) ([]string, error)
	// Clear removes every key stored for origin.
	Clear(ctx context.Context, origin string) error
	Close() error
}

// Driver names accepted by Open.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Open creates a store for the named driver. dsn is the database path for
// the sqlite driver and ignored for memory.
func Open(driver, dsn string) (Store, error) {
	switch strings.ToLower(driver) {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverSQLite:
		return OpenSQLite(dsn)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", driver)
	}
}

// Area is the storage area of a single origin, the equivalent of one
// window's localStorage.
type Area struct {
	store  Store
	origin string
}

// NewArea scopes store to origin.
func NewArea(store Store, origin string) *Area {
	return &Area{store: store, origin: origin}
}

// Origin returns the origin this area is scoped to.
func (a *Area) Origin() string {
	return a.origin
}

// GetItem returns the value stored under key.
func (a *Area) GetItem(ctx context.Context, key string) (string, bool, error) {
	return a.store.Get(ctx, a.origin, key)
}

// SetItem stores value under key.
func (a *Area) SetItem(ctx context.Context, key, value string) error {
	return a.store.Set(ctx, a.origin, key, value)
}

// RemoveItem deletes key.
func (a *Area) RemoveItem(ctx context.Context, key string) error {
	return a.store.Delete(ctx, a.origin, key)
}

// Keys lists the keys of this area.
func (a *Area) Keys(ctx context.Context) ([]string, error) {
	return a.store.Keys(ctx, a.origin)
}

// Clear empties this area.
func (a *Area) Clear(ctx context.Context) error {
	return a.store.Clear(ctx, a.origin)
}
