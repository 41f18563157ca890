package cache

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var ErrCacheConflict = errors.New("cache conflict")

// ConflictError is returned when a write disagrees with the value already stored for a key.
type ConflictError struct {
	Key            string
	Existing       Value
	ExistingOrigin string
	Incoming       Value
	IncomingOrigin string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("cache conflict for key %q: %s set by %s, %s set by %s",
		e.Key, e.Existing, e.ExistingOrigin, e.Incoming, e.IncomingOrigin)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrCacheConflict
}

type entry struct {
	value  Value
	origin string
}

// Cache is a monotonic key value store shared by the building blocks of a run. A key is
// written at most once; later writes must agree with the stored value.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{entries: make(map[string]entry)}
}

// Get returns the value stored for key.
func (c *Cache) Get(key string) (Value, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]

	return e.value, ok
}

// Origin returns the origin of the first writer of key.
func (c *Cache) Origin(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]

	return e.origin, ok
}

// Set stores value for key if absent. Writing an equal value again is a no-op that keeps the
// first origin, writing a different value fails with a *ConflictError.
func (c *Cache) Set(key string, value Value, origin string) error {
	if value == nil {
		return fmt.Errorf("cannot store nil value for key %q", key)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	existing, ok := c.entries[key]
	if !ok {
		c.entries[key] = entry{value: value, origin: origin}
		return nil
	}
	if existing.value == value {
		return nil
	}

	return &ConflictError{
		Key:            key,
		Existing:       existing.value,
		ExistingOrigin: existing.origin,
		Incoming:       value,
		IncomingOrigin: origin,
	}
}

// GetAddress returns the address stored for key. It reports false if the key is absent or
// holds another type.
func (c *Cache) GetAddress(key string) (common.Address, bool) {
	v, ok := c.Get(key)
	if !ok {
		return common.Address{}, false
	}
	addr, ok := v.(Address)

	return common.Address(addr), ok
}

// GetU32 returns the uint32 stored for key.
func (c *Cache) GetU32(key string) (uint32, bool) {
	v, ok := c.Get(key)
	if !ok {
		return 0, false
	}
	n, ok := v.(U32)

	return uint32(n), ok
}

// HasKey reports whether key has been written.
func (c *Cache) HasKey(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Keys returns every written key in sorted order.
func (c *Cache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	return keys
}

// Clear removes every entry. Only meant for tests that reuse a Cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry)
}
