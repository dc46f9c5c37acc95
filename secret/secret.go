// Package secret keeps provider API keys in the OS credential store behind a
// process-lifetime in-memory cache.
package secret

import (
	"errors"
	"fmt"
	"sync"

	"handy/log"
)

// ServiceName is the credential store service every key is filed under.
const ServiceName = "handy_voice"

var ErrNotFound = errors.New("secret not found")

// Backend is the credential store. Get returns ErrNotFound for a missing key.
type Backend interface {
	Get(service, provider string) (string, error)
	Set(service, provider, value string) error
	Delete(service, provider string) error
}

// Cache is a read-through, write-through cache over a Backend.
//
// The mutex only guards the maps. Backend calls run outside it so a slow
// keychain prompt never blocks other readers. gen counts writes per
// provider; a Fetch that raced with a Store or Delete does not populate.
type Cache struct {
	backend Backend

	mu     sync.Mutex
	values map[string]string
	gen    map[string]uint64
}

func New(backend Backend) *Cache {
	return &Cache{
		backend: backend,
		values:  make(map[string]string),
		gen:     make(map[string]uint64),
	}
}

func (c *Cache) Fetch(provider string) (string, bool) {
	c.mu.Lock()
	if v, ok := c.values[provider]; ok {
		c.mu.Unlock()
		return v, true
	}
	gen := c.gen[provider]
	c.mu.Unlock()

	v, err := c.backend.Get(ServiceName, provider)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Warnf("failed to read API key from keyring for provider %q: %v", provider, err)
		}
		return "", false
	}

	c.mu.Lock()
	if c.gen[provider] == gen {
		c.values[provider] = v
	}
	c.mu.Unlock()
	return v, true
}

func (c *Cache) Store(provider, value string) error {
	if err := c.backend.Set(ServiceName, provider, value); err != nil {
		return fmt.Errorf("store API key: %w", err)
	}
	c.mu.Lock()
	c.values[provider] = value
	c.gen[provider]++
	c.mu.Unlock()
	log.Debugf("stored API key in keyring for provider %q", provider)
	return nil
}

func (c *Cache) Delete(provider string) error {
	if err := c.backend.Delete(ServiceName, provider); err != nil {
		return fmt.Errorf("delete API key: %w", err)
	}
	c.mu.Lock()
	delete(c.values, provider)
	c.gen[provider]++
	c.mu.Unlock()
	log.Debugf("deleted API key from keyring for provider %q", provider)
	return nil
}
