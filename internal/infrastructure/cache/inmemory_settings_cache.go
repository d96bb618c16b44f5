package cache

import (
	"context"
	"sync"
	"time"

	"github.com/contabilidad/backend/internal/domain/settings"
	"github.com/google/uuid"
)

type settingsEntry struct {
	value     settings.AccountingSettings
	expiresAt time.Time
}

// InMemorySettingsCache implements settings.Cache with a process-local map.
// Instances do not share state, so an update on one server is only seen by
// the others once their entry expires.
type InMemorySettingsCache struct {
	mu        sync.RWMutex
	entries   map[uuid.UUID]settingsEntry
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemorySettingsCache creates the cache and starts its cleanup loop
func NewInMemorySettingsCache() *InMemorySettingsCache {
	c := &InMemorySettingsCache{
		entries:  make(map[uuid.UUID]settingsEntry),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	c.wg.Add(1)
	go c.cleanupLoop(5 * time.Minute)

	return c
}

// Get returns a copy of the cached settings
func (c *InMemorySettingsCache) Get(_ context.Context, tenantID uuid.UUID) (*settings.AccountingSettings, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[tenantID]
	if !ok || !c.now().Before(e.expiresAt) {
		return nil, nil
	}
	s := e.value
	return &s, nil
}

// Set stores a copy of the settings
func (c *InMemorySettingsCache) Set(_ context.Context, s *settings.AccountingSettings, ttl time.Duration) error {
	if s == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = settings.DefaultCacheTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[s.TenantID] = settingsEntry{value: *s, expiresAt: c.now().Add(ttl)}
	return nil
}

// Delete removes a tenant's entry
func (c *InMemorySettingsCache) Delete(_ context.Context, tenantID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, tenantID)
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (c *InMemorySettingsCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

func (c *InMemorySettingsCache) cleanupLoop(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *InMemorySettingsCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for id, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, id)
		}
	}
}

// Size returns the number of entries, expired ones included
func (c *InMemorySettingsCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

var _ settings.Cache = (*InMemorySettingsCache)(nil)
