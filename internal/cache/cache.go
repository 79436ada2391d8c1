// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

// Package cache provides a thread-safe in-memory TTL cache.
//
// The reputation aggregator uses it to serve hot reads without hitting
// the store on every request; entries expire after the configured TTL and
// a background sweep reclaims expired keys.
package cache

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/trustlens/internal/metrics"
)

// entry is one cached item with its expiration instant.
type entry struct {
	data      any
	expiresAt time.Time
}

// Cache is a thread-safe in-memory cache with per-entry TTL.
type Cache struct {
	name string
	ttl  time.Duration

	mu      sync.RWMutex
	entries map[string]entry
}

// New creates a cache with the given default TTL. The name labels the
// cache's Prometheus metrics. A background sweep reclaims expired entries
// every sweepInterval for the life of the process.
func New(name string, ttl time.Duration) *Cache {
	c := &Cache{
		name:    name,
		ttl:     ttl,
		entries: make(map[string]entry),
	}
	go c.sweepLoop()
	return c
}

const sweepInterval = 5 * time.Minute

// Get returns the cached value for key, or (nil, false) on a miss. An
// expired entry counts as a miss and is removed on the spot.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		metrics.CacheMisses.WithLabelValues(c.name).Inc()
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		metrics.CacheMisses.WithLabelValues(c.name).Inc()
		metrics.CacheEvictions.WithLabelValues(c.name).Inc()
		return nil, false
	}

	metrics.CacheHits.WithLabelValues(c.name).Inc()
	return e.data, true
}

// Set stores value under key with the default TTL.
func (c *Cache) Set(key string, value any) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value under key with a custom TTL.
func (c *Cache) SetWithTTL(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = entry{data: value, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}

// Delete removes a key. Safe to call for keys that do not exist.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	_, existed := c.entries[key]
	delete(c.entries, key)
	c.mu.Unlock()

	if existed {
		metrics.CacheEvictions.WithLabelValues(c.name).Inc()
	}
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Len returns the current number of entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for range ticker.C {
		c.sweep(time.Now())
	}
}

// sweep removes entries expired as of now.
func (c *Cache) sweep(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			metrics.CacheEvictions.WithLabelValues(c.name).Inc()
		}
	}
}

// GenerateKey builds a stable cache key from a method name and its
// parameters. Parameters that fail to marshal fall back to their string
// rendering.
func GenerateKey(method string, params any) string {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%s:%v", method, params)
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", method, hash[:16])
}
