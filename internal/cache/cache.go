// Package cache holds the in-process read caches of the API server.
package cache

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"spendwise/internal/core"
	"spendwise/internal/log"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	DeletePrefix(prefix string) int
	Size() int
}

var _ Cache[core.Dashboard] = (*LRUCache[core.Dashboard])(nil)

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically purges expired entries of registered caches.
type Manager struct {
	caches []Cleaner
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) Register(cache Cleaner) {
	m.caches = append(m.caches, cache)
}

// Run cleans every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.CleanAll(); n > 0 {
				slog.DebugContext(ctx, "Expired cache entries removed",
					log.FieldComponent, log.ComponentCache,
					"removed", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

// CleanAll runs one cleanup pass and returns the number of removed entries.
func (m *Manager) CleanAll() int {
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}

// Dashboards caches computed dashboards per owner and month.
type Dashboards struct {
	lru *LRUCache[core.Dashboard]
}

func NewDashboards(maxSize int, ttl time.Duration) *Dashboards {
	return &Dashboards{lru: NewLRUCache[core.Dashboard](maxSize, ttl)}
}

func ownerPrefix(owner int64) string { return strconv.FormatInt(owner, 10) + ":" }

func dashboardKey(owner int64, p core.Period) string { return ownerPrefix(owner) + p.String() }

func (d *Dashboards) Get(owner int64, p core.Period) (core.Dashboard, bool) {
	return d.lru.Get(dashboardKey(owner, p))
}

func (d *Dashboards) Set(dash core.Dashboard) {
	d.lru.Set(dashboardKey(dash.Owner, dash.Period), dash)
}

// Invalidate drops every cached month of owner.
func (d *Dashboards) Invalidate(owner int64) int {
	return d.lru.DeletePrefix(ownerPrefix(owner))
}

func (d *Dashboards) CleanExpired() int { return d.lru.CleanExpired() }
