package session

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/mahanteshimath/duckdb-snowflake/internal/engine"
	"github.com/mahanteshimath/duckdb-snowflake/internal/observability"
)

// Registry tracks live sessions by ID with idle expiry. Expired sessions
// release their DuckDB handle, which also discards any in-engine secrets.
type Registry struct {
	cache         *ttlcache.Cache[string, *Session]
	installSource string
}

// NewRegistry returns a registry evicting sessions after idleTTL without
// access. Call Close when the service shuts down.
func NewRegistry(idleTTL time.Duration, installSource string) *Registry {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *Session](idleTTL),
	)
	cache.OnEviction(func(_ context.Context, _ ttlcache.EvictionReason, item *ttlcache.Item[string, *Session]) {
		item.Value().Engine.Reset()
		observability.SetActiveSessions(cache.Len())
	})
	go cache.Start()
	return &Registry{cache: cache, installSource: installSource}
}

// Get returns the session for id, creating it when absent. Access extends
// the idle TTL.
func (r *Registry) Get(id string) *Session {
	if item := r.cache.Get(id); item != nil {
		return item.Value()
	}
	s := New(id, engine.New(r.installSource))
	r.cache.Set(id, s, ttlcache.DefaultTTL)
	observability.SetActiveSessions(r.cache.Len())
	return s
}

// Delete drops the session for id, releasing its engine via eviction.
func (r *Registry) Delete(id string) {
	r.cache.Delete(id)
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	return r.cache.Len()
}

// Close stops the expiry loop and releases every session.
func (r *Registry) Close() {
	r.cache.Stop()
	r.cache.DeleteAll()
}
