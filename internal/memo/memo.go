// Package memo caches derivation results keyed by derivation name and input version.
package memo

import (
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

const minSweepInterval = 5 * time.Millisecond

// Observer receives cache and compute measurements
type Observer interface {
	ObserveCache(hit bool)
	ObserveDerivation(name string, d time.Duration)
}

// Memo is a TTL cache of derivation results. Results only depend on the
// input version, so an entry never goes stale while its version is current.
// A background sweeper deletes expired entries, which frees results of
// replaced versions stored after an Invalidate. Call Stop to end it.
type Memo struct {
	cache    *ttlcache.Cache[string, any]
	observer Observer
	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a memo whose entries expire after ttl and starts its
// sweeper. observer may be nil.
func New(ttl time.Duration, observer Observer) *Memo {
	m := &Memo{
		cache: ttlcache.New(
			ttlcache.WithTTL[string, any](ttl),
		),
		observer: observer,
		stop:     make(chan struct{}),
	}
	go m.sweepLoop(ttl)
	return m
}

// Stop ends the sweeper. Cached results stay readable.
func (m *Memo) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Memo) sweepLoop(every time.Duration) {
	if every < minSweepInterval {
		every = minSweepInterval
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.cache.DeleteExpired()
		}
	}
}

// Key builds the cache key of a derivation over an input version
func Key(name, version string) string {
	return name + "@" + version
}

// Get returns the cached result of name over version, computing and
// storing it on a miss. Errors are returned and never cached.
func (m *Memo) Get(name, version string, compute func() (any, error)) (any, error) {
	key := Key(name, version)
	if item := m.cache.Get(key); item != nil {
		m.observeCache(true)
		return item.Value(), nil
	}
	m.observeCache(false)

	start := time.Now()
	v, err := compute()
	if err != nil {
		return nil, err
	}
	if m.observer != nil {
		m.observer.ObserveDerivation(name, time.Since(start))
	}
	m.cache.Set(key, v, ttlcache.DefaultTTL)
	return v, nil
}

// Invalidate drops every cached result
func (m *Memo) Invalidate() {
	m.cache.DeleteAll()
}

// Len returns the number of cached results
func (m *Memo) Len() int {
	return m.cache.Len()
}

func (m *Memo) observeCache(hit bool) {
	if m.observer != nil {
		m.observer.ObserveCache(hit)
	}
}
