package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Zvi-Yafi/family-notify-sub001/internal/metrics"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Cache stores opaque values under "<domain>:<scope-id>" keys.
type Cache interface {
	// Get reports a miss with ok == false. Expired entries are misses.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set stores value for ttl. A ttl <= 0 uses the backend default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Clear(ctx context.Context) error
}

const superAdminStatsKey = "super-admin-stats"

func GroupStatsKey(groupID string) string {
	return "admin-stats:" + groupID
}

func SuperAdminStatsKey() string {
	return superAdminStatsKey
}

func AnnouncementsKey(groupID string) string {
	return "announcements:" + groupID
}

func EventsKey(groupID string) string {
	return "events:" + groupID
}

// Loader is a read-through front for a Cache. Concurrent misses on the
// same key share one load; misses on different keys never wait on
// each other.
type Loader struct {
	cache Cache
	ttl   time.Duration
	group singleflight.Group

	mu   sync.Mutex
	gens map[string]uint64
}

func NewLoader(c Cache, ttl time.Duration) *Loader {
	return &Loader{cache: c, ttl: ttl, gens: make(map[string]uint64)}
}

// Invalidate removes the keys. A load already in flight is forgotten so
// the next read starts a fresh one, and its result is never cached.
func (l *Loader) Invalidate(ctx context.Context, keys ...string) error {
	l.mu.Lock()
	for _, key := range keys {
		l.gens[key]++
	}
	l.mu.Unlock()

	for _, key := range keys {
		l.group.Forget(key)
	}
	return l.cache.Delete(ctx, keys...)
}

func (l *Loader) generation(key string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gens[key]
}

// store caches a value loaded at generation gen. An invalidation that
// lands during the write is detected afterwards and the entry dropped.
func (l *Loader) store(ctx context.Context, key string, gen uint64, encoded []byte) {
	if l.generation(key) != gen {
		return
	}
	if err := l.cache.Set(ctx, key, encoded, l.ttl); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("cache write failed")
		return
	}
	if l.generation(key) != gen {
		if err := l.cache.Delete(ctx, key); err != nil {
			logrus.WithError(err).WithField("key", key).Warn("cache delete failed")
		}
	}
}

// GetOrLoad returns the cached value of key, or runs load, caches its JSON
// encoding and returns it. Cache backend errors degrade to a plain load.
func GetOrLoad[T any](ctx context.Context, l *Loader, key string, load func(ctx context.Context) (T, error)) (T, error) {
	var out T

	raw, ok, err := l.cache.Get(ctx, key)
	if err != nil {
		logrus.WithError(err).WithField("key", key).Warn("cache read failed")
	}
	if ok {
		if err := json.Unmarshal(raw, &out); err == nil {
			metrics.CacheRequestsTotal.WithLabelValues(metrics.CacheHit).Inc()
			return out, nil
		}
		logrus.WithField("key", key).Warn("discarding undecodable cache entry")
	}
	metrics.CacheRequestsTotal.WithLabelValues(metrics.CacheMiss).Inc()

	v, err, _ := l.group.Do(key, func() (any, error) {
		gen := l.generation(key)
		value, err := load(ctx)
		if err != nil {
			return nil, err
		}

		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}

		l.store(ctx, key, gen, encoded)
		return encoded, nil
	})
	if err != nil {
		return out, err
	}

	if err := json.Unmarshal(v.([]byte), &out); err != nil {
		return out, err
	}

	return out, nil
}
