package cache

import (
	"time"

	"github.com/abzagency/signup-api/pkg/logger"
	"github.com/abzagency/signup-api/pkg/metrics"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const sessionCleanupInterval = 30 * time.Second

// Unmounter is anything that must release resources when it leaves the cache
type Unmounter interface {
	Unmount()
}

// SessionCache keeps live form sessions in memory. Entries expire after ttl
// without access; every hit pushes the expiry forward. Entries leaving the
// cache, by expiry or removal, are unmounted.
type SessionCache[T Unmounter] struct {
	cache *gocache.Cache
	ttl   time.Duration
}

// NewSessionCache creates a session cache with a sliding ttl
func NewSessionCache[T Unmounter](ttl time.Duration) *SessionCache[T] {
	c := gocache.New(ttl, sessionCleanupInterval)

	c.OnEvicted(func(id string, value interface{}) {
		metrics.ActiveSessions.Dec()
		if session, ok := value.(T); ok {
			session.Unmount()
		}
		logger.Debug("Form session evicted", zap.String("session_id", id))
	})

	return &SessionCache[T]{cache: c, ttl: ttl}
}

// Put stores session under id
func (sc *SessionCache[T]) Put(id string, session T) {
	if _, found := sc.cache.Get(id); !found {
		metrics.ActiveSessions.Inc()
	}
	sc.cache.Set(id, session, sc.ttl)
}

// Get returns the session for id and extends its lifetime
func (sc *SessionCache[T]) Get(id string) (T, bool) {
	var zero T

	data, found := sc.cache.Get(id)
	if !found {
		metrics.SessionLookups.WithLabelValues("miss").Inc()
		return zero, false
	}

	session, ok := data.(T)
	if !ok {
		logger.Error("Invalid session cache data type", zap.String("session_id", id))
		sc.cache.Delete(id)
		metrics.SessionLookups.WithLabelValues("miss").Inc()
		return zero, false
	}

	sc.cache.Set(id, session, sc.ttl)
	metrics.SessionLookups.WithLabelValues("hit").Inc()
	return session, true
}

// Delete removes and unmounts the session for id
func (sc *SessionCache[T]) Delete(id string) {
	sc.cache.Delete(id)
}

// Count returns the number of stored sessions, including expired ones not
// yet cleaned up
func (sc *SessionCache[T]) Count() int {
	return sc.cache.ItemCount()
}

// Close unmounts every stored session
func (sc *SessionCache[T]) Close() {
	for id := range sc.cache.Items() {
		sc.cache.Delete(id)
	}
	logger.Info("Session cache closed")
}
