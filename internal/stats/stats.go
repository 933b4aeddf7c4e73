package stats

import (
	"sync"
	"sync/atomic"

	"github.com/mtr002/notify-dispatcher/internal/interfaces"
	"github.com/mtr002/notify-dispatcher/internal/metrics"
)

// Registry counts dispatch events per kind and mime type
type Registry struct {
	mu     sync.RWMutex
	counts map[interfaces.EventKind]map[string]*atomic.Uint64
}

// NewRegistry creates an empty statistics registry
func NewRegistry() *Registry {
	return &Registry{counts: make(map[interfaces.EventKind]map[string]*atomic.Uint64)}
}

// Increment implements interfaces.StatsSink
func (r *Registry) Increment(kind interfaces.EventKind, mimeType string) {
	r.counter(kind, mimeType).Add(1)

	if kind == interfaces.NotifyContextSent {
		metrics.NotificationsSentTotal.WithLabelValues(mimeType).Inc()
	}
}

// Count returns the current value for kind and mimeType
func (r *Registry) Count(kind interfaces.EventKind, mimeType string) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if c, ok := r.counts[kind][mimeType]; ok {
		return c.Load()
	}
	return 0
}

// Total returns the sum over all mime types for kind
func (r *Registry) Total(kind interfaces.EventKind) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total uint64
	for _, c := range r.counts[kind] {
		total += c.Load()
	}
	return total
}

// Snapshot copies every counter
func (r *Registry) Snapshot() map[interfaces.EventKind]map[string]uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[interfaces.EventKind]map[string]uint64, len(r.counts))
	for kind, byMime := range r.counts {
		m := make(map[string]uint64, len(byMime))
		for mime, c := range byMime {
			m[mime] = c.Load()
		}
		out[kind] = m
	}
	return out
}

func (r *Registry) counter(kind interfaces.EventKind, mimeType string) *atomic.Uint64 {
	r.mu.RLock()
	c, ok := r.counts[kind][mimeType]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	byMime, ok := r.counts[kind]
	if !ok {
		byMime = make(map[string]*atomic.Uint64)
		r.counts[kind] = byMime
	}
	if c, ok = byMime[mimeType]; !ok {
		c = new(atomic.Uint64)
		byMime[mimeType] = c
	}
	return c
}

// Counter is the simulated-notification counter shared by all workers
type Counter struct {
	n atomic.Uint64
}

// Inc adds one and returns the new value
func (c *Counter) Inc() uint64 {
	metrics.SimulatedNotificationsTotal.Inc()
	return c.n.Add(1)
}

// Load returns the current value
func (c *Counter) Load() uint64 {
	return c.n.Load()
}
