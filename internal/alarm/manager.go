package alarm

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mtr002/notify-dispatcher/internal/logger"
	"github.com/mtr002/notify-dispatcher/internal/metrics"
)

// Alarm is a standing notification failure for one destination
type Alarm struct {
	URL       string    `json:"url"`
	Detail    string    `json:"detail"`
	Count     int       `json:"count"`
	RaisedAt  time.Time `json:"raised_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Manager deduplicates notification alarms per destination URL
type Manager struct {
	mu        sync.Mutex
	alarms    map[string]*Alarm
	logAlways bool
	raised    uint64
	released  uint64
}

// NewManager creates an alarm manager. With logAlways set, repeated
// failures on an already raised destination are logged too.
func NewManager(logAlways bool) *Manager {
	return &Manager{
		alarms:    make(map[string]*Alarm),
		logAlways: logAlways,
	}
}

// Raise opens an alarm for url, or refreshes the one already open
func (m *Manager) Raise(ctx context.Context, url, detail string) {
	log := logger.FromContext(ctx)
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if a, ok := m.alarms[url]; ok {
		a.Detail = detail
		a.Count++
		a.UpdatedAt = now
		if m.logAlways {
			log.Warn().Str("url", url).Str("detail", detail).Msg("Repeated NotificationError")
		}
		return
	}

	m.alarms[url] = &Alarm{URL: url, Detail: detail, Count: 1, RaisedAt: now, UpdatedAt: now}
	m.raised++
	metrics.AlarmsRaisedTotal.Inc()
	metrics.ActiveAlarms.Inc()
	log.Warn().Str("url", url).Str("detail", detail).Msg("Raising alarm NotificationError")
}

// Clear releases the alarm for url. Clearing an absent alarm does nothing.
func (m *Manager) Clear(ctx context.Context, url string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.alarms[url]; !ok {
		return
	}

	delete(m.alarms, url)
	m.released++
	metrics.AlarmsReleasedTotal.Inc()
	metrics.ActiveAlarms.Dec()
	logger.FromContext(ctx).Warn().Str("url", url).Msg("Releasing alarm NotificationError")
}

// Get returns a copy of the alarm for url
func (m *Manager) Get(url string) (Alarm, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.alarms[url]
	if !ok {
		return Alarm{}, false
	}
	return *a, true
}

// Active lists open alarms ordered by URL
func (m *Manager) Active() []Alarm {
	m.mu.Lock()
	out := make([]Alarm, 0, len(m.alarms))
	for _, a := range m.alarms {
		out = append(out, *a)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}

// Counters returns how many alarms were raised and released so far
func (m *Manager) Counters() (raised, released uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.raised, m.released
}
