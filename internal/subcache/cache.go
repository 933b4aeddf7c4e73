package subcache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mtr002/notify-dispatcher/internal/interfaces"
	"github.com/mtr002/notify-dispatcher/internal/logger"
)

type key struct {
	tenant string
	subID  string
}

type item struct {
	status interfaces.SubscriptionStatus
	dirty  bool
}

// Cache holds the last delivery status of every subscription seen.
// Unknown subscriptions are inserted on first write.
type Cache struct {
	mu    sync.RWMutex
	items map[key]*item
	now   func() time.Time
}

// New creates an empty cache
func New() *Cache {
	return &Cache{
		items: make(map[key]*item),
		now:   time.Now,
	}
}

// RecordStatus implements interfaces.StatusRecorder
func (c *Cache) RecordStatus(ctx context.Context, tenant, subscriptionID string, status interfaces.DeliveryStatus) {
	now := c.now()
	k := key{tenant: tenant, subID: subscriptionID}

	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items[k]
	if !ok {
		it = &item{status: interfaces.SubscriptionStatus{Tenant: tenant, SubscriptionID: subscriptionID}}
		c.items[k] = it
	}

	s := &it.status
	s.Count++
	s.LastNotification = now
	if status.Success() {
		s.LastSuccess = &now
		s.LastSuccessCode = status.StatusCode
		s.FailsCounter = 0
		s.LastNotificationFail = false
	} else {
		s.LastFailure = &now
		s.LastFailureReason = status.ErrorText
		s.FailsCounter++
		s.LastNotificationFail = true
	}
	it.dirty = true

	logger.FromContext(ctx).Trace().
		Str("tenant", tenant).
		Str("subscription_id", subscriptionID).
		Int("error_code", status.ErrorCode).
		Int("status_code", status.StatusCode).
		Msg("Subscription status updated")
}

// Get returns a copy of the status for (tenant, subscriptionID)
func (c *Cache) Get(tenant, subscriptionID string) (interfaces.SubscriptionStatus, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, ok := c.items[key{tenant: tenant, subID: subscriptionID}]
	if !ok {
		return interfaces.SubscriptionStatus{}, false
	}
	return copyStatus(it.status), true
}

// List returns every cached status ordered by tenant and subscription
func (c *Cache) List() []interfaces.SubscriptionStatus {
	c.mu.RLock()
	out := make([]interfaces.SubscriptionStatus, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, copyStatus(it.status))
	}
	c.mu.RUnlock()

	sortStatuses(out)
	return out
}

// Len returns the number of cached subscriptions
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// TakeDirty returns the statuses changed since the previous call and clears their mark
func (c *Cache) TakeDirty() []interfaces.SubscriptionStatus {
	c.mu.Lock()
	var out []interfaces.SubscriptionStatus
	for _, it := range c.items {
		if it.dirty {
			out = append(out, copyStatus(it.status))
			it.dirty = false
		}
	}
	c.mu.Unlock()

	sortStatuses(out)
	return out
}

// MarkDirty flags an entry so the next sync picks it up again
func (c *Cache) MarkDirty(tenant, subscriptionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if it, ok := c.items[key{tenant: tenant, subID: subscriptionID}]; ok {
		it.dirty = true
	}
}

func copyStatus(s interfaces.SubscriptionStatus) interfaces.SubscriptionStatus {
	if s.LastSuccess != nil {
		t := *s.LastSuccess
		s.LastSuccess = &t
	}
	if s.LastFailure != nil {
		t := *s.LastFailure
		s.LastFailure = &t
	}
	return s
}

func sortStatuses(s []interfaces.SubscriptionStatus) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Tenant != s[j].Tenant {
			return s[i].Tenant < s[j].Tenant
		}
		return s[i].SubscriptionID < s[j].SubscriptionID
	})
}
