package subcache

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/mtr002/notify-dispatcher/internal/interfaces"
	"github.com/mtr002/notify-dispatcher/internal/logger"
	"github.com/mtr002/notify-dispatcher/internal/metrics"
)

// Syncer periodically persists changed cache entries
type Syncer struct {
	cache *Cache
	store interfaces.StatusStore
	cron  *cron.Cron

	mu sync.Mutex
}

// NewSyncer creates a syncer that flushes cache into store on the given cron schedule
func NewSyncer(cache *Cache, store interfaces.StatusStore, schedule string) (*Syncer, error) {
	s := &Syncer{
		cache: cache,
		store: store,
		cron:  cron.New(),
	}

	if _, err := s.cron.AddFunc(schedule, func() { s.Sync(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid status sync schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins the scheduled syncs
func (s *Syncer) Start() {
	logger.Logger.Info().Msg("Starting subscription status sync")
	s.cron.Start()
}

// Stop waits for a running sync and performs a final flush
func (s *Syncer) Stop(ctx context.Context) {
	<-s.cron.Stop().Done()
	s.Sync(ctx)
	logger.Logger.Info().Msg("Subscription status sync stopped")
}

// Sync writes every dirty entry to the store and returns how many were persisted.
// Entries that fail to persist stay dirty for the next run.
func (s *Syncer) Sync(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	dirty := s.cache.TakeDirty()
	synced := 0
	for i := range dirty {
		st := &dirty[i]
		if err := s.store.UpsertStatus(ctx, st); err != nil {
			logger.Logger.Error().
				Err(err).
				Str("tenant", st.Tenant).
				Str("subscription_id", st.SubscriptionID).
				Msg("Failed to persist subscription status")
			s.cache.MarkDirty(st.Tenant, st.SubscriptionID)
			metrics.StatusSyncTotal.WithLabelValues("error").Inc()
			continue
		}
		synced++
		metrics.StatusSyncTotal.WithLabelValues("ok").Inc()
	}

	if len(dirty) > 0 {
		logger.Logger.Debug().Int("dirty", len(dirty)).Int("synced", synced).Msg("Subscription status sync done")
	}
	return synced
}
