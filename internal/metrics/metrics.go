package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NotificationsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatcher_notifications_sent_total",
		Help: "Total number of notifications delivered, by mime type",
	}, []string{"mime_type"})

	NotificationsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatcher_notifications_failed_total",
		Help: "Total number of notifications the transport failed to deliver",
	})

	SimulatedNotificationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatcher_simulated_notifications_total",
		Help: "Total number of notifications skipped because simulated mode is on",
	})

	NotificationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dispatcher_notification_duration_seconds",
		Help:    "Time taken by the transport to deliver a notification",
		Buckets: prometheus.DefBuckets,
	})

	BatchesProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatcher_batches_processed_total",
		Help: "Total number of batches fully processed",
	})

	ActiveAlarms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dispatcher_active_alarms",
		Help: "Current number of destinations with a standing notification alarm",
	})

	AlarmsRaisedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatcher_alarms_raised_total",
		Help: "Total number of notification alarms raised",
	})

	AlarmsReleasedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatcher_alarms_released_total",
		Help: "Total number of notification alarms released",
	})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dispatcher_active_workers",
		Help: "Current number of batch workers",
	})

	PendingBatches = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dispatcher_pending_batches",
		Help: "Current number of batches waiting for a worker",
	})

	StatusSyncTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatcher_status_sync_total",
		Help: "Subscription status rows persisted, by result",
	}, []string{"result"})
)
