package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mtr002/notify-dispatcher/internal/interfaces"
	"github.com/mtr002/notify-dispatcher/internal/logger"
	"github.com/mtr002/notify-dispatcher/internal/metrics"
	"github.com/mtr002/notify-dispatcher/internal/stats"
)

const tracerName = "github.com/mtr002/notify-dispatcher/internal/worker"

// Config holds the dispatch settings fixed at construction time
type Config struct {
	Simulated        bool
	SimulatedCounter *stats.Counter
}

// Worker delivers the jobs of a batch and applies their side effects
type Worker struct {
	sender   interfaces.Sender
	statuses interfaces.StatusRecorder
	alarms   interfaces.AlarmManager
	stats    interfaces.StatsSink
	observer interfaces.OutcomeObserver
	config   Config
	tracer   trace.Tracer
}

// NewWorker creates a dispatch worker. observer may be nil.
func NewWorker(
	sender interfaces.Sender,
	statuses interfaces.StatusRecorder,
	alarms interfaces.AlarmManager,
	statsSink interfaces.StatsSink,
	observer interfaces.OutcomeObserver,
	config Config,
) *Worker {
	if config.SimulatedCounter == nil {
		config.SimulatedCounter = &stats.Counter{}
	}

	return &Worker{
		sender:   sender,
		statuses: statuses,
		alarms:   alarms,
		stats:    statsSink,
		observer: observer,
		config:   config,
		tracer:   otel.Tracer(tracerName),
	}
}

// Run processes every job of batch in order and releases it.
// Delivery failures are recorded as side effects; nothing is returned.
func (w *Worker) Run(ctx context.Context, batch *interfaces.Batch) {
	if batch == nil || batch.Released() {
		return
	}
	if batch.TransactionID == "" {
		batch.TransactionID = uuid.New().String()
	}

	log := logger.WithBatchID(batch.ID)
	log.Debug().Str("transaction_id", batch.TransactionID).Int("jobs", batch.Len()).Msg("Processing batch")

	for i, job := range batch.Jobs {
		w.processJob(ctx, batch, job)
		batch.Jobs[i] = nil
	}

	batch.Release()
	metrics.BatchesProcessedTotal.Inc()
}

// processJob runs one job inside its own transaction-scoped context
func (w *Worker) processJob(parent context.Context, batch *interfaces.Batch, job *interfaces.NotificationJob) {
	url := job.URL()

	ctx := logger.WithTransaction(parent, batch.TransactionID, job.Correlator)
	ctx, span := w.tracer.Start(ctx, "notification.send", trace.WithAttributes(
		attribute.String("notification.url", url),
		attribute.String("notification.verb", job.Verb),
		attribute.String("notification.subscription_id", job.SubscriptionID),
		attribute.String("notification.tenant", job.Tenant),
		attribute.Bool("notification.registration", job.Registration),
		attribute.Bool("notification.simulated", w.config.Simulated),
	))
	defer span.End()

	log := logger.FromContext(ctx)
	log.Debug().
		Str("host", job.Host).
		Int("port", job.Port).
		Str("verb", job.Verb).
		Str("tenant", job.Tenant).
		Str("service_path", job.ServicePath).
		Str("auth_token", job.AuthToken).
		Str("path", job.Resource).
		Str("content_type", job.ContentType).
		Msg("Sending notification")

	outcome := interfaces.Outcome{
		BatchID:        batch.ID,
		TransactionID:  batch.TransactionID,
		SubscriptionID: job.SubscriptionID,
		Tenant:         job.Tenant,
		Verb:           job.Verb,
		URL:            url,
		Simulated:      w.config.Simulated,
		StatusCode:     interfaces.StatusCodeNone,
	}

	if w.config.Simulated {
		log.Debug().Msg("Simulated notification mode on, skipping outgoing request")
		w.config.SimulatedCounter.Inc()
	} else {
		w.send(ctx, job, url, &outcome)
	}

	if outcome.Error != "" {
		span.SetStatus(codes.Error, outcome.Error)
	} else {
		span.SetAttributes(attribute.Int("http.response.status_code", outcome.StatusCode))
	}

	// Only one of status code and error text goes into the summary.
	if outcome.StatusCode != interfaces.StatusCodeNone {
		log.Info().
			Str("subscription_id", job.SubscriptionID).
			Str("verb", job.Verb).
			Str("url", url).
			Int("status_code", outcome.StatusCode).
			Msg("Notification result")
	} else {
		log.Info().
			Str("subscription_id", job.SubscriptionID).
			Str("verb", job.Verb).
			Str("url", url).
			Str("error", outcome.Error).
			Msg("Notification result")
	}

	if w.observer != nil {
		outcome.Timestamp = time.Now()
		w.observer.Observe(outcome)
	}
}

func (w *Worker) send(ctx context.Context, job *interfaces.NotificationJob, url string, outcome *interfaces.Outcome) {
	start := time.Now()
	res, err := w.sender.Send(ctx, job)
	metrics.NotificationDuration.Observe(time.Since(start).Seconds())

	if err == nil && res != nil {
		outcome.Delivered = true
		outcome.StatusCode = res.StatusCode

		w.stats.Increment(interfaces.NotifyContextSent, job.MimeType)
		w.alarms.Clear(ctx, url)
		if !job.Registration {
			w.statuses.RecordStatus(ctx, job.Tenant, job.SubscriptionID, interfaces.DeliveryStatus{
				ErrorCode:  interfaces.ErrorCodeNone,
				StatusCode: res.StatusCode,
			})
		}
		return
	}

	detail := "no response from transport"
	if err != nil {
		detail = err.Error()
	}
	outcome.Error = detail
	metrics.NotificationsFailedTotal.Inc()

	w.alarms.Raise(ctx, url, "notification failure for sender-thread: "+detail)
	if !job.Registration {
		w.statuses.RecordStatus(ctx, job.Tenant, job.SubscriptionID, interfaces.DeliveryStatus{
			ErrorCode:  interfaces.ErrorCodeFailure,
			StatusCode: interfaces.StatusCodeNone,
			ErrorText:  detail,
		})
	}
}
