package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mtr002/notify-dispatcher/internal/alarm"
	"github.com/mtr002/notify-dispatcher/internal/db"
	"github.com/mtr002/notify-dispatcher/internal/interfaces"
	"github.com/mtr002/notify-dispatcher/internal/logger"
	"github.com/mtr002/notify-dispatcher/internal/nats"
	"github.com/mtr002/notify-dispatcher/internal/stats"
	"github.com/mtr002/notify-dispatcher/internal/subcache"
	"github.com/mtr002/notify-dispatcher/internal/websocket"
	"github.com/mtr002/notify-dispatcher/internal/worker"
)

const maxBatchBodySize = 8 << 20

type ctxKey string

const correlationKey ctxKey = "correlation_id"

// PoolState reports whether the worker pool is accepting batches
type PoolState interface {
	Running() bool
}

// BatchSubmitter hands a batch to the worker pool
type BatchSubmitter interface {
	Submit(batch *interfaces.Batch) error
}

// Pinger checks a backing store
type Pinger interface {
	Ping(ctx context.Context) error
}

// BatchPool is the worker pool as seen by the API
type BatchPool interface {
	PoolState
	BatchSubmitter
}

// StatusReader is the persisted subscription status store
type StatusReader interface {
	interfaces.StatusStore
	Pinger
}

// Dependencies are the components the admin API reads from.
// Pool, Store and Hub may be left nil.
type Dependencies struct {
	Pool      BatchPool
	Stats     *stats.Registry
	Simulated *stats.Counter
	Alarms    *alarm.Manager
	Cache     *subcache.Cache
	Store     StatusReader
	Hub       *websocket.Hub
}

func AddRoutes(r chi.Router, deps Dependencies) {
	r.Use(middleware.Recoverer)
	r.Use(correlationMiddleware)

	var pinger Pinger
	if deps.Store != nil {
		pinger = deps.Store
	}
	var pool PoolState
	if deps.Pool != nil {
		pool = deps.Pool
	}

	r.Get("/health", handleHealth)
	r.Get("/health/live", handleHealth)
	r.Get("/health/ready", handleReadiness(pool, pinger))
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/statistics", handleStatistics(deps.Stats, deps.Simulated))
	r.Get("/alarms", handleAlarms(deps.Alarms))
	r.Get("/subscriptions/{tenant}/{id}/status", handleSubscriptionStatus(deps.Cache, deps.Store))
	r.Post("/batches", handleSubmitBatch(deps.Pool))

	if deps.Hub != nil {
		r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
			websocket.HandleWebSocket(deps.Hub, w, r)
		})
	}
}

func correlationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get("X-Correlation-ID")
		if correlationID == "" {
			correlationID = uuid.New().String()
		}
		w.Header().Set("X-Correlation-ID", correlationID)
		ctx := context.WithValue(r.Context(), correlationKey, correlationID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationKey).(string); ok {
		return id
	}
	return ""
}

type statisticsResponse struct {
	Counters               map[interfaces.EventKind]map[string]uint64 `json:"counters"`
	SimulatedNotifications uint64                                     `json:"simulated_notifications"`
}

func handleStatistics(registry *stats.Registry, simulated *stats.Counter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := statisticsResponse{Counters: map[interfaces.EventKind]map[string]uint64{}}
		if registry != nil {
			resp.Counters = registry.Snapshot()
		}
		if simulated != nil {
			resp.SimulatedNotifications = simulated.Load()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleAlarms(alarms *alarm.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		active := []alarm.Alarm{}
		if alarms != nil {
			active = alarms.Active()
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"alarms": active,
			"count":  len(active),
		})
	}
}

func handleSubscriptionStatus(cache *subcache.Cache, store interfaces.StatusStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant := chi.URLParam(r, "tenant")
		if tenant == "-" {
			tenant = ""
		}
		subID := chi.URLParam(r, "id")
		log := logger.WithCorrelationID(getCorrelationID(r.Context()))

		if cache != nil {
			if st, ok := cache.Get(tenant, subID); ok {
				writeJSON(w, http.StatusOK, statusBody(&st))
				return
			}
		}

		if store != nil {
			st, err := store.GetStatus(r.Context(), tenant, subID)
			if err == nil {
				writeJSON(w, http.StatusOK, statusBody(st))
				return
			}
			if !errors.Is(err, db.ErrStatusNotFound) {
				log.Error().Err(err).Str("subscription_id", subID).Msg("Failed to read subscription status")
				http.Error(w, "Failed to read subscription status", http.StatusInternalServerError)
				return
			}
		}

		log.Warn().Str("tenant", tenant).Str("subscription_id", subID).Msg("Subscription status not found")
		http.Error(w, "Subscription status not found", http.StatusNotFound)
	}
}

func statusBody(st *interfaces.SubscriptionStatus) map[string]interface{} {
	return map[string]interface{}{
		"status":       st.State(),
		"notification": st,
	}
}

func handleSubmitBatch(submitter BatchSubmitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		correlationID := getCorrelationID(r.Context())
		log := logger.WithCorrelationID(correlationID)

		if submitter == nil {
			http.Error(w, "Batch submission not available", http.StatusServiceUnavailable)
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBatchBodySize))
		if err != nil {
			http.Error(w, "Failed to read body: "+err.Error(), http.StatusRequestEntityTooLarge)
			return
		}

		batch, err := nats.DecodeBatch(body)
		if err != nil {
			log.Warn().Err(err).Msg("Invalid batch request")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		id, txID, jobs := batch.ID, batch.TransactionID, batch.Len()
		if err := submitter.Submit(batch); err != nil {
			log.Error().Err(err).Str("batch_id", id).Msg("Failed to submit batch")
			code := http.StatusInternalServerError
			if errors.Is(err, worker.ErrPoolStopped) {
				code = http.StatusServiceUnavailable
			}
			http.Error(w, "Failed to submit batch: "+err.Error(), code)
			return
		}

		log.Info().Str("batch_id", id).Int("jobs", jobs).Msg("Batch accepted")
		writeJSON(w, http.StatusAccepted, map[string]interface{}{
			"batch_id":       id,
			"transaction_id": txID,
			"jobs":           jobs,
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to encode response")
	}
}
