package api

import (
	"context"
	"net/http"
	"time"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
}

type ReadinessResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Workers   string    `json:"workers"`
	Database  string    `json:"database"`
}

const serviceName = "notify-dispatcher"

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Service:   serviceName,
	})
}

func handleReadiness(pool PoolState, db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := ReadinessResponse{
			Status:    "ready",
			Timestamp: time.Now(),
			Service:   serviceName,
			Workers:   "running",
			Database:  "unknown",
		}
		code := http.StatusOK

		if pool == nil || !pool.Running() {
			resp.Workers = "stopped"
			resp.Status = "not ready"
			code = http.StatusServiceUnavailable
		}

		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				resp.Database = "disconnected"
				resp.Status = "not ready"
				code = http.StatusServiceUnavailable
			} else {
				resp.Database = "connected"
			}
		}

		writeJSON(w, code, resp)
	}
}
