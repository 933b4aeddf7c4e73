package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mtr002/notify-dispatcher/internal/logger"
)

type Server struct {
	server *http.Server
}

func NewServer(addr string, deps Dependencies) *Server {
	r := chi.NewRouter()
	AddRoutes(r, deps)

	return &Server{
		server: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

func (s *Server) Start() {
	logger.Logger.Info().Str("addr", s.server.Addr).Msg("Starting admin API server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Logger.Fatal().Err(err).Msg("Failed to start server")
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
