package server

import (
	"fmt"
	"net/http"
	"time"

	"heatpump2mqtt/internal/config"
	"heatpump2mqtt/internal/core/port"

	"go.uber.org/zap"
)

// Deps are the pieces of the running bridge the HTTP API exposes.
type Deps struct {
	// Health reports nil while the control loop is serving the bus.
	Health   func() error
	State    port.StateReader
	Commands port.CommandSink
	Metrics  http.Handler
}

type Server struct {
	port           uint
	httpLog        bool
	commandTimeout time.Duration
	deps           Deps
	logger         *zap.Logger
}

func NewServer(cfg config.Config, deps Deps, logger *zap.Logger) *http.Server {
	NewServer := &Server{
		port:           cfg.Port,
		httpLog:        cfg.HttpLog,
		commandTimeout: 5 * time.Second,
		deps:           deps,
		logger:         logger.With(zap.String("component", "http")),
	}

	// Declare Server config
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", NewServer.port),
		Handler:      NewServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server
}
