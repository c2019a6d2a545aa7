// Package server wraps *http.Server in an fx.Lifecycle hook, generalizing
// the start/stop pattern the teacher already applies to the pgx pool and
// telemetry provider (cmd/auth/main.go's newPGXPool/newTelemetry) to the
// HTTP listener itself.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// HTTPServer owns the *http.Server and its accept loop.
type HTTPServer struct {
	srv    *http.Server
	logger *zap.Logger
}

// New builds an HTTPServer bound to addr, serving handler.
func New(lc fx.Lifecycle, addr string, handler http.Handler, logger *zap.Logger) *HTTPServer {
	s := &HTTPServer{
		srv: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server stopped", zap.Error(err))
				}
			}()
			logger.Info("http server listening", zap.String("addr", addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return s.srv.Shutdown(stopCtx)
		},
	})

	return s
}
