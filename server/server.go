// Package server is the local admin HTTP surface of the sync kit: queue
// inspection and manual sync, notification management and metrics.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/campuscommunity/synckit/logger"
	"github.com/campuscommunity/synckit/routine"
	"go.uber.org/zap"
)

// Server serves the admin router
type Server struct {
	logger logger.Logger
	cfg    *Config
	http   *http.Server
	task   *routine.Task
}

// New creates a Server for handler
func New(log logger.Logger, cfg *Config, handler http.Handler) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Server{
		logger: log,
		cfg:    cfg,
		http: &http.Server{
			Addr:         cfg.Addr,
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}, nil
}

// Start listens on the configured address and serves in the background.
// The bound address is returned, which matters for ":0".
func (s *Server) Start(ctx context.Context) (string, error) {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return "", ErrListen(s.cfg.Addr, err)
	}

	s.task = routine.Start(ctx, s.logger, "admin-http", func(context.Context) error {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("admin server stopped", zap.Error(err))
			return err
		}
		return nil
	})

	s.logger.Info("admin server listening", zap.String("addr", ln.Addr().String()))
	return ln.Addr().String(), nil
}

// Shutdown stops accepting requests and waits for in-flight ones, bounded
// by ShutdownTimeout
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	err := s.http.Shutdown(ctx)
	if s.task != nil {
		if werr := s.task.WaitContext(ctx); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}
