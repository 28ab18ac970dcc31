package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/biocad/anbase/internal/infrastructure/monitoring/logging"
)

// Server is the status HTTP server. It runs beside a pipeline and never
// blocks it.
type Server struct {
	srv    *http.Server
	router http.Handler
	logger logging.Logger

	listener net.Listener
	done     chan error
}

// NewServer prepares a server for addr, e.g. ":9090".
func NewServer(addr string, router http.Handler, log logging.Logger) *Server {
	return &Server{
		router: router,
		logger: log.Named("status"),
		srv: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Start binds the address and serves in the background. A bind failure is
// returned; later serve errors are logged.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.done = make(chan error, 1)
	s.logger.Info("Status server listening", logging.String("addr", ln.Addr().String()))
	go func() {
		err := s.srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		if err != nil {
			s.logger.Error("Status server failed", logging.Err(err))
		}
		s.done <- err
	}()
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.srv.Addr
}

// Stop shuts the server down within ctx.
func (s *Server) Stop(ctx context.Context) error {
	if s.done == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return err
	}
	err := <-s.done
	s.done = nil
	s.logger.Info("Status server stopped")
	return err
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

//Personal.AI order the ending
