package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Server wraps the standard HTTP server with helper methods for boot
// and graceful shutdown.
type Server struct {
	httpServer *http.Server
}

type Timeouts struct {
	Read  time.Duration
	Write time.Duration
}

func New(port string, handler http.Handler, t Timeouts) *Server {
	addr := port
	if addr == "" {
		addr = "8080"
	}
	if addr[0] != ':' {
		addr = fmt.Sprintf(":%s", addr)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       t.Read,
			WriteTimeout:      t.Write,
			IdleTimeout:       120 * time.Second,
		},
	}
}

func (s *Server) Addr() string {
	if s.httpServer == nil {
		return ""
	}
	return s.httpServer.Addr
}

// Start blocks until the server stops. A graceful Stop is not an error.
func (s *Server) Start() error {
	if s.httpServer == nil {
		return fmt.Errorf("server not configured")
	}
	return ignoreClosed(s.httpServer.ListenAndServe())
}

// Serve is Start on an existing listener.
func (s *Server) Serve(l net.Listener) error {
	if s.httpServer == nil {
		return fmt.Errorf("server not configured")
	}
	return ignoreClosed(s.httpServer.Serve(l))
}

func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
