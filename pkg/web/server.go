// Package web serves the browser upload form for flight logs.
package web

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/droneops/loglift/pkg/config"
	"github.com/droneops/loglift/pkg/upload"
)

const shutdownTimeout = 10 * time.Second

// Server exposes the web server lifecycle.
type Server interface {
	Start(ctx context.Context) error
	Stop() error
}

// Compile-time interface check.
var _ Server = (*server)(nil)

type server struct {
	log        logrus.FieldLogger
	cfg        *config.WebConfig
	keyPrefix  string
	uploader   upload.Uploader
	httpServer *http.Server
	wg         sync.WaitGroup
}

// NewServer creates a new web form server. keyPrefix is the object key
// prefix uploads are stored under.
func NewServer(
	log logrus.FieldLogger,
	cfg *config.WebConfig,
	keyPrefix string,
	uploader upload.Uploader,
) Server {
	return &server{
		log:       log.WithField("component", "web"),
		cfg:       cfg,
		keyPrefix: keyPrefix,
		uploader:  uploader,
	}
}

// Start binds the listener and starts serving the upload form.
func (s *server) Start(ctx context.Context) error {
	router := s.buildRouter()

	s.httpServer = &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Bind the listener synchronously so we fail fast on port conflicts.
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return err
	}

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		s.log.WithField("listen", s.cfg.Listen).
			Info("Web server starting")

		if err := s.httpServer.Serve(ln); err != nil &&
			err != http.ErrServerClosed {
			s.log.WithError(err).Error("HTTP server error")
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *server) Stop() error {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(
			context.Background(), shutdownTimeout,
		)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.log.WithError(err).Warn("HTTP server shutdown error")
		}
	}

	s.wg.Wait()

	s.log.Info("Web server stopped")

	return nil
}
