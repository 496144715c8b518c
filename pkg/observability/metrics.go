// Package observability exposes the process metrics over HTTP.
package observability

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// MetricsServer serves the default prometheus registry on /metrics.
type MetricsServer struct {
	log    logrus.FieldLogger
	server *http.Server
}

func NewMetricsServer(log logrus.FieldLogger, addr string) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	return &MetricsServer{
		log: log.WithField("component", "metrics"),
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 30 * time.Second,
		},
	}
}

// Handler returns the exposition handler for the default registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
}

// Start listens on the configured address and serves until ctx is done.
func (m *MetricsServer) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", m.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", m.server.Addr, err)
	}

	return m.serve(ctx, listener)
}

func (m *MetricsServer) serve(ctx context.Context, listener net.Listener) error {
	m.log.WithField("addr", listener.Addr().String()).Info("Starting metrics server")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := m.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := m.server.Shutdown(shutdownCtx); err != nil {
			m.log.WithError(err).Error("failed to shutdown metrics server")
		}

		return nil
	})

	return g.Wait()
}
