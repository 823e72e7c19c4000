// Package observability owns the metrics registry and its optional HTTP endpoint.
package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/uapsignal/signalscope/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the client.
type Metrics struct {
	registry *prometheus.Registry
	Client   *metrics.ClientMetrics

	mu     sync.Mutex
	server *http.Server
}

// NewMetrics creates a registry with the client collectors and Go runtime stats.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	clientMetrics, err := metrics.NewClientMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create client metrics: %w", err)
	}
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("failed to register go collector: %w", err)
	}

	return &Metrics{registry: registry, Client: clientMetrics}, nil
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterHandlers registers the metrics endpoint with the provided http.ServeMux.
func (m *Metrics) RegisterHandlers(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	}))
}

// Serve starts the /metrics endpoint on addr in the background and returns
// the bound address.
func (m *Metrics) Serve(addr string, logger *slog.Logger) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.server != nil {
		return "", errors.New("metrics server already running")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	m.RegisterHandlers(mux)
	m.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	srv := m.server
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", slog.Any("error", err))
		}
	}()
	logger.Info("metrics endpoint listening", slog.String("addr", ln.Addr().String()))
	return ln.Addr().String(), nil
}

// Shutdown stops the metrics endpoint if it is running.
func (m *Metrics) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	srv := m.server
	m.server = nil
	m.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
