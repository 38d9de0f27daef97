package observability

import (
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"interviewprep/internal/config"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
)

// PrometheusConfig holds Prometheus-specific configuration
type PrometheusConfig struct {
	Enabled  bool
	Endpoint string
	Port     string
}

// SetupPrometheusExporter creates the exporter and the mux serving it
func SetupPrometheusExporter(config PrometheusConfig) (metric.Reader, *http.ServeMux, error) {
	if !config.Enabled {
		return nil, nil, nil
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	// the exporter registers with the default registry
	mux := http.NewServeMux()
	mux.Handle(metricsPath(config), promhttp.Handler())

	return exporter, mux, nil
}

// metricsPath is the configured scrape path, /metrics when unset
func metricsPath(config PrometheusConfig) string {
	if config.Endpoint == "" {
		return "/metrics"
	}
	return config.Endpoint
}

// StartPrometheusServer binds the port synchronously and serves in the
// background, so a port clash is reported to the caller.
func StartPrometheusServer(mux *http.ServeMux, config PrometheusConfig) (*http.Server, error) {
	addr := ":" + config.Port
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Prometheus metrics available at http://localhost%s%s", addr, metricsPath(config))
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Prometheus server error: %v", err)
		}
	}()

	return server, nil
}

// GetPrometheusConfig creates Prometheus configuration from provided config
func GetPrometheusConfig(cfg *config.Config) PrometheusConfig {
	if cfg != nil {
		return PrometheusConfig{
			Enabled:  cfg.Observability.Prometheus.Enabled,
			Endpoint: cfg.Observability.Prometheus.Endpoint,
			Port:     cfg.Observability.Prometheus.Port,
		}
	}

	return PrometheusConfig{
		Enabled:  true,
		Endpoint: "/metrics",
		Port:     "9090",
	}
}
