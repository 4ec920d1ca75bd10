package config

import (
	"github.com/marmos91/stonify/pkg/metrics"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// Transfer observes frame transfers (never nil, no-op if disabled)
	Transfer metrics.TransferMetrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled the global Prometheus registry is initialized
// before any collector is created, so frame stores built afterwards (see
// InitializeRegistry) register their cache metrics too. If disabled every
// component gets a no-op implementation.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{
			Transfer: metrics.NewNoopTransferMetrics(),
		}
	}

	metrics.InitRegistry()

	return &MetricsResult{
		Server:   metrics.NewServer(metrics.ServerConfig{Port: cfg.Metrics.Port}),
		Transfer: metrics.NewTransferMetrics(),
	}
}
