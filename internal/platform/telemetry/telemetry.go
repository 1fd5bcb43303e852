// Package telemetry sets up the OpenTelemetry meter provider and exposes it
// to Prometheus scrapers.
package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"waste_ops_backend/internal/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"
)

// ServiceName is reported as the service.name resource attribute.
const ServiceName = "waste-ops-backend"

// Provider owns the meter provider and the /metrics handler. When metrics
// are disabled, MeterProvider is a no-op and Handler is nil.
type Provider struct {
	meterProvider metric.MeterProvider
	sdk           *sdkmetric.MeterProvider
	handler       http.Handler
	logger        *zap.Logger
}

// NewProvider builds a Prometheus-backed meter provider with its own
// registry, so tests and multiple instances never collide on the default one.
func NewProvider(cfg *config.Config, logger *zap.Logger) (*Provider, error) {
	logger = logger.Named("Telemetry")
	if !cfg.MetricsEnabled {
		logger.Info("Metrics disabled, using no-op meter provider")
		return &Provider{meterProvider: noop.NewMeterProvider(), logger: logger}, nil
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(semconv.ServiceName(ServiceName)),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	logger.Info("Metrics initialized", zap.String("path", "/metrics"))
	return &Provider{
		meterProvider: mp,
		sdk:           mp,
		handler:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		logger:        logger,
	}, nil
}

// MeterProvider returns the provider instruments should be created from.
func (p *Provider) MeterProvider() metric.MeterProvider {
	return p.meterProvider
}

// Handler serves the Prometheus exposition format, or nil when disabled.
func (p *Provider) Handler() http.Handler {
	return p.handler
}

// Shutdown flushes and releases the SDK provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.sdk == nil {
		return nil
	}
	if err := p.sdk.Shutdown(ctx); err != nil {
		p.logger.Warn("Meter provider shutdown failed", zap.Error(err))
		return err
	}
	return nil
}
