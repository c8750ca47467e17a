// Package reporting builds the metrics reporter: a meter provider whose
// periodic reader pushes to the proxy every reporting interval.
package reporting

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	wferrors "github.com/stacklok/wftel/pkg/errors"
	"github.com/stacklok/wftel/pkg/logger"
	"github.com/stacklok/wftel/pkg/telemetry/application"
	"github.com/stacklok/wftel/pkg/telemetry/providers/prometheus"
	"github.com/stacklok/wftel/pkg/telemetry/sender"
)

const (
	instrumentationName = "github.com/stacklok/wftel/pkg/telemetry/reporting"

	// HeartbeatMetric is reported every interval while the reporter is alive.
	HeartbeatMetric = "component.heartbeat"

	// ComponentName tags the heartbeat.
	ComponentName = "wftel"
)

// Config holds the reporter settings that are not part of the sender or tags.
type Config struct {
	// Source names the reporting host.
	Source string
	// ReportingInterval is the push cadence. Must be positive.
	ReportingInterval time.Duration
	// PrometheusMetricsPath also exposes the metrics for scraping.
	PrometheusMetricsPath bool
}

var newPrometheusReader = prometheus.NewReader

// MetricsReporter periodically flushes metrics through a sender. The flush
// loop belongs to the SDK periodic reader.
type MetricsReporter struct {
	sender            *sender.Sender
	tags              application.Tags
	source            string
	interval          time.Duration
	provider          *sdkmetric.MeterProvider
	prometheusHandler http.Handler
}

// NewMetricsReporter creates a reporter bound to s and tagged with tags.
func NewMetricsReporter(
	ctx context.Context,
	s *sender.Sender,
	tags application.Tags,
	config Config,
) (*MetricsReporter, error) {
	if s == nil {
		return nil, wferrors.NewInvalidArgumentError("metrics reporter requires a sender", nil)
	}
	if err := tags.Validate(); err != nil {
		return nil, err
	}
	if config.ReportingInterval <= 0 {
		return nil, wferrors.NewInvalidArgumentError(
			fmt.Sprintf("reporting interval must be positive, got %s", config.ReportingInterval), nil)
	}

	res, err := tags.Resource(ctx, config.Source)
	if err != nil {
		return nil, err
	}

	// The periodic reader starts its collection loop on creation, so it is
	// built last.
	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	var promHandler http.Handler
	if config.PrometheusMetricsPath {
		promReader, handler, err := newPrometheusReader(prometheus.Config{IncludeRuntimeMetrics: true})
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus reader: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(promReader))
		promHandler = handler
	}

	opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(
		newRoutingExporter(s.MetricExporter(), s.DistributionExporter()),
		sdkmetric.WithInterval(config.ReportingInterval),
	)))

	r := &MetricsReporter{
		sender:            s,
		tags:              tags,
		source:            config.Source,
		interval:          config.ReportingInterval,
		provider:          sdkmetric.NewMeterProvider(opts...),
		prometheusHandler: promHandler,
	}

	if err := r.registerHeartbeat(); err != nil {
		_ = r.provider.Shutdown(ctx)
		return nil, err
	}

	logger.Debugw("metrics reporter created",
		"metrics_endpoint", s.Descriptor().MetricsEndpoint(),
		"distribution_endpoint", s.Descriptor().DistributionEndpoint(),
		"interval", config.ReportingInterval,
		"source", config.Source)
	return r, nil
}

func (r *MetricsReporter) registerHeartbeat() error {
	attrs := metric.WithAttributes(
		attribute.String("component", ComponentName),
		application.SourceKey.String(r.source),
	)
	_, err := r.provider.Meter(instrumentationName).Int64ObservableGauge(
		HeartbeatMetric,
		metric.WithDescription("Reports 1 on every collection while the reporter is running"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(1, attrs)
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to register heartbeat gauge: %w", err)
	}
	return nil
}

// MeterProvider returns the provider instrumentation should record into.
func (r *MetricsReporter) MeterProvider() metric.MeterProvider {
	return r.provider
}

// Meter is shorthand for MeterProvider().Meter(name).
func (r *MetricsReporter) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	return r.provider.Meter(name, opts...)
}

// Tags returns the application identity attached to every metric.
func (r *MetricsReporter) Tags() application.Tags {
	return r.tags
}

// Source returns the reporting host name.
func (r *MetricsReporter) Source() string {
	return r.source
}

// ReportingInterval returns the push cadence.
func (r *MetricsReporter) ReportingInterval() time.Duration {
	return r.interval
}

// Sender returns the sender the reporter pushes through.
func (r *MetricsReporter) Sender() *sender.Sender {
	return r.sender
}

// PrometheusHandler returns the scrape handler, or nil when not enabled.
func (r *MetricsReporter) PrometheusHandler() http.Handler {
	return r.prometheusHandler
}

// Flush collects and pushes immediately.
func (r *MetricsReporter) Flush(ctx context.Context) error {
	return r.provider.ForceFlush(ctx)
}

// Shutdown flushes pending metrics and shuts the exporters down.
func (r *MetricsReporter) Shutdown(ctx context.Context) error {
	if err := r.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down metrics reporter: %w", err)
	}
	return nil
}
