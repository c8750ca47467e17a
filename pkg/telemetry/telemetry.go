// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stacklok/wftel/pkg/config"
	wferrors "github.com/stacklok/wftel/pkg/errors"
	"github.com/stacklok/wftel/pkg/logger"
	"github.com/stacklok/wftel/pkg/services"
	"github.com/stacklok/wftel/pkg/telemetry/application"
	"github.com/stacklok/wftel/pkg/telemetry/reporting"
	"github.com/stacklok/wftel/pkg/telemetry/sender"
	"github.com/stacklok/wftel/pkg/telemetry/tracing"
)

// RegistryKey is the registry entry the handle is published under.
const RegistryKey = "wavefront"

// shutdownTimeout bounds Shutdown when the caller's context has no deadline.
const shutdownTimeout = 5 * time.Second

// senderFactory builds the sender from a descriptor.
type senderFactory func(ctx context.Context, d sender.Descriptor) (*sender.Sender, error)

// Handle is the published (metrics reporter, tracer) pair.
type Handle struct {
	sender  *sender.Sender
	tags    application.Tags
	metrics *reporting.MetricsReporter
	tracer  *tracing.Tracer
}

// Configure builds the telemetry pipeline described by cfg and publishes it
// into reg under RegistryKey. Nothing is written to reg when any step fails.
func Configure(ctx context.Context, cfg config.ProxyConfig, reg *services.Registry) (*Handle, error) {
	return configure(ctx, cfg, reg, sender.New)
}

func configure(
	ctx context.Context,
	cfg config.ProxyConfig,
	reg *services.Registry,
	newSender senderFactory,
) (*Handle, error) {
	if reg == nil {
		return nil, wferrors.NewInvalidArgumentError("service registry is required", nil)
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s, err := newSender(ctx, sender.DescriptorFromConfig(cfg))
	if err != nil {
		return nil, wferrors.NewUpstreamConstructionError("failed to create proxy sender", err)
	}

	tags, err := application.New(
		cfg.Application,
		cfg.Service,
		application.WithCluster(cfg.Cluster),
		application.WithShard(cfg.Shard),
		application.WithCustomTags(cfg.CustomTags),
	)
	if err != nil {
		discard(ctx, s.Shutdown)
		return nil, wferrors.NewUpstreamConstructionError("failed to create application tags", err)
	}

	metrics, err := reporting.NewMetricsReporter(ctx, s, tags, reporting.Config{
		Source:                cfg.Source,
		ReportingInterval:     cfg.ReportingInterval(),
		PrometheusMetricsPath: cfg.PrometheusMetricsPath,
	})
	if err != nil {
		discard(ctx, s.Shutdown)
		return nil, wferrors.NewUpstreamConstructionError("failed to create metrics reporter", err)
	}

	spanReporter, err := tracing.NewSpanReporter(s)
	if err != nil {
		discard(ctx, metrics.Shutdown, s.SpanExporter().Shutdown)
		return nil, wferrors.NewUpstreamConstructionError("failed to create span reporter", err)
	}

	tracer, err := tracing.NewTracer(ctx, spanReporter, tags, tracing.Config{
		Source:       cfg.Source,
		SamplingRate: cfg.SamplingRate,
	})
	if err != nil {
		discard(ctx, metrics.Shutdown, spanReporter.Shutdown)
		return nil, wferrors.NewUpstreamConstructionError("failed to create tracer", err)
	}

	h := &Handle{
		sender:  s,
		tags:    tags,
		metrics: metrics,
		tracer:  tracer,
	}

	if err := reg.Register(RegistryKey, h); err != nil {
		discard(ctx, h.Shutdown)
		return nil, err
	}

	d := s.Descriptor()
	logger.Infow("wavefront telemetry configured",
		"metrics_endpoint", d.MetricsEndpoint(),
		"distribution_endpoint", d.DistributionEndpoint(),
		"tracing_endpoint", d.TracingEndpoint(),
		"protocol", d.Protocol,
		"application", tags.Application,
		"service", tags.Service,
		"source", cfg.Source,
		"reporting_interval", cfg.ReportingInterval(),
		"flush_interval", cfg.FlushInterval())

	return h, nil
}

// discard runs cleanup functions for a partially built pipeline, logging failures.
func discard(ctx context.Context, fns ...func(context.Context) error) {
	for _, fn := range fns {
		if err := fn(ctx); err != nil {
			logger.Debugw("cleanup after failed telemetry configuration", "error", err)
		}
	}
}

// FromRegistry returns the handle published by Configure.
func FromRegistry(reg *services.Registry) (*Handle, error) {
	if reg == nil {
		return nil, wferrors.NewInvalidArgumentError("service registry is required", nil)
	}
	return services.Get[*Handle](reg, RegistryKey)
}

// MiddlewareFromRegistry returns the HTTP middleware of the published handle.
func MiddlewareFromRegistry(reg *services.Registry) (Middleware, error) {
	h, err := FromRegistry(reg)
	if err != nil {
		return nil, err
	}
	return h.Middleware()
}

// Tags returns the application identity shared by the reporter and tracer.
func (h *Handle) Tags() application.Tags {
	return h.tags
}

// Sender returns the proxy sender.
func (h *Handle) Sender() *sender.Sender {
	return h.sender
}

// MetricsReporter returns the metrics reporter.
func (h *Handle) MetricsReporter() *reporting.MetricsReporter {
	return h.metrics
}

// Tracer returns the tracer.
func (h *Handle) Tracer() *tracing.Tracer {
	return h.tracer
}

// PrometheusHandler returns the scrape handler, or nil when the scrape
// endpoint is disabled.
func (h *Handle) PrometheusHandler() http.Handler {
	return h.metrics.PrometheusHandler()
}

// Middleware returns HTTP middleware recording spans and request metrics
// through this handle.
func (h *Handle) Middleware() (Middleware, error) {
	return NewHTTPMiddleware(h.tracer.TracerProvider(), h.metrics.MeterProvider(), h.tags)
}

// Flush pushes buffered spans and metrics to the proxy.
func (h *Handle) Flush(ctx context.Context) error {
	return errors.Join(h.tracer.Flush(ctx), h.metrics.Flush(ctx))
}

// Shutdown flushes and releases the tracer and the metrics reporter. The
// tracer goes first so spans ending during shutdown still reach the proxy.
func (h *Handle) Shutdown(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
	}

	var errs []error
	if err := h.tracer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
	}
	if err := h.metrics.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("metrics reporter shutdown: %w", err))
	}
	return errors.Join(errs...)
}
