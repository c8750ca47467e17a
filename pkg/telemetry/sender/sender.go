// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package sender builds the client side of the proxy connection: one OTLP
// exporter per proxy port (metrics, distributions, spans).
package sender

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/stacklok/wftel/pkg/config"
	wferrors "github.com/stacklok/wftel/pkg/errors"
)

// Descriptor identifies the proxy endpoints and flush cadence.
// It is a value type and is never mutated after construction.
type Descriptor struct {
	Hostname         string
	MetricsPort      int
	DistributionPort int
	TracingPort      int
	FlushInterval    time.Duration
	Protocol         string
	TLS              bool
	Headers          map[string]string
}

// DescriptorFromConfig derives a Descriptor from a defaulted ProxyConfig.
func DescriptorFromConfig(cfg config.ProxyConfig) Descriptor {
	return Descriptor{
		Hostname:         cfg.Hostname,
		MetricsPort:      cfg.Port,
		DistributionPort: cfg.DistributionPort,
		TracingPort:      cfg.TracingPort,
		FlushInterval:    cfg.FlushInterval(),
		Protocol:         cfg.Protocol,
		TLS:              cfg.TLS,
		Headers:          cfg.Headers,
	}
}

// MetricsEndpoint returns host:port for metrics.
func (d Descriptor) MetricsEndpoint() string {
	return net.JoinHostPort(d.Hostname, strconv.Itoa(d.MetricsPort))
}

// DistributionEndpoint returns host:port for histogram distributions.
func (d Descriptor) DistributionEndpoint() string {
	return net.JoinHostPort(d.Hostname, strconv.Itoa(d.DistributionPort))
}

// TracingEndpoint returns host:port for spans.
func (d Descriptor) TracingEndpoint() string {
	return net.JoinHostPort(d.Hostname, strconv.Itoa(d.TracingPort))
}

// Sender holds the exporters bound to a Descriptor. Exporters connect
// lazily, so building a Sender performs no network I/O.
type Sender struct {
	descriptor         Descriptor
	metricExporter     sdkmetric.Exporter
	distributionExport sdkmetric.Exporter
	spanExporter       sdktrace.SpanExporter
}

// New creates the exporters for every proxy port.
func New(ctx context.Context, d Descriptor) (*Sender, error) {
	if d.Hostname == "" {
		return nil, wferrors.NewMissingFieldError("hostname")
	}

	metricExporter, err := createMetricExporter(ctx, d, d.MetricsEndpoint())
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter for %s: %w", d.MetricsEndpoint(), err)
	}

	distributionExporter, err := createMetricExporter(ctx, d, d.DistributionEndpoint())
	if err != nil {
		_ = metricExporter.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create distribution exporter for %s: %w", d.DistributionEndpoint(), err)
	}

	spanExporter, err := createSpanExporter(ctx, d)
	if err != nil {
		_ = metricExporter.Shutdown(ctx)
		_ = distributionExporter.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create span exporter for %s: %w", d.TracingEndpoint(), err)
	}

	return &Sender{
		descriptor:         d,
		metricExporter:     metricExporter,
		distributionExport: distributionExporter,
		spanExporter:       spanExporter,
	}, nil
}

// NewWithExporters builds a Sender around existing exporters. Used by tests
// and by callers that bring their own transport.
func NewWithExporters(
	d Descriptor,
	metrics, distributions sdkmetric.Exporter,
	spans sdktrace.SpanExporter,
) *Sender {
	return &Sender{
		descriptor:         d,
		metricExporter:     metrics,
		distributionExport: distributions,
		spanExporter:       spans,
	}
}

// Descriptor returns the endpoint description this sender was built from.
func (s *Sender) Descriptor() Descriptor {
	return s.descriptor
}

// MetricExporter returns the exporter bound to the metrics port.
func (s *Sender) MetricExporter() sdkmetric.Exporter {
	return s.metricExporter
}

// DistributionExporter returns the exporter bound to the distribution port.
func (s *Sender) DistributionExporter() sdkmetric.Exporter {
	return s.distributionExport
}

// SpanExporter returns the exporter bound to the tracing port.
func (s *Sender) SpanExporter() sdktrace.SpanExporter {
	return s.spanExporter
}

// Shutdown releases all exporters. Once a reporter has been built on the
// sender it owns the exporters and shuts them down itself, so Shutdown is only
// for senders that never got that far.
func (s *Sender) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.metricExporter.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("metric exporter: %w", err))
	}
	if err := s.distributionExport.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("distribution exporter: %w", err))
	}
	if err := s.spanExporter.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("span exporter: %w", err))
	}
	return errors.Join(errs...)
}

func createMetricExporter(ctx context.Context, d Descriptor, endpoint string) (sdkmetric.Exporter, error) {
	if d.Protocol == config.ProtocolGRPC {
		opts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(endpoint),
		}
		if len(d.Headers) > 0 {
			opts = append(opts, otlpmetricgrpc.WithHeaders(d.Headers))
		}
		if !d.TLS {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		return otlpmetricgrpc.New(ctx, opts...)
	}

	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(endpoint),
	}
	if len(d.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(d.Headers))
	}
	if !d.TLS {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	return otlpmetrichttp.New(ctx, opts...)
}

func createSpanExporter(ctx context.Context, d Descriptor) (sdktrace.SpanExporter, error) {
	if d.Protocol == config.ProtocolGRPC {
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(d.TracingEndpoint()),
		}
		if len(d.Headers) > 0 {
			opts = append(opts, otlptracegrpc.WithHeaders(d.Headers))
		}
		if !d.TLS {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	}

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(d.TracingEndpoint()),
	}
	if len(d.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(d.Headers))
	}
	if !d.TLS {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return otlptracehttp.New(ctx, opts...)
}
