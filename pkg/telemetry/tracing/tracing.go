// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package tracing builds the span reporter and the tracer handed to
// request-handling code.
package tracing

import (
	"context"
	"fmt"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	wferrors "github.com/stacklok/wftel/pkg/errors"
	"github.com/stacklok/wftel/pkg/logger"
	"github.com/stacklok/wftel/pkg/telemetry/application"
	"github.com/stacklok/wftel/pkg/telemetry/sender"
)

const instrumentationName = "github.com/stacklok/wftel/pkg/telemetry/tracing"

// SpanReporter batches finished spans and sends them through the sender's
// tracing port every flush interval.
type SpanReporter struct {
	sender    *sender.Sender
	processor sdktrace.SpanProcessor
}

// NewSpanReporter creates a span reporter bound to s.
func NewSpanReporter(s *sender.Sender) (*SpanReporter, error) {
	if s == nil {
		return nil, wferrors.NewInvalidArgumentError("span reporter requires a sender", nil)
	}

	var opts []sdktrace.BatchSpanProcessorOption
	if flush := s.Descriptor().FlushInterval; flush > 0 {
		opts = append(opts, sdktrace.WithBatchTimeout(flush))
	}

	return &SpanReporter{
		sender:    s,
		processor: sdktrace.NewBatchSpanProcessor(s.SpanExporter(), opts...),
	}, nil
}

// Sender returns the sender spans are pushed through.
func (r *SpanReporter) Sender() *sender.Sender {
	return r.sender
}

// Shutdown flushes pending spans and shuts the span exporter down. Only needed
// when no Tracer was built over the reporter; Tracer.Shutdown covers it otherwise.
func (r *SpanReporter) Shutdown(ctx context.Context) error {
	return r.processor.Shutdown(ctx)
}

// Config holds tracer settings.
type Config struct {
	// Source names the reporting host.
	Source string
	// SamplingRate is the ratio of root spans sampled (0.0-1.0).
	// Child spans follow their parent's decision.
	SamplingRate float64
}

// Tracer is the long-lived tracing entry point for request-handling code.
type Tracer struct {
	reporter *SpanReporter
	tags     application.Tags
	source   string
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewTracer creates a tracer that reports through reporter and tags spans with tags.
func NewTracer(ctx context.Context, reporter *SpanReporter, tags application.Tags, config Config) (*Tracer, error) {
	if reporter == nil {
		return nil, wferrors.NewInvalidArgumentError("tracer requires a span reporter", nil)
	}
	if err := tags.Validate(); err != nil {
		return nil, err
	}
	if config.SamplingRate < 0.0 || config.SamplingRate > 1.0 {
		return nil, wferrors.NewInvalidArgumentError(
			fmt.Sprintf("sampling rate must be between 0.0 and 1.0, got %v", config.SamplingRate), nil)
	}

	res, err := tags.Resource(ctx, config.Source)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(reporter.processor),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(config.SamplingRate))),
	)

	logger.Debugw("tracer created",
		"tracing_endpoint", reporter.sender.Descriptor().TracingEndpoint(),
		"flush_interval", reporter.sender.Descriptor().FlushInterval,
		"sampling_rate", config.SamplingRate)

	return &Tracer{
		reporter: reporter,
		tags:     tags,
		source:   config.Source,
		provider: provider,
		tracer:   provider.Tracer(instrumentationName),
	}, nil
}

// Start starts a span with the default instrumentation scope.
func (t *Tracer) Start(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, spanName, opts...)
}

// Tracer returns a named tracer from the underlying provider.
func (t *Tracer) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	return t.provider.Tracer(name, opts...)
}

// TracerProvider returns the provider for libraries that take one.
func (t *Tracer) TracerProvider() trace.TracerProvider {
	return t.provider
}

// Tags returns the application identity attached to every span.
func (t *Tracer) Tags() application.Tags {
	return t.tags
}

// Source returns the reporting host name.
func (t *Tracer) Source() string {
	return t.source
}

// SpanReporter returns the reporter spans are handed to.
func (t *Tracer) SpanReporter() *SpanReporter {
	return t.reporter
}

// Flush exports all finished spans immediately.
func (t *Tracer) Flush(ctx context.Context) error {
	return t.provider.ForceFlush(ctx)
}

// Shutdown flushes and stops the span reporter and its exporter.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if err := t.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down tracer: %w", err)
	}
	return nil
}
