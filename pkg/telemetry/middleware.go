// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"slices"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/wftel/pkg/telemetry/application"
)

const (
	// instrumentationName is the name of this instrumentation package
	instrumentationName = "github.com/stacklok/wftel/pkg/telemetry"

	// Metric names. The Prometheus exporter adds unit and _total suffixes.
	requestCountMetric    = "http.server.request.count"
	requestDurationMetric = "http.server.request.duration"
	activeRequestsMetric  = "http.server.active_requests"
)

// RequestDurationBuckets are the histogram boundaries, in seconds, for the
// request duration distribution.
var RequestDurationBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 0.75, 1, 2.5, 5, 7.5, 10,
}

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// RouteFunc resolves the route template of a request after it was served,
// or "" when none is known.
type RouteFunc func(*http.Request) string

// MiddlewareOption configures the HTTP middleware.
type MiddlewareOption func(*HTTPMiddleware)

// WithRouteFunc names spans and tags metrics with the route template
// instead of the raw path.
func WithRouteFunc(fn RouteFunc) MiddlewareOption {
	return func(m *HTTPMiddleware) {
		m.routeFunc = fn
	}
}

// WithPropagator overrides the W3C trace-context and baggage propagator.
func WithPropagator(p propagation.TextMapPropagator) MiddlewareOption {
	return func(m *HTTPMiddleware) {
		m.propagator = p
	}
}

// HTTPMiddleware provides OpenTelemetry instrumentation for HTTP requests.
type HTTPMiddleware struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	routeFunc  RouteFunc
	identity   []attribute.KeyValue

	requestCounter  metric.Int64Counter
	requestDuration metric.Float64Histogram
	activeRequests  metric.Int64UpDownCounter
}

// NewHTTPMiddleware creates the request instrumentation middleware. Every
// span and data point carries the application identity in tags.
func NewHTTPMiddleware(
	tracerProvider trace.TracerProvider,
	meterProvider metric.MeterProvider,
	tags application.Tags,
	opts ...MiddlewareOption,
) (Middleware, error) {
	meter := meterProvider.Meter(instrumentationName)

	requestCounter, err := meter.Int64Counter(
		requestCountMetric,
		metric.WithDescription("Total number of HTTP requests served"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request counter: %w", err)
	}

	requestDuration, err := meter.Float64Histogram(
		requestDurationMetric,
		metric.WithDescription("Duration of HTTP requests"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(RequestDurationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request duration histogram: %w", err)
	}

	activeRequests, err := meter.Int64UpDownCounter(
		activeRequestsMetric,
		metric.WithDescription("Number of HTTP requests in flight"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active requests counter: %w", err)
	}

	m := &HTTPMiddleware{
		tracer: tracerProvider.Tracer(instrumentationName),
		propagator: propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
		identity:        tags.Attributes(),
		requestCounter:  requestCounter,
		requestDuration: requestDuration,
		activeRequests:  activeRequests,
	}
	for _, opt := range opts {
		opt(m)
	}

	return m.Handler, nil
}

// Handler wraps next with a server span and request metrics.
func (m *HTTPMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := m.propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		activeAttrs := metric.WithAttributes(m.attributes(
			attribute.String("http.request.method", r.Method),
		)...)
		m.activeRequests.Add(ctx, 1, activeAttrs)
		defer m.activeRequests.Add(ctx, -1, activeAttrs)

		ctx, span := m.tracer.Start(ctx, fmt.Sprintf("%s %s", r.Method, r.URL.Path),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(m.identity...),
		)
		defer span.End()

		m.addHTTPAttributes(span, r)

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		startTime := time.Now()
		req := r.WithContext(ctx)
		next.ServeHTTP(rw, req)
		duration := time.Since(startTime)

		route := m.route(req)
		if route != "" {
			span.SetName(fmt.Sprintf("%s %s", r.Method, route))
			span.SetAttributes(attribute.String("http.route", route))
		}

		finalizeSpan(span, rw)
		m.recordMetrics(ctx, r, rw, route, duration)
	})
}

// attributes returns the identity attributes followed by extra.
func (m *HTTPMiddleware) attributes(extra ...attribute.KeyValue) []attribute.KeyValue {
	return slices.Concat(m.identity, extra)
}

func (m *HTTPMiddleware) route(r *http.Request) string {
	if m.routeFunc == nil {
		return ""
	}
	return m.routeFunc(r)
}

// addHTTPAttributes adds standard HTTP attributes to the span.
func (*HTTPMiddleware) addHTTPAttributes(span trace.Span, r *http.Request) {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	span.SetAttributes(
		attribute.String("http.request.method", r.Method),
		attribute.String("url.path", r.URL.Path),
		attribute.String("url.scheme", scheme),
		attribute.String("server.address", r.Host),
		attribute.String("user_agent.original", r.UserAgent()),
	)
	if r.URL.RawQuery != "" {
		span.SetAttributes(attribute.String("url.query", r.URL.RawQuery))
	}
	if addr, port := parseRemoteAddr(r.RemoteAddr); addr != "" {
		span.SetAttributes(attribute.String("client.address", addr))
		if port > 0 {
			span.SetAttributes(attribute.Int("client.port", port))
		}
	}
}

// finalizeSpan records the response on the span and sets its status.
// Only 5xx responses are server errors.
func finalizeSpan(span trace.Span, rw *responseWriter) {
	span.SetAttributes(
		attribute.Int("http.response.status_code", rw.statusCode),
		attribute.Int64("http.response.body.size", rw.bytesWritten),
	)

	if rw.statusCode >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", rw.statusCode))
		span.SetAttributes(attribute.String("error.type", strconv.Itoa(rw.statusCode)))
	}
}

// recordMetrics records the request count and the duration distribution.
func (m *HTTPMiddleware) recordMetrics(
	ctx context.Context,
	r *http.Request,
	rw *responseWriter,
	route string,
	duration time.Duration,
) {
	if route == "" {
		route = "unknown"
	}
	attrs := metric.WithAttributes(m.attributes(
		attribute.String("http.request.method", r.Method),
		attribute.String("http.route", route),
		attribute.Int("http.response.status_code", rw.statusCode),
	)...)

	m.requestCounter.Add(ctx, 1, attrs)
	m.requestDuration.Record(ctx, duration.Seconds(), attrs)
}

// parseRemoteAddr splits an HTTP RemoteAddr into address and port components.
func parseRemoteAddr(remoteAddr string) (string, int) {
	if remoteAddr == "" {
		return "", 0
	}

	host, portStr, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr, 0
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 0
	}

	return host, port
}

// responseWriter records the status code and body size of a response.
type responseWriter struct {
	http.ResponseWriter
	statusCode    int
	bytesWritten  int64
	headerWritten bool
}

// WriteHeader captures the status code. Duplicate calls are ignored.
func (rw *responseWriter) WriteHeader(statusCode int) {
	if rw.headerWritten {
		return
	}
	rw.headerWritten = true
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

// Write captures the number of bytes written. A Write before WriteHeader
// fixes the status at 200.
func (rw *responseWriter) Write(data []byte) (int, error) {
	if !rw.headerWritten {
		rw.headerWritten = true
		rw.statusCode = http.StatusOK
	}

	n, err := rw.ResponseWriter.Write(data)
	rw.bytesWritten += int64(n)
	return n, err
}

// Flush implements http.Flusher if the underlying ResponseWriter supports it.
func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
