// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package tracing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	wferrors "github.com/stacklok/wftel/pkg/errors"
	"github.com/stacklok/wftel/pkg/telemetry/application"
	"github.com/stacklok/wftel/pkg/telemetry/sender"
)

func newTestSender(spans *tracetest.InMemoryExporter) *sender.Sender {
	d := sender.Descriptor{
		Hostname:      "proxy.local",
		TracingPort:   30000,
		FlushInterval: 5 * time.Second,
	}
	return sender.NewWithExporters(d, nil, nil, spans)
}

func testTags() application.Tags {
	return application.Tags{Application: "orders", Service: "web", Cluster: "us-east", Shard: "1"}
}

func TestNewSpanReporter(t *testing.T) {
	t.Parallel()

	_, err := NewSpanReporter(nil)
	require.Error(t, err)
	assert.True(t, wferrors.IsInvalidArgument(err))

	s := newTestSender(tracetest.NewInMemoryExporter())
	r, err := NewSpanReporter(s)
	require.NoError(t, err)
	assert.Same(t, s, r.Sender())
}

func TestNewTracerValidation(t *testing.T) {
	t.Parallel()

	reporter, err := NewSpanReporter(newTestSender(tracetest.NewInMemoryExporter()))
	require.NoError(t, err)

	tests := []struct {
		name     string
		reporter *SpanReporter
		tags     application.Tags
		config   Config
		check    func(error) bool
	}{
		{"nil reporter", nil, testTags(), Config{SamplingRate: 1}, wferrors.IsInvalidArgument},
		{"missing application", reporter, application.Tags{Service: "web"}, Config{SamplingRate: 1}, wferrors.IsMissingField},
		{"sampling rate out of range", reporter, testTags(), Config{SamplingRate: 2}, wferrors.IsInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tr, err := NewTracer(context.Background(), tt.reporter, tt.tags, tt.config)
			require.Error(t, err)
			assert.Nil(t, tr)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}
}

func TestTracerExportsTaggedSpans(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	spans := tracetest.NewInMemoryExporter()
	reporter, err := NewSpanReporter(newTestSender(spans))
	require.NoError(t, err)

	tr, err := NewTracer(ctx, reporter, testTags(), Config{Source: "host-42", SamplingRate: 1.0})
	require.NoError(t, err)

	assert.Equal(t, testTags(), tr.Tags())
	assert.Equal(t, "host-42", tr.Source())
	assert.Same(t, reporter, tr.SpanReporter())
	assert.NotNil(t, tr.TracerProvider())

	_, span := tr.Start(ctx, "GET /orders")
	span.End()
	_, child := tr.Tracer("db").Start(ctx, "SELECT orders")
	child.End()

	require.NoError(t, tr.Flush(ctx))

	got := spans.GetSpans()
	require.Len(t, got, 2)
	assert.Equal(t, "GET /orders", got[0].Name)

	set := got[0].Resource.Set()
	for key, want := range map[string]string{
		"application": "orders",
		"service":     "web",
		"cluster":     "us-east",
		"shard":       "1",
		"source":      "host-42",
	} {
		v, ok := set.Value(attribute.Key(key))
		require.True(t, ok, "missing %s", key)
		assert.Equal(t, want, v.AsString(), key)
	}

	require.NoError(t, tr.Shutdown(ctx))
}

func TestTracerSamplingRateZeroDropsRootSpans(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	spans := tracetest.NewInMemoryExporter()
	reporter, err := NewSpanReporter(newTestSender(spans))
	require.NoError(t, err)

	tr, err := NewTracer(ctx, reporter, testTags(), Config{SamplingRate: 0})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Shutdown(ctx) })

	_, span := tr.Start(ctx, "dropped")
	span.End()
	require.NoError(t, tr.Flush(ctx))

	assert.Empty(t, spans.GetSpans())
}
