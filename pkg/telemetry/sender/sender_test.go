// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package sender

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/wftel/pkg/config"
	wferrors "github.com/stacklok/wftel/pkg/errors"
)

func TestDescriptorFromConfig(t *testing.T) {
	t.Parallel()

	cfg := config.ProxyConfig{
		Hostname:             "proxy.local",
		Application:          "billing",
		Service:              "api",
		TracingPort:          30000,
		FlushIntervalSeconds: 5,
		Headers:              map[string]string{"x-token": "secret"},
	}.WithDefaults()

	d := DescriptorFromConfig(cfg)

	assert.Equal(t, "proxy.local", d.Hostname)
	assert.Equal(t, 2878, d.MetricsPort)
	assert.Equal(t, 2878, d.DistributionPort)
	assert.Equal(t, 30000, d.TracingPort)
	// flush interval comes from flushIntervalSeconds, never from the tracing port
	assert.Equal(t, 5*time.Second, d.FlushInterval)
	assert.Equal(t, config.ProtocolHTTPProtobuf, d.Protocol)
	assert.Equal(t, map[string]string{"x-token": "secret"}, d.Headers)
}

func TestDescriptorEndpoints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name             string
		descriptor       Descriptor
		wantMetrics      string
		wantDistribution string
		wantTracing      string
	}{
		{
			name:             "hostname",
			descriptor:       Descriptor{Hostname: "proxy.local", MetricsPort: 2878, DistributionPort: 40000, TracingPort: 30000},
			wantMetrics:      "proxy.local:2878",
			wantDistribution: "proxy.local:40000",
			wantTracing:      "proxy.local:30000",
		},
		{
			name:             "ipv6",
			descriptor:       Descriptor{Hostname: "::1", MetricsPort: 2878, DistributionPort: 2878, TracingPort: 30000},
			wantMetrics:      "[::1]:2878",
			wantDistribution: "[::1]:2878",
			wantTracing:      "[::1]:30000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantMetrics, tt.descriptor.MetricsEndpoint())
			assert.Equal(t, tt.wantDistribution, tt.descriptor.DistributionEndpoint())
			assert.Equal(t, tt.wantTracing, tt.descriptor.TracingEndpoint())
		})
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		descriptor Descriptor
		wantErr    bool
	}{
		{
			name: "http protobuf",
			descriptor: Descriptor{
				Hostname: "localhost", MetricsPort: 2878, DistributionPort: 2878, TracingPort: 30000,
				FlushInterval: 2 * time.Second, Protocol: config.ProtocolHTTPProtobuf,
			},
		},
		{
			name: "http protobuf with tls and headers",
			descriptor: Descriptor{
				Hostname: "proxy.example.com", MetricsPort: 443, DistributionPort: 443, TracingPort: 443,
				Protocol: config.ProtocolHTTPProtobuf, TLS: true,
				Headers: map[string]string{"Authorization": "Bearer token"},
			},
		},
		{
			name: "grpc",
			descriptor: Descriptor{
				Hostname: "localhost", MetricsPort: 4317, DistributionPort: 4317, TracingPort: 4317,
				Protocol: config.ProtocolGRPC, Headers: map[string]string{"x-env": "test"},
			},
		},
		{
			name:       "missing hostname",
			descriptor: Descriptor{MetricsPort: 2878},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			s, err := New(ctx, tt.descriptor)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, wferrors.IsMissingField(err))
				assert.Nil(t, s)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, s)
			assert.Equal(t, tt.descriptor, s.Descriptor())
			assert.NotNil(t, s.MetricExporter())
			assert.NotNil(t, s.DistributionExporter())
			assert.NotNil(t, s.SpanExporter())
			assert.NoError(t, s.Shutdown(ctx))
		})
	}
}
