package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	wferrors "github.com/stacklok/wftel/pkg/errors"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		application string
		service     string
		opts        []Option
		want        Tags
		wantErr     bool
	}{
		{
			name:        "identity only",
			application: "billing",
			service:     "api",
			want:        Tags{Application: "billing", Service: "api"},
		},
		{
			name:        "with cluster shard and custom tags",
			application: "orders",
			service:     "web",
			opts: []Option{
				WithCluster("us-east"),
				WithShard("1"),
				WithCustomTags(map[string]string{"team": "payments"}),
			},
			want: Tags{
				Application: "orders",
				Service:     "web",
				Cluster:     "us-east",
				Shard:       "1",
				Custom:      map[string]string{"team": "payments"},
			},
		},
		{
			name:        "empty custom tags are ignored",
			application: "orders",
			service:     "web",
			opts:        []Option{WithCustomTags(nil)},
			want:        Tags{Application: "orders", Service: "web"},
		},
		{name: "missing application", service: "api", wantErr: true},
		{name: "missing service", application: "billing", wantErr: true},
		{name: "blank application", application: "  ", service: "api", wantErr: true},
		{name: "blank service", application: "billing", service: "\t", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := New(tt.application, tt.service, tt.opts...)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, wferrors.IsMissingField(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAttributes(t *testing.T) {
	t.Parallel()

	tags := Tags{
		Application: "orders",
		Service:     "web",
		Shard:       "1",
		Custom:      map[string]string{"zone": "b", "team": "payments"},
	}

	assert.Equal(t, []attribute.KeyValue{
		attribute.String("team", "payments"),
		attribute.String("zone", "b"),
		ApplicationKey.String("orders"),
		ServiceKey.String("web"),
		ClusterKey.String(None),
		ShardKey.String("1"),
	}, tags.Attributes())
}

func TestResource(t *testing.T) {
	t.Parallel()

	tags := Tags{
		Application: "orders",
		Service:     "web",
		Cluster:     "us-east",
		Shard:       "1",
		// identity tags win over custom tags with the same key
		Custom: map[string]string{"application": "spoofed"},
	}

	res, err := tags.Resource(context.Background(), "host-42")
	require.NoError(t, err)

	set := res.Set()
	get := func(key string) string {
		v, ok := set.Value(attribute.Key(key))
		require.True(t, ok, "missing attribute %s", key)
		return v.AsString()
	}

	assert.Equal(t, "orders", get("application"))
	assert.Equal(t, "web", get("service"))
	assert.Equal(t, "us-east", get("cluster"))
	assert.Equal(t, "1", get("shard"))
	assert.Equal(t, "host-42", get("source"))
	assert.Equal(t, "host-42", get("host.name"))
	assert.Equal(t, "web", get("service.name"))
	assert.NotEmpty(t, get("service.instance.id"))
}

func TestResourceWithoutSource(t *testing.T) {
	t.Parallel()

	res, err := Tags{Application: "billing", Service: "api"}.Resource(context.Background(), "")
	require.NoError(t, err)

	_, ok := res.Set().Value(SourceKey)
	assert.False(t, ok)
}
