// Package application describes the identity of the emitting process: the
// application, service, cluster and shard tags attached to every metric and span.
package application

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	wferrors "github.com/stacklok/wftel/pkg/errors"
	"github.com/stacklok/wftel/pkg/versions"
)

// instanceID identifies this process in service.instance.id.
var instanceID = uuid.NewString()

// None is emitted for an unset cluster or shard so the dimension is always present.
const None = "none"

// Attribute keys for the application identity.
const (
	ApplicationKey = attribute.Key("application")
	ServiceKey     = attribute.Key("service")
	ClusterKey     = attribute.Key("cluster")
	ShardKey       = attribute.Key("shard")
	SourceKey      = attribute.Key("source")
)

// Tags is the application identity. Application and Service are mandatory;
// Cluster and Shard keep whatever the caller supplied, including "".
type Tags struct {
	Application string
	Service     string
	Cluster     string
	Shard       string
	Custom      map[string]string
}

// Option customises Tags.
type Option func(*Tags)

// WithCluster sets the cluster dimension.
func WithCluster(cluster string) Option {
	return func(t *Tags) {
		t.Cluster = cluster
	}
}

// WithShard sets the shard dimension.
func WithShard(shard string) Option {
	return func(t *Tags) {
		t.Shard = shard
	}
}

// WithCustomTags adds extra tags. They never override the identity tags.
func WithCustomTags(custom map[string]string) Option {
	return func(t *Tags) {
		if len(custom) == 0 {
			return
		}
		if t.Custom == nil {
			t.Custom = make(map[string]string, len(custom))
		}
		maps.Copy(t.Custom, custom)
	}
}

// New builds and validates Tags.
func New(applicationName, serviceName string, opts ...Option) (Tags, error) {
	t := Tags{
		Application: applicationName,
		Service:     serviceName,
	}
	for _, opt := range opts {
		opt(&t)
	}
	if err := t.Validate(); err != nil {
		return Tags{}, err
	}
	return t, nil
}

// Validate checks the mandatory dimensions.
func (t Tags) Validate() error {
	if strings.TrimSpace(t.Application) == "" {
		return wferrors.NewMissingFieldError("application")
	}
	if strings.TrimSpace(t.Service) == "" {
		return wferrors.NewMissingFieldError("service")
	}
	return nil
}

// Attributes returns the tags as OpenTelemetry attributes. Custom tags come
// first in key order, followed by the identity tags.
func (t Tags) Attributes() []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(t.Custom)+4)
	for _, k := range slices.Sorted(maps.Keys(t.Custom)) {
		attrs = append(attrs, attribute.String(k, t.Custom[k]))
	}
	return append(attrs,
		ApplicationKey.String(t.Application),
		ServiceKey.String(t.Service),
		ClusterKey.String(orNone(t.Cluster)),
		ShardKey.String(orNone(t.Shard)),
	)
}

// Resource builds the resource shared by the metrics reporter and tracer.
func (t Tags) Resource(ctx context.Context, source string) (*resource.Resource, error) {
	attrs := t.Attributes()
	attrs = append(attrs,
		semconv.ServiceName(t.Service),
		semconv.ServiceVersion(versions.GetVersionInfo().Version),
		semconv.ServiceInstanceID(instanceID),
	)
	if source != "" {
		attrs = append(attrs, SourceKey.String(source), semconv.HostName(source))
	}

	res, err := resource.New(ctx,
		resource.WithTelemetrySDK(),
		resource.WithAttributes(attrs...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource for application '%s' service '%s': %w",
			t.Application, t.Service, err)
	}
	return res, nil
}

func orNone(v string) string {
	if v == "" {
		return None
	}
	return v
}
