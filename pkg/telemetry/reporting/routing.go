package reporting

import (
	"context"
	"errors"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// routingExporter sends histogram data to the distribution port and
// everything else to the metrics port.
type routingExporter struct {
	metrics       sdkmetric.Exporter
	distributions sdkmetric.Exporter
}

var _ sdkmetric.Exporter = (*routingExporter)(nil)

func newRoutingExporter(metrics, distributions sdkmetric.Exporter) *routingExporter {
	return &routingExporter{metrics: metrics, distributions: distributions}
}

func (e *routingExporter) exporterFor(kind sdkmetric.InstrumentKind) sdkmetric.Exporter {
	if kind == sdkmetric.InstrumentKindHistogram {
		return e.distributions
	}
	return e.metrics
}

func (e *routingExporter) Temporality(kind sdkmetric.InstrumentKind) metricdata.Temporality {
	return e.exporterFor(kind).Temporality(kind)
}

func (e *routingExporter) Aggregation(kind sdkmetric.InstrumentKind) sdkmetric.Aggregation {
	return e.exporterFor(kind).Aggregation(kind)
}

// Export splits rm and forwards each non-empty half to its exporter.
func (e *routingExporter) Export(ctx context.Context, rm *metricdata.ResourceMetrics) error {
	metrics, distributions := splitResourceMetrics(rm)

	var errs []error
	if len(metrics.ScopeMetrics) > 0 {
		if err := e.metrics.Export(ctx, metrics); err != nil {
			errs = append(errs, err)
		}
	}
	if len(distributions.ScopeMetrics) > 0 {
		if err := e.distributions.Export(ctx, distributions); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *routingExporter) ForceFlush(ctx context.Context) error {
	return errors.Join(e.metrics.ForceFlush(ctx), e.distributions.ForceFlush(ctx))
}

func (e *routingExporter) Shutdown(ctx context.Context) error {
	return errors.Join(e.metrics.Shutdown(ctx), e.distributions.Shutdown(ctx))
}

func splitResourceMetrics(rm *metricdata.ResourceMetrics) (metrics, distributions *metricdata.ResourceMetrics) {
	metrics = &metricdata.ResourceMetrics{Resource: rm.Resource}
	distributions = &metricdata.ResourceMetrics{Resource: rm.Resource}

	for _, sm := range rm.ScopeMetrics {
		var plain, dist []metricdata.Metrics
		for _, m := range sm.Metrics {
			if isDistribution(m.Data) {
				dist = append(dist, m)
			} else {
				plain = append(plain, m)
			}
		}
		if len(plain) > 0 {
			metrics.ScopeMetrics = append(metrics.ScopeMetrics, metricdata.ScopeMetrics{Scope: sm.Scope, Metrics: plain})
		}
		if len(dist) > 0 {
			distributions.ScopeMetrics = append(distributions.ScopeMetrics, metricdata.ScopeMetrics{Scope: sm.Scope, Metrics: dist})
		}
	}
	return metrics, distributions
}

func isDistribution(data metricdata.Aggregation) bool {
	switch data.(type) {
	case metricdata.Histogram[int64], metricdata.Histogram[float64],
		metricdata.ExponentialHistogram[int64], metricdata.ExponentialHistogram[float64]:
		return true
	default:
		return false
	}
}
