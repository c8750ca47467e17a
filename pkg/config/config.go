// Package config contains the definition of the wavefront-proxy configuration
// section and the logic required to load, default and validate it.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SectionKey is the name of the configuration section bound to ProxyConfig.
const SectionKey = "wavefront-proxy"

// Default values applied by WithDefaults.
const (
	DefaultMetricsPort              = 2878
	DefaultDistributionPort         = 2878
	DefaultTracingPort              = 30000
	DefaultReportingIntervalSeconds = 30
	DefaultFlushIntervalSeconds     = 2
	DefaultSamplingRate             = 1.0
	DefaultProtocol                 = ProtocolHTTPProtobuf
)

// Protocols understood by the proxy sender.
const (
	ProtocolHTTPProtobuf = "http/protobuf"
	ProtocolGRPC         = "grpc"
)

// hostnameFunc resolves the default source. Replaced in tests.
var hostnameFunc = os.Hostname

// ProxyConfig is the flat configuration record for the telemetry pipeline.
// Zero-valued numeric fields are treated as unset and receive defaults.
type ProxyConfig struct {
	// Hostname of the proxy. Required.
	Hostname string `yaml:"hostname" mapstructure:"hostname"`
	// Port receives metrics.
	Port int `yaml:"port" mapstructure:"port"`
	// DistributionPort receives histogram distributions.
	DistributionPort int `yaml:"distributionPort" mapstructure:"distributionPort"`
	// TracingPort receives spans.
	TracingPort int `yaml:"tracingPort" mapstructure:"tracingPort"`

	// Application and Service identify the emitting process. Both required.
	Application string `yaml:"application" mapstructure:"application"`
	Service     string `yaml:"service" mapstructure:"service"`
	Cluster     string `yaml:"cluster,omitempty" mapstructure:"cluster"`
	Shard       string `yaml:"shard,omitempty" mapstructure:"shard"`
	// CustomTags are extra application tags attached to every metric and span.
	CustomTags map[string]string `yaml:"customTags,omitempty" mapstructure:"customTags"`

	// Source names the reporting host. Defaults to the local hostname.
	Source string `yaml:"source,omitempty" mapstructure:"source"`

	ReportingIntervalSeconds int `yaml:"reportingIntervalSeconds" mapstructure:"reportingIntervalSeconds"`
	FlushIntervalSeconds     int `yaml:"flushIntervalSeconds" mapstructure:"flushIntervalSeconds"`

	// Protocol is "http/protobuf" or "grpc".
	Protocol string `yaml:"protocol,omitempty" mapstructure:"protocol"`
	// TLS enables transport security towards the proxy.
	TLS bool `yaml:"tls,omitempty" mapstructure:"tls"`
	// Headers are sent with every export request.
	Headers map[string]string `yaml:"headers,omitempty" mapstructure:"headers"`
	// SamplingRate is the trace sampling ratio. Zero means unset (sample everything).
	SamplingRate float64 `yaml:"samplingRate,omitempty" mapstructure:"samplingRate"`
	// PrometheusMetricsPath additionally exposes metrics for scraping.
	PrometheusMetricsPath bool `yaml:"prometheusMetricsPath,omitempty" mapstructure:"prometheusMetricsPath"`
}

// DefaultConfig returns a configuration with every optional field defaulted.
// Hostname, Application and Service are left empty.
func DefaultConfig() ProxyConfig {
	return ProxyConfig{}.WithDefaults()
}

// WithDefaults returns a copy of c with unset optional fields filled in.
// The receiver is not modified.
func (c ProxyConfig) WithDefaults() ProxyConfig {
	if c.Port == 0 {
		c.Port = DefaultMetricsPort
	}
	if c.DistributionPort == 0 {
		c.DistributionPort = DefaultDistributionPort
	}
	if c.TracingPort == 0 {
		c.TracingPort = DefaultTracingPort
	}
	if c.ReportingIntervalSeconds == 0 {
		c.ReportingIntervalSeconds = DefaultReportingIntervalSeconds
	}
	if c.FlushIntervalSeconds == 0 {
		c.FlushIntervalSeconds = DefaultFlushIntervalSeconds
	}
	if c.SamplingRate == 0 {
		c.SamplingRate = DefaultSamplingRate
	}
	if c.Protocol == "" {
		c.Protocol = DefaultProtocol
	}
	if c.Source == "" {
		if host, err := hostnameFunc(); err == nil {
			c.Source = host
		}
	}
	c.CustomTags = cloneMap(c.CustomTags)
	c.Headers = cloneMap(c.Headers)
	return c
}

// ReportingInterval returns the metrics reporting interval as a duration.
func (c ProxyConfig) ReportingInterval() time.Duration {
	return time.Duration(c.ReportingIntervalSeconds) * time.Second
}

// FlushInterval returns the sender flush interval as a duration.
func (c ProxyConfig) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalSeconds) * time.Second
}

// MarshalSection renders the configuration nested under SectionKey.
func (c ProxyConfig) MarshalSection() ([]byte, error) {
	out, err := yaml.Marshal(map[string]ProxyConfig{SectionKey: c})
	if err != nil {
		return nil, fmt.Errorf("error serializing %s section: %w", SectionKey, err)
	}
	return out, nil
}

func cloneMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
