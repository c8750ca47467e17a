package config

import (
	"fmt"
	"strings"

	wferrors "github.com/stacklok/wftel/pkg/errors"
)

const (
	minPort = 1
	maxPort = 65535
)

// Validate checks the configuration. Call it on the result of WithDefaults;
// an unset port is reported as invalid otherwise.
// Missing required fields are reported before port and interval problems.
func (c ProxyConfig) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"hostname", c.Hostname},
		{"application", c.Application},
		{"service", c.Service},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return wferrors.NewMissingFieldError(r.name)
		}
	}

	ports := []struct {
		name  string
		value int
	}{
		{"port", c.Port},
		{"distributionPort", c.DistributionPort},
		{"tracingPort", c.TracingPort},
	}
	for _, p := range ports {
		if p.value < minPort || p.value > maxPort {
			return wferrors.NewInvalidPortError(p.name, p.value)
		}
	}

	if c.ReportingIntervalSeconds <= 0 {
		return wferrors.NewInvalidArgumentError(
			fmt.Sprintf("reportingIntervalSeconds must be positive, got %d", c.ReportingIntervalSeconds), nil)
	}
	if c.FlushIntervalSeconds <= 0 {
		return wferrors.NewInvalidArgumentError(
			fmt.Sprintf("flushIntervalSeconds must be positive, got %d", c.FlushIntervalSeconds), nil)
	}
	if c.SamplingRate < 0.0 || c.SamplingRate > 1.0 {
		return wferrors.NewInvalidArgumentError(
			fmt.Sprintf("samplingRate must be between 0.0 and 1.0, got %v", c.SamplingRate), nil)
	}

	switch c.Protocol {
	case ProtocolHTTPProtobuf, ProtocolGRPC:
	default:
		return wferrors.NewInvalidArgumentError(
			fmt.Sprintf("unsupported protocol %q (valid protocols: %s, %s)", c.Protocol, ProtocolHTTPProtobuf, ProtocolGRPC), nil)
	}

	for k := range c.CustomTags {
		if k == "" {
			return wferrors.NewInvalidArgumentError("customTags contains an empty key", nil)
		}
	}
	return nil
}
