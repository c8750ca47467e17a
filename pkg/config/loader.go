package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/viper"
)

// envKeyReplacer turns "wavefront-proxy.tracingport" into WAVEFRONT_PROXY_TRACINGPORT.
var envKeyReplacer = strings.NewReplacer(".", "_", "-", "_")

// envBoundKeys are the scalar fields that can be set from the environment.
// Map-valued fields (customTags, headers) are file-only.
var envBoundKeys = []string{
	"hostname",
	"port",
	"distributionPort",
	"tracingPort",
	"application",
	"service",
	"cluster",
	"shard",
	"source",
	"reportingIntervalSeconds",
	"flushIntervalSeconds",
	"protocol",
	"tls",
	"samplingRate",
	"prometheusMetricsPath",
}

// document is the root of a configuration file; only our section is decoded.
type document struct {
	Proxy ProxyConfig `mapstructure:"wavefront-proxy"`
}

// Loader reads the wavefront-proxy section from a file and the environment.
// Environment variables take precedence over file values.
type Loader struct {
	path string
	v    *viper.Viper
}

// NewLoader creates a loader for the given file. An empty path reads the
// environment only.
func NewLoader(path string) *Loader {
	v := viper.New()
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()
	return &Loader{path: path, v: v}
}

// Load reads the configuration file (if any) and returns the raw section,
// without defaults applied.
func (l *Loader) Load() (ProxyConfig, error) {
	if l.path != "" {
		l.v.SetConfigFile(l.path)
		if err := l.v.ReadInConfig(); err != nil {
			return ProxyConfig{}, fmt.Errorf("failed to read config file %s: %w", l.path, err)
		}
	}
	return l.decode()
}

// LoadFromReader is Load for in-memory content of the given type ("yaml", "json", ...).
func (l *Loader) LoadFromReader(r io.Reader, configType string) (ProxyConfig, error) {
	l.v.SetConfigType(configType)
	if err := l.v.ReadConfig(r); err != nil {
		return ProxyConfig{}, fmt.Errorf("failed to parse %s config: %w", configType, err)
	}
	return l.decode()
}

func (l *Loader) decode() (ProxyConfig, error) {
	for _, key := range envBoundKeys {
		if err := l.v.BindEnv(SectionKey + "." + key); err != nil {
			return ProxyConfig{}, fmt.Errorf("failed to bind environment for %s: %w", key, err)
		}
	}

	var doc document
	if err := l.v.Unmarshal(&doc); err != nil {
		return ProxyConfig{}, fmt.Errorf("failed to decode %s section: %w", SectionKey, err)
	}
	return doc.Proxy, nil
}

// EnvVarName returns the environment variable that overrides a section field.
func EnvVarName(field string) string {
	return strings.ToUpper(envKeyReplacer.Replace(SectionKey + "." + field))
}
