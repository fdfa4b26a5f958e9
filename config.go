package procflux

import (
	"errors"
	"fmt"

	"github.com/viant/procflux/policy"
	"github.com/viant/procflux/runtime/execution"
	"github.com/viant/procflux/service/executor"
	"github.com/viant/procflux/service/processor"
	"gopkg.in/yaml.v3"
)

// Config is a serialisable representation of the engine configuration. It can
// be populated from YAML, JSON or, through the command line, from flags and
// PROCFLUX_ environment variables. Zero values inherit package defaults.
type Config struct {
	Processor processor.Config    `json:"processor" yaml:"processor" mapstructure:"processor"`
	Estimator *executor.Estimator `json:"estimator,omitempty" yaml:"estimator,omitempty" mapstructure:"estimator"`
	Policy    *policy.Config      `json:"policy,omitempty" yaml:"policy,omitempty" mapstructure:"policy"`
	Capacity  CapacityConfig      `json:"capacity" yaml:"capacity" mapstructure:"capacity"`
	Store     StoreConfig         `json:"store" yaml:"store" mapstructure:"store"`
	Logging   LoggingConfig       `json:"logging" yaml:"logging" mapstructure:"logging"`
	HTTP      HTTPConfig          `json:"http" yaml:"http" mapstructure:"http"`
	Tracing   TracingConfig       `json:"tracing" yaml:"tracing" mapstructure:"tracing"`
}

// CapacityConfig describes host capacity used by enforced admission.
// LocalHost, when set, reports this machine's CPU and memory under that name.
type CapacityConfig struct {
	Hosts     map[string]execution.Resources `json:"hosts,omitempty" yaml:"hosts,omitempty" mapstructure:"hosts"`
	Default   *execution.Resources           `json:"default,omitempty" yaml:"default,omitempty" mapstructure:"default"`
	LocalHost string                         `json:"localHost,omitempty" yaml:"localHost,omitempty" mapstructure:"localHost"`
}

// StoreConfig configures the process mirror; an empty URL disables it.
type StoreConfig struct {
	URL string `json:"url,omitempty" yaml:"url,omitempty" mapstructure:"url"`
}

type LoggingConfig struct {
	Format string `json:"format" yaml:"format" mapstructure:"format"`
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
}

type HTTPConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// TracingConfig enables OpenTelemetry tracing when ServiceName is set.
type TracingConfig struct {
	ServiceName    string `json:"serviceName,omitempty" yaml:"serviceName,omitempty" mapstructure:"serviceName"`
	ServiceVersion string `json:"serviceVersion,omitempty" yaml:"serviceVersion,omitempty" mapstructure:"serviceVersion"`
	OutputFile     string `json:"outputFile,omitempty" yaml:"outputFile,omitempty" mapstructure:"outputFile"`
}

// DefaultConfig returns a Config populated with the package defaults.
func DefaultConfig() *Config {
	return &Config{
		Processor: processor.DefaultConfig(),
		Estimator: executor.DefaultEstimator(),
		Logging:   LoggingConfig{Format: "text", Level: "info"},
		HTTP:      HTTPConfig{Addr: ":8080"},
	}
}

// LoadConfig decodes YAML data on top of DefaultConfig.
func LoadConfig(data []byte) (*Config, error) {
	ret := DefaultConfig()
	if err := yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if ret.Estimator != nil {
		ret.Estimator.Merge(executor.DefaultEstimator())
	}
	if err := ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}

// Validate returns aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.Processor.Workers <= 0 {
		errs = append(errs, fmt.Errorf("processor.workers must be > 0"))
	}
	if c.Processor.LockStripes < 0 {
		errs = append(errs, fmt.Errorf("processor.lockStripes must be >= 0"))
	}
	if err := c.Processor.DefaultResources.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("processor.defaultResources: %w", err))
	}
	if !c.Policy.Validate() {
		errs = append(errs, fmt.Errorf("policy.mode %q is not supported", c.Policy.Mode))
	}
	if e := c.Estimator; e != nil {
		if e.UnresourcedFactor < 0 || e.MinUnits < 0 || e.DefaultBase < 0 || e.Unit < 0 {
			errs = append(errs, fmt.Errorf("estimator values must not be negative"))
		}
		for processType, base := range e.Base {
			if base < 0 {
				errs = append(errs, fmt.Errorf("estimator.base.%v must not be negative", processType))
			}
		}
	}
	for host, resources := range c.Capacity.Hosts {
		if err := resources.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("capacity.hosts.%v: %w", host, err))
		}
	}
	return errors.Join(errs...)
}
