package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"

	"github.com/angeloszaimis/health-validator/internal/target"
	"github.com/angeloszaimis/health-validator/internal/telemetry"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Version is stamped into telemetry resources.
var Version = "dev"

// DefaultTargets is the docker-compose fleet probed when no targets are configured.
var DefaultTargets = []TargetConfig{
	{Name: "python", URL: "http://metrics:8000/health"},
	{Name: "go", URL: "http://load:8002/health"},
	{Name: "cpp", URL: "http://chaos:8003/health"},
	{Name: "java", URL: "http://rules:8080/health"},
}

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
	ServiceName string `mapstructure:"service_name"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type ProbeConfig struct {
	Timeout       string `mapstructure:"timeout"`
	SlowThreshold string `mapstructure:"slow_threshold"`
}

type TargetConfig struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

type TelemetryConfig struct {
	MetricsExporter  string  `mapstructure:"metrics_exporter"`
	TracingExporter  string  `mapstructure:"tracing_exporter"`
	TraceSampleRatio float64 `mapstructure:"trace_sample_ratio"`
}

type MetricsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Probe     ProbeConfig     `mapstructure:"probe"`
	Targets   []TargetConfig  `mapstructure:"targets"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("server.address", ":8001")
	v.SetDefault("server.service_name", "validator")
	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("probe.timeout", "3s")
	v.SetDefault("probe.slow_threshold", "500ms")
	v.SetDefault("targets", defaultTargets())
	v.SetDefault("telemetry.metrics_exporter", telemetry.ExporterPrometheus)
	v.SetDefault("telemetry.tracing_exporter", telemetry.ExporterNone)
	v.SetDefault("telemetry.trace_sample_ratio", 1.0)
	v.SetDefault("metrics.buffer_size", 1024)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Warn("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func defaultTargets() []map[string]any {
	out := make([]map[string]any, 0, len(DefaultTargets))
	for _, t := range DefaultTargets {
		out = append(out, map[string]any{"name": t.Name, "url": t.URL})
	}
	return out
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
					validation.Field(&sc.ServiceName, validation.Required),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.Probe,
			validation.Required,
			validation.By(validateProbeConfig),
		),
		validation.Field(&c.Targets,
			validation.Required,
			validation.Length(1, 0),
			validation.Each(validation.By(validateTargetConfig)),
			validation.By(validateUniqueNames),
		),
		validation.Field(&c.Telemetry,
			validation.By(func(value interface{}) error {
				tc, ok := value.(TelemetryConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a TelemetryConfig")
				}
				return validation.ValidateStruct(&tc,
					validation.Field(&tc.MetricsExporter,
						validation.Required,
						validation.In(telemetry.ExporterPrometheus, telemetry.ExporterStdout, telemetry.ExporterOTLP, telemetry.ExporterNone),
					),
					validation.Field(&tc.TracingExporter,
						validation.Required,
						validation.In(telemetry.ExporterStdout, telemetry.ExporterOTLP, telemetry.ExporterNone),
					),
					validation.Field(&tc.TraceSampleRatio,
						validation.Min(0.0),
						validation.Max(1.0),
					),
				)
			}),
		),
		validation.Field(&c.Metrics,
			validation.By(func(value interface{}) error {
				mc, ok := value.(MetricsConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a MetricsConfig")
				}
				return validation.ValidateStruct(&mc,
					validation.Field(&mc.BufferSize, validation.Required, validation.Min(1)),
				)
			}),
		),
	)
}

// ProbeTimeout is the hard per-probe deadline. Only meaningful after Validate.
func (c *Config) ProbeTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Probe.Timeout)
	return d
}

// SlowThreshold is the latency at or above which a 2xx answer counts as slow.
func (c *Config) SlowThreshold() time.Duration {
	d, _ := time.ParseDuration(c.Probe.SlowThreshold)
	return d
}

// Registry builds the target registry in configuration order.
func (c *Config) Registry() (*target.Registry, error) {
	targets := make([]target.Target, 0, len(c.Targets))
	for _, t := range c.Targets {
		targets = append(targets, target.Target{Name: t.Name, URL: t.URL})
	}

	reg, err := target.NewRegistry(targets)
	if err != nil {
		return nil, fmt.Errorf("failed to build target registry: %w", err)
	}
	return reg, nil
}

func (c *Config) TelemetryConfig() telemetry.Config {
	return telemetry.Config{
		ServiceName:     c.Server.ServiceName,
		Version:         Version,
		MetricsExporter: c.Telemetry.MetricsExporter,
		TracingExporter: c.Telemetry.TracingExporter,
		SampleRatio:     c.Telemetry.TraceSampleRatio,
	}
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func parsePositiveDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 500ms, 3s)")
	}
	if d <= 0 {
		return validation.NewError("validation_non_positive_duration", "must be greater than zero")
	}

	return nil
}

func validateProbeConfig(value interface{}) error {
	pc, ok := value.(ProbeConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a ProbeConfig")
	}

	if err := validation.ValidateStruct(&pc,
		validation.Field(&pc.Timeout, validation.Required, validation.By(parsePositiveDuration)),
		validation.Field(&pc.SlowThreshold, validation.Required, validation.By(parsePositiveDuration)),
	); err != nil {
		return err
	}

	timeout, _ := time.ParseDuration(pc.Timeout)
	slow, _ := time.ParseDuration(pc.SlowThreshold)
	if slow >= timeout {
		return validation.NewError("validation_threshold_exceeds_timeout", "slow_threshold must be lower than timeout")
	}

	return nil
}

func validateTargetConfig(value interface{}) error {
	t, ok := value.(TargetConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a TargetConfig")
	}

	if strings.TrimSpace(t.Name) == "" {
		return validation.NewError("validation_empty_name", "target name cannot be empty")
	}

	if t.URL == "" {
		return validation.NewError("validation_empty_url", "target URL cannot be empty")
	}

	parsedURL, err := url.Parse(t.URL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}

func validateUniqueNames(value interface{}) error {
	targets, ok := value.([]TargetConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a list of targets")
	}

	seen := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		if _, dup := seen[t.Name]; dup {
			return validation.NewError("validation_duplicate_name", fmt.Sprintf("duplicate target name %q", t.Name))
		}
		seen[t.Name] = struct{}{}
	}

	return nil
}
