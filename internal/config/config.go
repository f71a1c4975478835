// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package config

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

// Config is the top-level Warden configuration.
type Config struct {
	DataDir    string           `mapstructure:"data_dir"`
	Provider   ProviderConfig   `mapstructure:"provider"`
	Prompt     PromptConfig     `mapstructure:"prompt"`
	Resilience ResilienceConfig `mapstructure:"resilience"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Pricing    PricingConfig    `mapstructure:"pricing"`
	Alerts     AlertsConfig     `mapstructure:"alerts"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Server     ServerConfig     `mapstructure:"server"`
}

// ProviderConfig selects the remote completion endpoint.
type ProviderConfig struct {
	Name        string        `mapstructure:"name"`
	APIKey      string        `mapstructure:"api_key"`
	APIBase     string        `mapstructure:"api_base"`
	BaseModel   string        `mapstructure:"base_model"`
	Model       string        `mapstructure:"model"`
	KeyPrefix   string        `mapstructure:"key_prefix"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type PromptConfig struct {
	SystemPromptFile string `mapstructure:"system_prompt_file"`
}

type ResilienceConfig struct {
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Breaker   BreakerConfig   `mapstructure:"breaker"`
	Retry     RetryConfig     `mapstructure:"retry"`
}

// RateLimitConfig allows at most MaxCalls call starts per Period.
type RateLimitConfig struct {
	MaxCalls int           `mapstructure:"max_calls"`
	Period   time.Duration `mapstructure:"period"`
}

type BreakerConfig struct {
	FailThreshold int           `mapstructure:"fail_threshold"`
	ResetTimeout  time.Duration `mapstructure:"reset_timeout"`
}

type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// StorageConfig selects where outcomes and feedback are appended.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Dir     string `mapstructure:"dir"`
}

// PricingConfig lists per-model rates. Models is a list rather than a map
// because model ids contain dots, which viper treats as key separators.
type PricingConfig struct {
	File    string       `mapstructure:"file"`
	Default ModelPrice   `mapstructure:"default"`
	Models  []ModelPrice `mapstructure:"models"`
}

// ModelPrice is the USD rate per million tokens for Model.
type ModelPrice struct {
	Model            string  `mapstructure:"model" yaml:"model"`
	InputPerMillion  float64 `mapstructure:"input_per_million" yaml:"input_per_million"`
	OutputPerMillion float64 `mapstructure:"output_per_million" yaml:"output_per_million"`
}

// AlertsConfig holds the operator thresholds checked by the alert engine.
type AlertsConfig struct {
	ErrorRatePct      float64       `mapstructure:"error_rate_pct"`
	LatencyP95Seconds float64       `mapstructure:"latency_p95_seconds"`
	CostPerHourUSD    float64       `mapstructure:"cost_per_hour_usd"`
	MinSamples        int           `mapstructure:"min_samples"`
	Window            time.Duration `mapstructure:"window"`
	Cooldown          time.Duration `mapstructure:"cooldown"`
	Interval          time.Duration `mapstructure:"interval"`
	CooldownStore     string        `mapstructure:"cooldown_store"`
	RedisURL          string        `mapstructure:"redis_url"`
}

type NotifyConfig struct {
	Email   EmailConfig   `mapstructure:"email"`
	Webhook WebhookConfig `mapstructure:"webhook"`
}

type EmailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
}

type WebhookConfig struct {
	URL       string `mapstructure:"url"`
	Username  string `mapstructure:"username"`
	IconEmoji string `mapstructure:"icon_emoji"`
}

type ServerConfig struct {
	Listen      string                `mapstructure:"listen"`
	CORSOrigins []string              `mapstructure:"cors_origins"`
	RateLimit   ServerRateLimitConfig `mapstructure:"rate_limit"`
}

// ServerRateLimitConfig limits API requests per client IP. Zero disables it.
type ServerRateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	// Empty defaults let env-only values reach Unmarshal.
	for _, key := range []string{
		"data_dir",
		"provider.api_key", "provider.model", "provider.key_prefix",
		"prompt.system_prompt_file",
		"storage.dir",
		"pricing.file",
		"alerts.redis_url",
		"notify.email.user", "notify.email.password", "notify.email.from", "notify.email.to",
		"notify.webhook.url",
	} {
		v.SetDefault(key, "")
	}

	v.SetDefault("provider.name", "openai")
	v.SetDefault("provider.api_base", "https://llm.lingarogroup.com")
	v.SetDefault("provider.base_model", "gemini-3-flash")
	v.SetDefault("provider.max_tokens", 1024)
	v.SetDefault("provider.temperature", 0.4)
	v.SetDefault("provider.timeout", 30*time.Second)

	v.SetDefault("resilience.rate_limit.max_calls", 60)
	v.SetDefault("resilience.rate_limit.period", time.Minute)
	v.SetDefault("resilience.breaker.fail_threshold", 5)
	v.SetDefault("resilience.breaker.reset_timeout", 60*time.Second)
	v.SetDefault("resilience.retry.max_attempts", 3)
	v.SetDefault("resilience.retry.base_delay", 2*time.Second)
	v.SetDefault("resilience.retry.max_delay", 10*time.Second)

	v.SetDefault("storage.backend", "jsonl")

	v.SetDefault("pricing.default.input_per_million", 0.075)
	v.SetDefault("pricing.default.output_per_million", 0.30)

	v.SetDefault("alerts.error_rate_pct", 10.0)
	v.SetDefault("alerts.latency_p95_seconds", 5.0)
	v.SetDefault("alerts.cost_per_hour_usd", 1.0)
	v.SetDefault("alerts.min_samples", 10)
	v.SetDefault("alerts.window", time.Hour)
	v.SetDefault("alerts.cooldown", time.Hour)
	v.SetDefault("alerts.interval", 5*time.Minute)
	v.SetDefault("alerts.cooldown_store", "memory")

	v.SetDefault("notify.email.host", "smtp.gmail.com")
	v.SetDefault("notify.email.port", 587)
	v.SetDefault("notify.webhook.username", "Warden")
	v.SetDefault("notify.webhook.icon_emoji", ":rotating_light:")

	v.SetDefault("server.listen", "127.0.0.1:8787")
	v.SetDefault("server.rate_limit.requests_per_second", 5.0)
	v.SetDefault("server.rate_limit.burst", 10)
}

// SetupEnv maps WARDEN_PROVIDER_API_KEY style variables onto config keys.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix("WARDEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from the given path (or defaults only) with
// WARDEN_ environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, wardenerr.Errorf(wardenerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	return FromViper(v)
}

// FromViper decodes and validates the settings held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, wardenerr.Errorf(wardenerr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, wardenerr.Errorf(wardenerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks structural settings and returns every problem found.
// Provider credentials are not checked here; a missing key is reported per
// request by Source.Provider so the CLI and server still start.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateResilience()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateAlerts()...)
	errs = append(errs, c.validateServer()...)

	return errs
}

func (c *Config) validateResilience() []error {
	var errs []error
	r := c.Resilience

	if r.RateLimit.MaxCalls > 0 && r.RateLimit.Period <= 0 {
		errs = append(errs, invalid("resilience.rate_limit.period must be positive when max_calls is set, got %s", r.RateLimit.Period))
	}
	if r.Breaker.FailThreshold < 1 {
		errs = append(errs, invalid("resilience.breaker.fail_threshold must be at least 1, got %d", r.Breaker.FailThreshold))
	}
	if r.Breaker.ResetTimeout <= 0 {
		errs = append(errs, invalid("resilience.breaker.reset_timeout must be positive, got %s", r.Breaker.ResetTimeout))
	}
	if r.Retry.MaxAttempts < 1 {
		errs = append(errs, invalid("resilience.retry.max_attempts must be at least 1, got %d", r.Retry.MaxAttempts))
	}
	if r.Retry.BaseDelay < 0 || r.Retry.MaxDelay < r.Retry.BaseDelay {
		errs = append(errs, invalid("resilience.retry delays must satisfy 0 <= base_delay <= max_delay, got %s and %s",
			r.Retry.BaseDelay, r.Retry.MaxDelay))
	}

	return errs
}

func (c *Config) validateStorage() []error {
	validBackends := map[string]bool{"jsonl": true, "sqlite": true}
	if !validBackends[c.Storage.Backend] {
		return []error{invalid("storage.backend must be one of [jsonl, sqlite], got %q", c.Storage.Backend)}
	}
	return nil
}

func (c *Config) validateAlerts() []error {
	var errs []error
	a := c.Alerts

	if a.ErrorRatePct < 0 || a.LatencyP95Seconds < 0 || a.CostPerHourUSD < 0 {
		errs = append(errs, invalid("alerts thresholds must not be negative"))
	}
	if a.MinSamples < 1 {
		errs = append(errs, invalid("alerts.min_samples must be at least 1, got %d", a.MinSamples))
	}
	if a.Window <= 0 {
		errs = append(errs, invalid("alerts.window must be positive, got %s", a.Window))
	}
	if a.Interval <= 0 {
		errs = append(errs, invalid("alerts.interval must be positive, got %s", a.Interval))
	}
	if a.Cooldown < 0 {
		errs = append(errs, invalid("alerts.cooldown must not be negative, got %s", a.Cooldown))
	}

	switch a.CooldownStore {
	case "memory":
	case "redis":
		if a.RedisURL == "" {
			errs = append(errs, invalid("alerts.redis_url is required when alerts.cooldown_store is redis"))
		}
	default:
		errs = append(errs, invalid("alerts.cooldown_store must be one of [memory, redis], got %q", a.CooldownStore))
	}

	return errs
}

func (c *Config) validateServer() []error {
	if rl := c.Server.RateLimit; rl.RequestsPerSecond < 0 || (rl.RequestsPerSecond > 0 && rl.Burst < 1) {
		return []error{invalid("server.rate_limit needs requests_per_second >= 0 and burst >= 1 when enabled, got %g/%d",
			rl.RequestsPerSecond, rl.Burst)}
	}
	if c.Server.Listen == "" {
		return []error{invalid("server.listen must not be empty")}
	}
	_, portStr, err := net.SplitHostPort(c.Server.Listen)
	if err != nil {
		return []error{invalid("server.listen must be a valid host:port address, got %q: %w", c.Server.Listen, err)}
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return []error{invalid("server.listen port must be between 1 and 65535, got %q", portStr)}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return wardenerr.Errorf(wardenerr.CodeConfigValidateInvalidValue, "config: "+format, args...)
}
