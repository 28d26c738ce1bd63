// Package config loads the formcollect application configuration.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Forms   FormsConfig   `mapstructure:"forms"`
	Store   StoreConfig   `mapstructure:"store"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Script  ScriptConfig  `mapstructure:"script"`
	// External configures fetch_external_data requests.
	External ExternalConfig `mapstructure:"external"`
	// Tools overrides tool descriptions by tool name.
	Tools map[string]string `mapstructure:"tools"`
}

type FormsConfig struct {
	Dir string `mapstructure:"dir"`
	// Tag, when set, only loads forms carrying it.
	Tag string `mapstructure:"tag"`
}

type StoreConfig struct {
	Driver string      `mapstructure:"driver"`
	Redis  RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type ServerConfig struct {
	Name      string `mapstructure:"name"`
	Transport string `mapstructure:"transport"`
	Addr      string `mapstructure:"addr"`
	Path      string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type ScriptConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type ExternalConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

const (
	DriverMemory = "memory"
	DriverRedis  = "redis"

	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

func Default() *Config {
	return &Config{
		Forms: FormsConfig{Dir: "forms"},
		Store: StoreConfig{
			Driver: DriverMemory,
			Redis: RedisConfig{
				Addr:   "127.0.0.1:6379",
				Prefix: "formcollect:",
			},
		},
		Server: ServerConfig{
			Name:      "formcollect",
			Transport: TransportStdio,
			Addr:      "127.0.0.1:8080",
			Path:      "/mcp",
		},
		Logging:  LoggingConfig{Level: "info"},
		Script:   ScriptConfig{Timeout: 200 * time.Millisecond},
		External: ExternalConfig{Timeout: 10 * time.Second},
	}
}

// SetDefaults registers the defaults with viper so they apply without a
// config file.
func SetDefaults() {
	defaults := Default()
	viper.SetDefault("forms.dir", defaults.Forms.Dir)
	viper.SetDefault("forms.tag", defaults.Forms.Tag)
	viper.SetDefault("store.driver", defaults.Store.Driver)
	viper.SetDefault("store.redis.addr", defaults.Store.Redis.Addr)
	viper.SetDefault("store.redis.password", defaults.Store.Redis.Password)
	viper.SetDefault("store.redis.db", defaults.Store.Redis.DB)
	viper.SetDefault("store.redis.prefix", defaults.Store.Redis.Prefix)
	viper.SetDefault("store.redis.ttl", defaults.Store.Redis.TTL)
	viper.SetDefault("server.name", defaults.Server.Name)
	viper.SetDefault("server.transport", defaults.Server.Transport)
	viper.SetDefault("server.addr", defaults.Server.Addr)
	viper.SetDefault("server.path", defaults.Server.Path)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("script.timeout", defaults.Script.Timeout)
	viper.SetDefault("external.timeout", defaults.External.Timeout)
}

// Load unmarshals the current viper state and validates it.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

func LoadFrom(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}

// ValidationError is a single invalid setting.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

func (c *Config) Validate() []ValidationError {
	var errs []ValidationError
	if c.Forms.Dir == "" {
		errs = append(errs, ValidationError{Field: "forms.dir", Value: c.Forms.Dir, Message: "must not be empty"})
	}
	switch c.Store.Driver {
	case DriverMemory:
	case DriverRedis:
		if c.Store.Redis.Addr == "" {
			errs = append(errs, ValidationError{Field: "store.redis.addr", Value: c.Store.Redis.Addr, Message: "required for the redis driver"})
		}
		if c.Store.Redis.TTL < 0 {
			errs = append(errs, ValidationError{Field: "store.redis.ttl", Value: c.Store.Redis.TTL, Message: "must not be negative"})
		}
	default:
		errs = append(errs, ValidationError{Field: "store.driver", Value: c.Store.Driver, Message: "must be memory or redis"})
	}
	switch c.Server.Transport {
	case TransportStdio:
	case TransportHTTP:
		if c.Server.Addr == "" {
			errs = append(errs, ValidationError{Field: "server.addr", Value: c.Server.Addr, Message: "required for the http transport"})
		}
		if !strings.HasPrefix(c.Server.Path, "/") {
			errs = append(errs, ValidationError{Field: "server.path", Value: c.Server.Path, Message: "must start with /"})
		}
	default:
		errs = append(errs, ValidationError{Field: "server.transport", Value: c.Server.Transport, Message: "must be stdio or http"})
	}
	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errs = append(errs, ValidationError{Field: "logging.level", Value: c.Logging.Level, Message: "must be one of " + strings.Join(ValidLogLevels(), ", ")})
	}
	if c.Script.Timeout <= 0 {
		errs = append(errs, ValidationError{Field: "script.timeout", Value: c.Script.Timeout, Message: "must be positive"})
	}
	if c.External.Timeout < 0 {
		errs = append(errs, ValidationError{Field: "external.timeout", Value: c.External.Timeout, Message: "must not be negative"})
	}
	return errs
}
