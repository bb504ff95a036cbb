package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Sternrassler/api-paginator/pkg/client"
	"github.com/Sternrassler/api-paginator/pkg/logging"
)

// envPrefix prefixes the environment variables that override the config
// file, e.g. PAGER_REDIS_ADDR for redis.addr.
const envPrefix = "PAGER"

// serviceConfig binds one API to its endpoints.
type serviceConfig struct {
	BaseURL    string             `mapstructure:"base_url"`
	UserAgent  string             `mapstructure:"user_agent"`
	RateLimit  float64            `mapstructure:"rate_limit"`
	Burst      int                `mapstructure:"burst"`
	Timeout    time.Duration      `mapstructure:"timeout"`
	Operations []client.Operation `mapstructure:"operations"`
}

type redisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type serverConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	MaxConcurrency  int           `mapstructure:"max_concurrency"`
}

// appConfig is the merged configuration of file, environment and flags.
type appConfig struct {
	LogLevel  string                   `mapstructure:"log_level"`
	LogPretty bool                     `mapstructure:"log_pretty"`
	ModelDir  string                   `mapstructure:"model_dir"`
	Redis     redisConfig              `mapstructure:"redis"`
	Server    serverConfig             `mapstructure:"server"`
	Services  map[string]serviceConfig `mapstructure:"services"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)
	v.SetDefault("model_dir", "./models")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.request_timeout", 2*time.Minute)
	v.SetDefault("server.max_concurrency", 10)
}

// newViper returns a viper instance reading configFile (when set) and
// PAGER_* environment variables.
func newViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("pager")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/pager")
		v.AddConfigPath("/etc/pager")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

func loadConfig(v *viper.Viper) (*appConfig, error) {
	var cfg appConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	for name, svc := range cfg.Services {
		if svc.BaseURL == "" {
			return nil, fmt.Errorf("service %q: base_url is required", name)
		}
		if len(svc.Operations) == 0 {
			return nil, fmt.Errorf("service %q: no operations", name)
		}
	}
	return &cfg, nil
}

// serviceNames returns the configured services in sorted order.
func (c *appConfig) serviceNames() []string {
	names := make([]string, 0, len(c.Services))
	for name := range c.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// clientConfig renders the client configuration of one service.
func (c *appConfig) clientConfig(name string) (client.Config, error) {
	svc, ok := c.Services[name]
	if !ok {
		return client.Config{}, fmt.Errorf("unknown service %q", name)
	}
	cfg := client.DefaultConfig(name, svc.BaseURL)
	cfg.Operations = svc.Operations
	if svc.UserAgent != "" {
		cfg.UserAgent = svc.UserAgent
	}
	if svc.RateLimit > 0 {
		cfg.RateLimit = svc.RateLimit
	}
	if svc.Burst > 0 {
		cfg.Burst = svc.Burst
	}
	if svc.Timeout > 0 {
		cfg.Timeout = svc.Timeout
	}
	return cfg, nil
}
