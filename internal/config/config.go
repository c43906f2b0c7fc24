// Package config loads runtime configuration from the environment and an
// optional config.yaml. Everything has a safe default: with no redis and no
// database configured the engine runs local-only against a sqlite file,
// which is exactly what development wants.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type RedisConfig struct {
	// Addr is "tcp://[user:pass@]host:port[/db]". Empty disables the remote
	// tier entirely; the cache then runs in-process only.
	Addr     string `mapstructure:"addr"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
}

type SourceConfig struct {
	Backend string `mapstructure:"backend"`
	DSN     string `mapstructure:"dsn"`
}

type Config struct {
	Server  ServerConfig `mapstructure:"server"`
	Redis   RedisConfig  `mapstructure:"redis"`
	Source  SourceConfig `mapstructure:"source"`
	Logging bool         `mapstructure:"logging"`
}

// RedisAddr resolves the remote store address, preferring the full Addr
// form over host/port/password pieces. Empty means no remote tier.
func (c *Config) RedisAddr() string {
	if c.Redis.Addr != "" {
		return c.Redis.Addr
	}
	if c.Redis.Host == "" {
		return ""
	}
	port := c.Redis.Port
	if port == 0 {
		port = 6379
	}
	if c.Redis.Password != "" {
		return fmt.Sprintf("tcp://:%s@%s:%d", c.Redis.Password, c.Redis.Host, port)
	}
	return fmt.Sprintf("tcp://%s:%d", c.Redis.Host, port)
}

// Load reads config.yaml (when present) and BONUS_* environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("source.backend", "sqlite")
	v.SetDefault("source.dsn", "novedades.db")
	v.SetDefault("logging", true)

	v.SetEnvPrefix("BONUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/bonus-engine")
		// Missing file is fine; env and defaults cover everything.
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
