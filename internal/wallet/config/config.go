// Package config provides configuration management for the wallet service
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all wallet service configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Redis    RedisConfig    `mapstructure:"redis" yaml:"redis"`
	Provider ProviderConfig `mapstructure:"provider" yaml:"provider"`
	Cache    CacheConfig    `mapstructure:"cache" yaml:"cache"`
	Chains   ChainsConfig   `mapstructure:"chains" yaml:"chains"`
	Trigger  TriggerConfig  `mapstructure:"trigger" yaml:"trigger"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	Username        string        `mapstructure:"username" yaml:"username"`
	Password        string        `mapstructure:"password" yaml:"password"`
	Database        string        `mapstructure:"database" yaml:"database"`
	SSLMode         string        `mapstructure:"ssl_mode" yaml:"ssl_mode"`
	MaxConnections  int           `mapstructure:"max_connections" yaml:"max_connections"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address      string        `mapstructure:"address" yaml:"address"`
	Password     string        `mapstructure:"password" yaml:"password"`
	Database     int           `mapstructure:"database" yaml:"database"`
	PoolSize     int           `mapstructure:"pool_size" yaml:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns" yaml:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// ProviderConfig holds custodial wallet API configuration
type ProviderConfig struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	APIKey  string        `mapstructure:"api_key" yaml:"api_key"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	// Backend selects the cache implementation: "memory" or "redis".
	Backend       string        `mapstructure:"backend" yaml:"backend"`
	AddressTTL    time.Duration `mapstructure:"address_ttl" yaml:"address_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
	KeyPrefix     string        `mapstructure:"key_prefix" yaml:"key_prefix"`
}

// ChainsConfig holds the static chain-to-wallet mapping.
//
// WalletGroups maps a comma-joined chain-name list to the provider wallet id
// backing those chains, e.g. "base,arbitrum" -> "wlt_evm_1". The group form
// is expanded into a flat per-chain lookup at load time. SharedCapable lists
// the chains whose key derivation is compatible, so one generated address
// serves all of them.
type ChainsConfig struct {
	WalletGroups  map[string]string `mapstructure:"wallet_groups" yaml:"wallet_groups"`
	SharedCapable []string          `mapstructure:"shared_capable" yaml:"shared_capable"`
}

// TriggerConfig holds provisioning trigger configuration
type TriggerConfig struct {
	QueueSize  int           `mapstructure:"queue_size" yaml:"queue_size"`
	RunTimeout time.Duration `mapstructure:"run_timeout" yaml:"run_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("provider base URL is required")
	}
	if c.Provider.APIKey == "" {
		return fmt.Errorf("provider API key is required")
	}
	if len(c.Chains.WalletGroups) == 0 {
		return fmt.Errorf("at least one chain wallet group must be configured")
	}
	for group, walletID := range c.Chains.WalletGroups {
		if strings.TrimSpace(group) == "" {
			return fmt.Errorf("chain wallet group name cannot be empty")
		}
		if walletID == "" {
			return fmt.Errorf("wallet id is required for chain group %q", group)
		}
	}
	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		return fmt.Errorf("cache backend must be \"memory\" or \"redis\", got %q", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Redis.Address == "" {
		return fmt.Errorf("redis address is required for the redis cache backend")
	}
	return nil
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.Database, c.SSLMode)
}

// Load reads configuration from the given file, with WALLETCORE_* environment
// variables overriding file values. A missing file falls back to defaults so
// a fully env-driven deployment works.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("WALLETCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("walletcore")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/walletcore")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read configuration file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.username", "walletcore")
	v.SetDefault("database.database", "walletcore")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 50)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.pool_size", 50)
	v.SetDefault("redis.min_idle_conns", 5)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)

	v.SetDefault("provider.timeout", 30*time.Second)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.address_ttl", time.Hour)
	v.SetDefault("cache.sweep_interval", time.Minute)
	v.SetDefault("cache.key_prefix", "walletcore")

	v.SetDefault("trigger.queue_size", 256)
	v.SetDefault("trigger.run_timeout", 2*time.Minute)

	v.SetDefault("logging.level", "info")
}
