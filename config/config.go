package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	AES       AESConfig       `mapstructure:"aes"`
	Stellar   StellarConfig   `mapstructure:"stellar"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type AESConfig struct {
	Key string `mapstructure:"key"` // 32-byte hex-encoded key for AES-256
}

// StellarConfig describes the ledger network the service talks to.
type StellarConfig struct {
	Network             string        `mapstructure:"network"` // testnet, futurenet, public, local
	HorizonURL          string        `mapstructure:"horizon_url"`
	SorobanRPCURL       string        `mapstructure:"soroban_rpc_url"`
	FactoryContractID   string        `mapstructure:"factory_contract_id"`
	BaseFee             int64         `mapstructure:"base_fee"`             // stroops
	TransactionTimeout  time.Duration `mapstructure:"transaction_timeout"`  // tx time bounds
	ConfirmationTimeout time.Duration `mapstructure:"confirmation_timeout"` // finality poll budget
	PollInterval        time.Duration `mapstructure:"poll_interval"`
	FundNewWallets      bool          `mapstructure:"fund_new_wallets"` // friendbot, non-public only
}

// IsPublic reports whether the configured network is the public network,
// where friendbot funding is unavailable.
func (s StellarConfig) IsPublic() bool {
	return strings.EqualFold(s.Network, "public")
}

// RateLimitConfig holds per-wallet advisory limits for sensitive actions.
// A limit of zero disables that window's check.
type RateLimitConfig struct {
	SignPerMinute   int `mapstructure:"sign_per_minute"`
	SignPerHour     int `mapstructure:"sign_per_hour"`
	StatusPerMinute int `mapstructure:"status_per_minute"`
	StatusPerHour   int `mapstructure:"status_per_hour"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: VINEFI.
// Nested keys use underscore: VINEFI_DATABASE_HOST, VINEFI_STELLAR_NETWORK, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "vinefi")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "vinefi-traceability")
	v.SetDefault("aes.key", "")
	v.SetDefault("stellar.network", "testnet")
	v.SetDefault("stellar.horizon_url", "https://horizon-testnet.stellar.org")
	v.SetDefault("stellar.soroban_rpc_url", "https://soroban-testnet.stellar.org")
	v.SetDefault("stellar.factory_contract_id", "")
	v.SetDefault("stellar.base_fee", 100)
	v.SetDefault("stellar.transaction_timeout", "3m")
	v.SetDefault("stellar.confirmation_timeout", "30s")
	v.SetDefault("stellar.poll_interval", "1s")
	v.SetDefault("stellar.fund_new_wallets", true)
	v.SetDefault("ratelimit.sign_per_minute", 5)
	v.SetDefault("ratelimit.sign_per_hour", 50)
	v.SetDefault("ratelimit.status_per_minute", 10)
	v.SetDefault("ratelimit.status_per_hour", 100)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: VINEFI_DATABASE_HOST -> database.host
	v.SetEnvPrefix("VINEFI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required — env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
