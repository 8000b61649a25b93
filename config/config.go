package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Wallet   WalletConfig   `mapstructure:"wallet"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Stripe   StripeConfig   `mapstructure:"stripe"`
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
	LockTimeout     time.Duration `mapstructure:"lock_timeout"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// RedisConfig describes a single node by host and port, or a cluster or
// sentinel set through Addrs (MasterName selects sentinel).
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Addrs        []string      `mapstructure:"addrs"`
	MasterName   string        `mapstructure:"master_name"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Endpoints returns Addrs when set, else the single host:port.
func (r RedisConfig) Endpoints() []string {
	if len(r.Addrs) > 0 {
		return r.Addrs
	}
	return []string{r.Addr()}
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// StorageConfig selects the persistence backend: "postgres" or "memory".
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

// WalletConfig holds process-level knobs of the wallet core. Business
// settings such as fee rates and limits live in the system_settings table.
type WalletConfig struct {
	OTPTTL         time.Duration `mapstructure:"otp_ttl"`
	OTPMaxAttempts int           `mapstructure:"otp_max_attempts"`
	OTPMaxLive     int           `mapstructure:"otp_max_live"`
	QuoteTTL       time.Duration `mapstructure:"quote_ttl"`
	TxRetries      int           `mapstructure:"tx_retries"`
	PendingTTL     time.Duration `mapstructure:"pending_ttl"` // 0 disables expiry
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
}

type KafkaConfig struct {
	Enabled            bool     `mapstructure:"enabled"`
	Brokers            []string `mapstructure:"brokers"`
	LedgerTopic        string   `mapstructure:"ledger_topic"`
	NotificationsTopic string   `mapstructure:"notifications_topic"`
	RiskTopic          string   `mapstructure:"risk_topic"`
}

type StripeConfig struct {
	SecretKey string `mapstructure:"secret_key"`
	Currency  string `mapstructure:"currency"`
}

// Enabled reports whether gateway top-ups can be served.
func (s StripeConfig) Enabled() bool {
	return s.SecretKey != ""
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: CUT_.
// Nested keys use underscore: CUT_DATABASE_HOST, CUT_WALLET_OTP_TTL, etc.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("CUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A missing file is fine; env vars and defaults can carry everything.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "cutcoin")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.lock_timeout", "5s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "cutcoin-wallet")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("storage.driver", "postgres")

	v.SetDefault("wallet.otp_ttl", "10m")
	v.SetDefault("wallet.otp_max_attempts", 5)
	v.SetDefault("wallet.otp_max_live", 5)
	v.SetDefault("wallet.quote_ttl", "10m")
	v.SetDefault("wallet.tx_retries", 3)
	v.SetDefault("wallet.pending_ttl", "0s")
	v.SetDefault("wallet.sweep_interval", "1m")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.ledger_topic", "cutcoin.ledger.completed")
	v.SetDefault("kafka.notifications_topic", "cutcoin.notifications")
	v.SetDefault("kafka.risk_topic", "cutcoin.risk.signals")

	v.SetDefault("stripe.secret_key", "")
	v.SetDefault("stripe.currency", "usd")
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Wallet.OTPTTL <= 0 {
		return fmt.Errorf("wallet.otp_ttl must be positive")
	}
	if c.Wallet.TxRetries < 0 {
		return fmt.Errorf("wallet.tx_retries must not be negative")
	}
	if c.Wallet.PendingTTL < 0 {
		return fmt.Errorf("wallet.pending_ttl must not be negative")
	}
	if c.Wallet.PendingTTL > 0 && c.Wallet.SweepInterval <= 0 {
		return fmt.Errorf("wallet.sweep_interval must be positive when pending_ttl is set")
	}
	return nil
}
