// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Cache         CacheConfig        `mapstructure:"cache"`
	Payments      PaymentsConfig     `mapstructure:"payments"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host              string `mapstructure:"host"`
	Port              int    `mapstructure:"port"`
	Database          string `mapstructure:"database"`
	User              string `mapstructure:"user"`
	Password          string `mapstructure:"password"`
	MaxConnections    int    `mapstructure:"max_connections"`
	MaxIdle           int    `mapstructure:"max_idle"`
	ConnMaxLifetime   int    `mapstructure:"conn_max_lifetime"`   // seconds
	ConnMaxIdleTime   int    `mapstructure:"conn_max_idle_time"`  // seconds
	SlowQueryMS       int    `mapstructure:"slow_query_ms"`       // slow query threshold
	SlowQueryCapacity int    `mapstructure:"slow_query_capacity"` // ring buffer size
	SSLMode           string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig holds TTLs for the cache-aside read paths.
type CacheConfig struct {
	ShiftTTL     int `mapstructure:"shift_ttl"`      // seconds
	ShiftListTTL int `mapstructure:"shift_list_ttl"` // seconds
	SessionTTL   int `mapstructure:"session_ttl"`    // seconds
}

// PaymentsConfig holds the external processor credentials and the server-held
// price catalog. Amounts here are authoritative; client-supplied amounts are
// never accepted.
type PaymentsConfig struct {
	SecretKey      string                  `mapstructure:"secret_key"`
	WebhookSecret  string                  `mapstructure:"webhook_secret"`
	RequestTimeout int                     `mapstructure:"request_timeout"` // milliseconds
	Catalog        map[string]CatalogEntry `mapstructure:"catalog"`
	Plans          map[string]PlanEntry    `mapstructure:"plans"`
}

type CatalogEntry struct {
	Amount      int64  `mapstructure:"amount"` // minor currency units
	Currency    string `mapstructure:"currency"`
	Description string `mapstructure:"description"`
}

type PlanEntry struct {
	ProviderPriceID string `mapstructure:"provider_price_id"`
	Amount          int64  `mapstructure:"amount"`
	Currency        string `mapstructure:"currency"`
	Description     string `mapstructure:"description"`
}

// NotificationConfig holds settings for application decision notifications.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
