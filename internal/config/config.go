package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration, loaded once at startup.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	GraphQL  GraphQLConfig  `mapstructure:"graphql"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig contains catalog database connection settings
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConnections  int32         `mapstructure:"max_connections"`
	MinConnections  int32         `mapstructure:"min_connections"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// ConnString builds a pgx-compatible connection string
func (dc *DatabaseConfig) ConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dc.Host, dc.Port, dc.User, dc.Password, dc.Database, dc.SSLMode)
}

// GraphQLConfig contains GraphQL API settings
type GraphQLConfig struct {
	MaxDepth      int  `mapstructure:"max_depth"`     // Maximum query depth (default: 10)
	Introspection bool `mapstructure:"introspection"` // Enable GraphQL introspection
}

// CatalogConfig describes the shape of the product catalog tables.
// The catalog schema is owned by the storefront; this service only reads it.
type CatalogConfig struct {
	TablePrefix   string `mapstructure:"table_prefix"`   // e.g. "wp_"
	PriceMetaKey  string `mapstructure:"price_meta_key"` // meta key holding the product price
	BrandTaxonomy string `mapstructure:"brand_taxonomy"` // taxonomy used for brand aggregations
}

// LoggingConfig contains log output settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// identifierPattern matches strings that are safe to splice into SQL as
// identifiers (table prefixes). Everything else is bound as a parameter.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate validates server configuration
func (sc *ServerConfig) Validate() error {
	if sc.Address == "" {
		return fmt.Errorf("server address must not be empty")
	}
	return nil
}

// Validate validates database configuration
func (dc *DatabaseConfig) Validate() error {
	if dc.Host == "" {
		return fmt.Errorf("database host must not be empty")
	}
	if dc.Port < 1 || dc.Port > 65535 {
		return fmt.Errorf("database port must be between 1 and 65535, got: %d", dc.Port)
	}
	if dc.Database == "" {
		return fmt.Errorf("database name must not be empty")
	}
	if dc.MaxConnections < 1 {
		return fmt.Errorf("database max_connections must be at least 1, got: %d", dc.MaxConnections)
	}
	if dc.MinConnections > dc.MaxConnections {
		return fmt.Errorf("database min_connections (%d) must not exceed max_connections (%d)",
			dc.MinConnections, dc.MaxConnections)
	}
	return nil
}

// Validate validates GraphQL configuration
func (gc *GraphQLConfig) Validate() error {
	if gc.MaxDepth < 1 {
		return fmt.Errorf("graphql max_depth must be at least 1, got: %d", gc.MaxDepth)
	}
	return nil
}

// Validate validates catalog configuration. The table prefix ends up in SQL
// identifier position, so it is held to identifier rules rather than bound
// as a parameter.
func (cc *CatalogConfig) Validate() error {
	if cc.TablePrefix != "" && !identifierPattern.MatchString(strings.TrimSuffix(cc.TablePrefix, "_")) {
		return fmt.Errorf("catalog table_prefix must be a valid SQL identifier prefix, got: %q", cc.TablePrefix)
	}
	if cc.PriceMetaKey == "" {
		return fmt.Errorf("catalog price_meta_key must not be empty")
	}
	if cc.BrandTaxonomy == "" {
		return fmt.Errorf("catalog brand_taxonomy must not be empty")
	}
	return nil
}

// Validate validates the full configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database config: %w", err)
	}
	if err := c.GraphQL.Validate(); err != nil {
		return fmt.Errorf("graphql config: %w", err)
	}
	if err := c.Catalog.Validate(); err != nil {
		return fmt.Errorf("catalog config: %w", err)
	}
	return nil
}

// Load reads configuration from the optional config file plus STOREGRAPH_*
// environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("storegraph")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/storegraph")

	v.SetEnvPrefix("STOREGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine; env vars and defaults still apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "storegraph")
	v.SetDefault("database.database", "storefront")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.max_conn_lifetime", time.Hour)
	v.SetDefault("database.max_conn_idle_time", 30*time.Minute)

	v.SetDefault("graphql.max_depth", 10)
	v.SetDefault("graphql.introspection", true)

	v.SetDefault("catalog.table_prefix", "wp_")
	v.SetDefault("catalog.price_meta_key", "_price")
	v.SetDefault("catalog.brand_taxonomy", "product_brand")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.pretty", false)
}
