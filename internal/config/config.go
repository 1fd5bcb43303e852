// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported identity provider backends.
const (
	IdentityProviderKeycloak = "keycloak"
	IdentityProviderFirebase = "firebase"
)

// Config holds all configuration for the application.
type Config struct {
	// Server Configuration
	GinMode       string        `mapstructure:"GIN_MODE"`
	ServerHost    string        `mapstructure:"SERVER_HOST"`
	ServerPort    string        `mapstructure:"SERVER_PORT"`
	ServerTimeout time.Duration `mapstructure:"-"` // SERVER_TIMEOUT_SECONDS

	// Database Configuration
	DBHost            string        `mapstructure:"DB_HOST"`
	DBPort            string        `mapstructure:"DB_PORT"`
	DBUser            string        `mapstructure:"DB_USER"`
	DBPassword        string        `mapstructure:"DB_PASSWORD"`
	DBName            string        `mapstructure:"DB_NAME"`
	DBSSLMode         string        `mapstructure:"DB_SSL_MODE"`
	DBTimezone        string        `mapstructure:"DB_TIMEZONE"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"-"` // DB_CONN_MAX_LIFETIME_MINUTES
	DBAutoMigrate     bool          `mapstructure:"DB_AUTO_MIGRATE"`

	// Logging Configuration
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// Identity Provider Configuration
	IdentityProvider     string        `mapstructure:"IDP_PROVIDER"`
	IdentityHTTPTimeout  time.Duration `mapstructure:"-"` // IDP_HTTP_TIMEOUT_SECONDS
	KeycloakBaseURL      string        `mapstructure:"KEYCLOAK_BASE_URL"`
	KeycloakRealm        string        `mapstructure:"KEYCLOAK_REALM"`
	KeycloakAdminRealm   string        `mapstructure:"KEYCLOAK_ADMIN_REALM"`
	KeycloakClientID     string        `mapstructure:"KEYCLOAK_CLIENT_ID"`
	KeycloakClientSecret string        `mapstructure:"KEYCLOAK_CLIENT_SECRET"`
	KeycloakPageSize     int           `mapstructure:"KEYCLOAK_PAGE_SIZE"`
	KeycloakIssuerURL    string        `mapstructure:"KEYCLOAK_ISSUER_URL"`

	// Firebase Configuration (used when IDP_PROVIDER=firebase)
	FirebaseServiceAccountKeyPath string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_KEY_PATH"`
	FirebaseProjectID             string `mapstructure:"FIREBASE_PROJECT_ID"`

	// User Synchronization
	UserSyncOnStartup        bool          `mapstructure:"USER_SYNC_ON_STARTUP"`
	UserSyncReadyMaxAttempts int           `mapstructure:"USER_SYNC_READY_MAX_ATTEMPTS"`
	UserSyncReadyDelay       time.Duration `mapstructure:"-"` // USER_SYNC_READY_DELAY_SECONDS
	UserSyncJobSchedule      string        `mapstructure:"USER_SYNC_JOB_SCHEDULE"`

	// Elasticsearch Configuration. Empty URL disables the users index.
	ElasticsearchURL string `mapstructure:"ELASTICSEARCH_URL"`

	// Metrics
	MetricsEnabled bool `mapstructure:"METRICS_ENABLED"`
}

// Load attempts to load configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// Durations are configured as plain integers and are not decoded by Unmarshal.
	cfg.ServerTimeout = time.Duration(v.GetInt("SERVER_TIMEOUT_SECONDS")) * time.Second
	cfg.DBConnMaxLifetime = time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME_MINUTES")) * time.Minute
	cfg.IdentityHTTPTimeout = time.Duration(v.GetInt("IDP_HTTP_TIMEOUT_SECONDS")) * time.Second
	cfg.UserSyncReadyDelay = time.Duration(v.GetInt("USER_SYNC_READY_DELAY_SECONDS")) * time.Second

	cfg.IdentityProvider = strings.ToLower(strings.TrimSpace(cfg.IdentityProvider))
	cfg.KeycloakBaseURL = strings.TrimRight(cfg.KeycloakBaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_TIMEOUT_SECONDS", 30)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "waste_ops_db")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_TIMEZONE", "UTC")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 60)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("IDP_PROVIDER", IdentityProviderKeycloak)
	v.SetDefault("IDP_HTTP_TIMEOUT_SECONDS", 10)
	v.SetDefault("KEYCLOAK_BASE_URL", "http://localhost:8081")
	v.SetDefault("KEYCLOAK_REALM", "waste-management")
	v.SetDefault("KEYCLOAK_ADMIN_REALM", "master")
	v.SetDefault("KEYCLOAK_CLIENT_ID", "")
	v.SetDefault("KEYCLOAK_CLIENT_SECRET", "")
	v.SetDefault("KEYCLOAK_PAGE_SIZE", 100)
	v.SetDefault("KEYCLOAK_ISSUER_URL", "")

	v.SetDefault("FIREBASE_PROJECT_ID", "")
	v.SetDefault("FIREBASE_SERVICE_ACCOUNT_KEY_PATH", "")

	// 12 attempts x 5 seconds gives the provider about a minute to come up.
	v.SetDefault("USER_SYNC_ON_STARTUP", true)
	v.SetDefault("USER_SYNC_READY_MAX_ATTEMPTS", 12)
	v.SetDefault("USER_SYNC_READY_DELAY_SECONDS", 5)
	v.SetDefault("USER_SYNC_JOB_SCHEDULE", "")

	v.SetDefault("ELASTICSEARCH_URL", "")
	v.SetDefault("METRICS_ENABLED", true)
}

// Validate checks the settings that would otherwise fail later at first use.
func (c *Config) Validate() error {
	switch c.IdentityProvider {
	case IdentityProviderKeycloak:
		if c.KeycloakBaseURL == "" || c.KeycloakRealm == "" {
			return fmt.Errorf("KEYCLOAK_BASE_URL and KEYCLOAK_REALM are required when IDP_PROVIDER=%s", IdentityProviderKeycloak)
		}
		if strings.TrimSpace(c.KeycloakClientID) == "" || strings.TrimSpace(c.KeycloakClientSecret) == "" {
			return fmt.Errorf("KEYCLOAK_CLIENT_ID and KEYCLOAK_CLIENT_SECRET are required when IDP_PROVIDER=%s", IdentityProviderKeycloak)
		}
	case IdentityProviderFirebase:
		if strings.TrimSpace(c.FirebaseServiceAccountKeyPath) == "" {
			return fmt.Errorf("FIREBASE_SERVICE_ACCOUNT_KEY_PATH is required when IDP_PROVIDER=%s", IdentityProviderFirebase)
		}
		if _, err := os.Stat(c.FirebaseServiceAccountKeyPath); os.IsNotExist(err) {
			return fmt.Errorf("firebase service account key file (%s) not found", c.FirebaseServiceAccountKeyPath)
		}
	default:
		return fmt.Errorf("unsupported IDP_PROVIDER %q (expected %q or %q)", c.IdentityProvider, IdentityProviderKeycloak, IdentityProviderFirebase)
	}

	if c.UserSyncReadyMaxAttempts < 1 {
		return fmt.Errorf("USER_SYNC_READY_MAX_ATTEMPTS must be at least 1, got %d", c.UserSyncReadyMaxAttempts)
	}
	if c.UserSyncReadyDelay < 0 {
		return fmt.Errorf("USER_SYNC_READY_DELAY_SECONDS must not be negative")
	}
	return nil
}
