package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	MongoDB    MongoDBConfig
	JWT        JWTConfig
	Sale       SaleConfig
	Commission CommissionConfig
	Polling    PollingConfig
	Log        LogConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	AllowedHosts []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// JWTConfig holds JWT-specific configuration
type JWTConfig struct {
	Secret string
	Issuer string
}

// SaleConfig holds ticket sale rules
type SaleConfig struct {
	// PhonePatterns are the accepted mobile number formats after normalisation
	PhonePatterns []string
}

// CommissionConfig holds commission report settings
type CommissionConfig struct {
	// TrendClamp is reported when the previous period had no sales and the current one has
	TrendClamp float64
	WeekStart  string
}

// PollingConfig holds the sold-numbers poll hint
type PollingConfig struct {
	BaseIntervalMs int
	JitterMs       int
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables and config files.
// A non-empty path points at an explicit config file.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file is not found, we'll use environment variables
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects configurations the service cannot start with
func (c *Config) Validate() error {
	if c.MongoDB.URI == "" {
		return errors.New("MongoDB.URI is required")
	}
	if c.JWT.Secret == "" {
		return errors.New("JWT.Secret is required")
	}
	if len(c.Sale.PhonePatterns) == 0 {
		return errors.New("Sale.PhonePatterns must not be empty")
	}
	if c.Polling.BaseIntervalMs <= 0 || c.Polling.JitterMs < 0 {
		return errors.New("Polling intervals must be positive")
	}
	return nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("Server.Port", "4000")
	v.SetDefault("Server.AllowedHosts", []string{"localhost:3000"})
	v.SetDefault("Server.ReadTimeout", 15*time.Second)
	v.SetDefault("Server.WriteTimeout", 15*time.Second)
	v.SetDefault("MongoDB.URI", "mongodb://localhost:27017/?replicaSet=rs0")
	v.SetDefault("MongoDB.Database", "lottery-backoffice")
	v.SetDefault("MongoDB.Timeout", 10*time.Second)
	v.SetDefault("JWT.Secret", "")
	v.SetDefault("JWT.Issuer", "lottery-backoffice")
	v.SetDefault("Sale.PhonePatterns", []string{`^0\d{9,10}$`, `^\+\d{11,13}$`})
	v.SetDefault("Commission.TrendClamp", 100.0)
	v.SetDefault("Commission.WeekStart", "monday")
	v.SetDefault("Polling.BaseIntervalMs", 4000)
	v.SetDefault("Polling.JitterMs", 1000)
	v.SetDefault("Log.Level", "info")
	v.SetDefault("Log.Format", "json")
}
