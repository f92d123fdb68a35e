// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	DiscordToken         string `mapstructure:"DISCORD_BOT_TOKEN"`
	DiscordGuildID       string `mapstructure:"DISCORD_GUILD_ID"`
	DiscordAdminRoleID   string `mapstructure:"DISCORD_ADMIN_ROLE_ID"`
	VettingCategoryID    string `mapstructure:"DISCORD_VETTING_CATEGORY_ID"`
	CommissionCategoryID string `mapstructure:"DISCORD_COMMISSION_CATEGORY_ID"`

	VeyraBaseURL  string `mapstructure:"VEYRA_API_BASE_URL"`
	VeyraUsername string `mapstructure:"VEYRA_API_USERNAME"`
	VeyraPassword string `mapstructure:"VEYRA_API_PASSWORD"`

	DataDir       string `mapstructure:"DATA_DIR"`
	StorageDriver string `mapstructure:"STORAGE_DRIVER"`
	StorageDSN    string `mapstructure:"STORAGE_DSN"`

	RedisURL                string `mapstructure:"REDIS_URL"`
	VerificationCacheTTLMin int    `mapstructure:"VERIFICATION_CACHE_TTL_MINUTES"`

	VettingTimeoutDays int `mapstructure:"VETTING_TIMEOUT_DAYS"`

	OpsAddr              string `mapstructure:"OPS_ADDR"`
	JWTSecret            string `mapstructure:"JWT_SECRET"`
	OpsAdminUser         string `mapstructure:"OPS_ADMIN_USER"`
	OpsAdminPasswordHash string `mapstructure:"OPS_ADMIN_PASSWORD_HASH"`

	Env string `mapstructure:"APP_ENV"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if errors.As(err, &notFoundErr) {
			log.Println("Config file not found; using environment variables and defaults")
		} else {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Set default values
	viper.SetDefault("DATA_DIR", "./data")
	viper.SetDefault("STORAGE_DRIVER", "file")
	viper.SetDefault("STORAGE_DSN", "")
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("VERIFICATION_CACHE_TTL_MINUTES", 10)
	viper.SetDefault("VETTING_TIMEOUT_DAYS", 7)
	viper.SetDefault("OPS_ADDR", "")
	viper.SetDefault("OPS_ADMIN_USER", "admin")
	viper.SetDefault("APP_ENV", "development")

	// Viper only honors AutomaticEnv for keys it has seen; bind the
	// required secrets explicitly since they have no defaults.
	for _, key := range []string{
		"DISCORD_BOT_TOKEN", "DISCORD_GUILD_ID", "DISCORD_ADMIN_ROLE_ID",
		"DISCORD_VETTING_CATEGORY_ID", "DISCORD_COMMISSION_CATEGORY_ID",
		"VEYRA_API_BASE_URL", "VEYRA_API_USERNAME", "VEYRA_API_PASSWORD",
		"JWT_SECRET", "OPS_ADMIN_PASSWORD_HASH",
	} {
		_ = viper.BindEnv(key)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate ensures that required configuration values are present.
func (c *Config) Validate() error {
	required := map[string]string{
		"DISCORD_BOT_TOKEN":              c.DiscordToken,
		"DISCORD_GUILD_ID":               c.DiscordGuildID,
		"DISCORD_ADMIN_ROLE_ID":          c.DiscordAdminRoleID,
		"DISCORD_VETTING_CATEGORY_ID":    c.VettingCategoryID,
		"DISCORD_COMMISSION_CATEGORY_ID": c.CommissionCategoryID,
		"VEYRA_API_BASE_URL":             c.VeyraBaseURL,
		"VEYRA_API_USERNAME":             c.VeyraUsername,
		"VEYRA_API_PASSWORD":             c.VeyraPassword,
	}

	var missing []string
	for name, value := range required {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	switch c.StorageDriver {
	case "file":
	case "sqlite", "postgres":
		if c.StorageDSN == "" {
			return fmt.Errorf("STORAGE_DSN is required when STORAGE_DRIVER is %q", c.StorageDriver)
		}
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.StorageDriver)
	}

	// The ops server is opt-in, but once enabled it must be able to
	// authenticate admins.
	if c.OpsAddr != "" {
		if c.JWTSecret == "" {
			return errors.New("JWT_SECRET is required when OPS_ADDR is set")
		}
		if c.OpsAdminPasswordHash == "" {
			return errors.New("OPS_ADMIN_PASSWORD_HASH is required when OPS_ADDR is set")
		}
	}

	return nil
}
