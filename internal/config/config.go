package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Security      SecurityConfig
	Notifications NotificationsConfig
}

type ServerConfig struct {
	Port        string
	Environment string
}

type DatabaseConfig struct {
	Path string
}

type SecurityConfig struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CSPEnabled        bool
	HSTSEnabled       bool
}

type NotificationsConfig struct {
	DesktopEnabled      bool
	RefillCheckInterval time.Duration
}

// Load reads configuration from environment variables, with defaults suitable
// for a local single-user deployment.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("environment", "development")
	v.SetDefault("database_path", "./data/medtrack.db")
	v.SetDefault("rate_limit_requests", 100)
	v.SetDefault("rate_limit_window", "1m")
	v.SetDefault("csp_enabled", true)
	v.SetDefault("hsts_enabled", true)
	v.SetDefault("desktop_notifications", true)
	v.SetDefault("refill_check_interval", "1h")

	rateLimitWindow, err := time.ParseDuration(v.GetString("rate_limit_window"))
	if err != nil {
		rateLimitWindow = time.Minute
	}

	refillInterval, err := time.ParseDuration(v.GetString("refill_check_interval"))
	if err != nil {
		refillInterval = time.Hour
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        v.GetString("port"),
			Environment: v.GetString("environment"),
		},
		Database: DatabaseConfig{
			Path: v.GetString("database_path"),
		},
		Security: SecurityConfig{
			RateLimitRequests: v.GetInt("rate_limit_requests"),
			RateLimitWindow:   rateLimitWindow,
			CSPEnabled:        v.GetBool("csp_enabled"),
			HSTSEnabled:       v.GetBool("hsts_enabled"),
		},
		Notifications: NotificationsConfig{
			DesktopEnabled:      v.GetBool("desktop_notifications"),
			RefillCheckInterval: refillInterval,
		},
	}

	return cfg, nil
}
