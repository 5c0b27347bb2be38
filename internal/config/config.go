// Package config loads the RevSense configuration file and builds the
// process logger.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/HerbHall/revsense/internal/mqtt"
	"github.com/HerbHall/revsense/internal/server"
	"github.com/HerbHall/revsense/internal/session"
)

// App is the full process configuration.
type App struct {
	Server    server.Config  `mapstructure:"server"`
	Session   session.Config `mapstructure:"session"`
	MQTT      mqtt.Config    `mapstructure:"mqtt"`
	DataStore DataStore      `mapstructure:"database"`
}

// DataStore locates the preference database.
type DataStore struct {
	Path string `mapstructure:"path"`
}

// Load reads configuration from file and environment variables.
// With an empty configPath it searches for revsense.yaml in the working
// directory, ./configs and /etc/revsense. A missing config file is not
// an error; defaults apply.
func Load(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit_rps", 100)
	v.SetDefault("server.rate_limit_burst", 200)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("database.path", "./data/revsense.db")

	v.SetDefault("session.session_id", "default")
	v.SetDefault("session.analytics.tick_interval", "1s")
	v.SetDefault("session.analytics.max_data_points", 100)
	v.SetDefault("session.analytics.smoothing_alpha", 0.3)
	v.SetDefault("session.analytics.enable_trends", true)
	v.SetDefault("session.analytics.retention", "5m")

	v.SetDefault("session.transport.method", "push")
	v.SetDefault("session.transport.fallback_enabled", true)
	v.SetDefault("session.transport.request_timeout", "10s")
	v.SetDefault("session.transport.retry_delay_base", "1s")
	v.SetDefault("session.transport.max_retries", 5)
	v.SetDefault("session.transport.poll_interval", "2s")
	v.SetDefault("session.transport.long_poll_hold", "35s")
	v.SetDefault("session.transport.long_poll_cycle_delay", "100ms")
	v.SetDefault("session.transport.long_poll_retry_delay", "3s")

	v.SetDefault("mqtt.broker_url", "")
	v.SetDefault("mqtt.client_id", "revsense")
	v.SetDefault("mqtt.topic_prefix", "revsense")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.timeout", "10s")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("revsense")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/revsense")
	}

	// Environment variable support: RV_SERVER_PORT=9090
	v.SetEnvPrefix("RV")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is fine -- use defaults
	}

	return v, nil
}

// Parse unmarshals the loaded viper tree into the App structure.
func Parse(v *viper.Viper) (App, error) {
	app := App{
		Server:  server.DefaultConfig(),
		Session: session.DefaultConfig(),
		MQTT:    mqtt.DefaultConfig(),
	}
	if err := v.Unmarshal(&app); err != nil {
		return App{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return app, nil
}
