// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"log"

	"github.com/spf13/viper"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	SupabaseURL       string `mapstructure:"SUPABASE_URL"`
	SupabaseAnonKey   string `mapstructure:"SUPABASE_ANON_KEY"`
	PageSize          int    `mapstructure:"PAGE_SIZE"`
	RedisURL          string `mapstructure:"REDIS_URL"`
	PerspectiveAPIKey string `mapstructure:"PERSPECTIVE_API_KEY"`
	NewsCacheTTLMin   int    `mapstructure:"NEWS_CACHE_TTL_MINUTES"`
	TracingEnabled    bool   `mapstructure:"TRACING_ENABLED"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() *Config {
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if errors.As(err, &notFoundErr) {
			log.Println("Config file not found; using environment variables and defaults")
		} else {
			log.Fatalf("Error reading config file: %s", err)
		}
	}

	// Set default values
	viper.SetDefault("SUPABASE_URL", "http://localhost:54321")
	viper.SetDefault("SUPABASE_ANON_KEY", "")
	viper.SetDefault("PAGE_SIZE", 20)
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("PERSPECTIVE_API_KEY", "")
	viper.SetDefault("NEWS_CACHE_TTL_MINUTES", 15)
	viper.SetDefault("TRACING_ENABLED", false)

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("Unable to decode config into struct, %v", err)
	}

	return &config
}
