package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `json:"server" mapstructure:"server"`
	Database DatabaseConfig `json:"database" mapstructure:"database"`
	Exchange ExchangeConfig `json:"exchange" mapstructure:"exchange"`
}

type ServerConfig struct {
	Host string `json:"host" mapstructure:"host"`
	Port int    `json:"port" mapstructure:"port"`
}

type DatabaseConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

type ExchangeConfig struct {
	BaseURL string `json:"base_url" mapstructure:"base_url"`
	Origin  string `json:"origin" mapstructure:"origin"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	// Add config paths
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Check for user config directory
	homeDir, err := os.UserHomeDir()
	if err == nil {
		viper.AddConfigPath(filepath.Join(homeDir, ".lawchat"))
	}

	// Set defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.path", "chat_history.db")
	viper.SetDefault("exchange.base_url", "http://localhost:8000")
	viper.SetDefault("exchange.origin", "")

	// Read config
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			cfg := defaultConfig()
			loadEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Load environment variables
	loadEnvOverrides(&cfg)

	return &cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Path: "chat_history.db",
		},
		Exchange: ExchangeConfig{
			BaseURL: "http://localhost:8000",
		},
	}
}

func loadEnvOverrides(cfg *Config) {
	if host := os.Getenv("LAWCHAT_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("LAWCHAT_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if path := os.Getenv("LAWCHAT_DB_PATH"); path != "" {
		cfg.Database.Path = path
	}
	if url := os.Getenv("LAWCHAT_CHAT_URL"); url != "" {
		cfg.Exchange.BaseURL = url
	}
	if origin := os.Getenv("LAWCHAT_CHAT_ORIGIN"); origin != "" {
		cfg.Exchange.Origin = origin
	}
}
