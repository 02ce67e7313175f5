package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Paths    PathsConfig    `mapstructure:"paths"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path           string `mapstructure:"path"`
	SeedCategories bool   `mapstructure:"seed_categories"`
}

// PathsConfig holds the directories the import pipeline and component store use.
type PathsConfig struct {
	Inbound    string `mapstructure:"inbound"`
	Archive    string `mapstructure:"archive"`
	Components string `mapstructure:"components"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host            string   `mapstructure:"host"`
	Port            int      `mapstructure:"port"`
	MaxPortAttempts int      `mapstructure:"max_port_attempts"`
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// DataDir is the default root for database, statements and components.
func DataDir() string {
	return filepath.Join(os.Getenv("HOME"), ".local", "share", "kakeibo")
}

// Load reads configuration from .env, an optional TOML file and the environment.
// Env var overrides use prefix KAKEIBO_.
func Load() (Config, error) {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v, DataDir())

	v.SetConfigType("toml")

	cfgPath := os.Getenv("KAKEIBO_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "kakeibo"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("KAKEIBO")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

func setDefaults(v *viper.Viper, root string) {
	v.SetDefault("database.path", filepath.Join(root, "db", "database.sqlite"))
	v.SetDefault("database.seed_categories", false)
	v.SetDefault("paths.inbound", filepath.Join(root, "csv", "inbound"))
	v.SetDefault("paths.archive", filepath.Join(root, "csv", "archive"))
	v.SetDefault("paths.components", filepath.Join(root, "components"))
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.max_port_attempts", 100)
	v.SetDefault("server.allowed_origins", []string{"tauri://localhost", "http://localhost:1420", "http://localhost"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
}

// EnsureDirs creates the directories the service writes into.
func (c Config) EnsureDirs() error {
	dirs := []string{
		filepath.Dir(c.Database.Path),
		c.Paths.Inbound,
		c.Paths.Archive,
		c.Paths.Components,
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", d, err)
		}
	}
	return nil
}
