package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

var AppFs = afero.NewOsFs()

// Config holds the application configuration
type Config struct {
	ManifestPath  string
	MigrationsDir string
	DatabaseURL   string
	AppLabel      string
	NoInput       bool
}

// LoadConfig loads configuration from various sources
func LoadConfig() (*Config, error) {
	// Find home directory
	home, err := homedir.Dir()
	if err != nil {
		return nil, err
	}

	// Set config file paths
	viper.SetConfigName(".tectonic")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath(home)
	viper.AddConfigPath(filepath.Join(home, ".config", "tectonic"))

	// Set environment variable prefix
	viper.SetEnvPrefix("TECTONIC")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("manifest_path", "schema.yaml")
	viper.SetDefault("migrations_dir", "./migrations")
	viper.SetDefault("app_label", "default")
	viper.SetDefault("no_input", false)

	// Try to read config file (ignore if not found)
	_ = viper.ReadInConfig()

	// Load .env file if it exists
	if _, err := AppFs.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			// Don't fail if .env can't be loaded
		}
	}

	// Load .env.local if it exists (higher priority)
	if _, err := AppFs.Stat(".env.local"); err == nil {
		if err := godotenv.Overload(".env.local"); err != nil {
			// Don't fail if .env.local can't be loaded
		}
	}

	databaseURL := viper.GetString("database_url")
	if env := os.Getenv("DATABASE_URL"); env != "" {
		databaseURL = env
	}

	cfg := &Config{
		ManifestPath:  viper.GetString("manifest_path"),
		MigrationsDir: viper.GetString("migrations_dir"),
		DatabaseURL:   databaseURL,
		AppLabel:      viper.GetString("app_label"),
		NoInput:       viper.GetBool("no_input"),
	}

	return cfg, nil
}

// SaveConfig saves configuration to file
func SaveConfig(cfg *Config) error {
	viper.Set("manifest_path", cfg.ManifestPath)
	viper.Set("migrations_dir", cfg.MigrationsDir)
	viper.Set("app_label", cfg.AppLabel)
	viper.Set("no_input", cfg.NoInput)

	home, err := homedir.Dir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(home, ".config", "tectonic")
	if err := AppFs.MkdirAll(configPath, 0755); err != nil {
		return err
	}

	configFile := filepath.Join(configPath, ".tectonic.yaml")
	return viper.WriteConfigAs(configFile)
}
