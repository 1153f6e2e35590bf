// Package conf loads and validates the application configuration.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// LogSettings holds the file-logging configuration.
type LogSettings struct {
	Enabled bool   `yaml:"enabled"` // true to enable file logging
	Path    string `yaml:"path"`    // path to log file
}

// MainSettings holds the top-level application settings.
type MainSettings struct {
	Name string      `yaml:"name"` // name of this node, used in logs
	Log  LogSettings `yaml:"log"`  // file logging settings
}

// FineSettings holds the constants used by fine derivation.
type FineSettings struct {
	DailyRate      float64 `yaml:"dailyrate"`      // per-day overdue charge
	LostBookAmount float64 `yaml:"lostbookamount"` // flat charge for a lost book
	LoanPeriodDays int     `yaml:"loanperioddays"` // default loan period for missing due dates
}

// MigrationSettings holds the legacy-import configuration surface.
type MigrationSettings struct {
	BatchSize        int               `yaml:"batchsize"`        // records per page during import
	ImportHistorical bool              `yaml:"importhistorical"` // import returned/historical borrowings
	ConflictStrategy string            `yaml:"conflictstrategy"` // skip, overwrite or merge
	Entities         map[string]bool   `yaml:"entities"`         // entity types to import
	ClassAssignments map[string]string `yaml:"classassignments"` // admission year -> class name
	DefaultClass     string            `yaml:"defaultclass"`     // class used when no assignment matches
	Fines            FineSettings      `yaml:"fines"`
}

// SQLiteSettings holds the SQLite target store configuration.
type SQLiteSettings struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MySQLSettings holds the MySQL target store configuration.
type MySQLSettings struct {
	Enabled  bool   `yaml:"enabled"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
}

// OutputSettings selects and configures the target store backend.
type OutputSettings struct {
	SQLite SQLiteSettings `yaml:"sqlite"`
	MySQL  MySQLSettings  `yaml:"mysql"`
}

// Settings is the root configuration object. The migration engine consumes
// it as an opaque value; loading is the CLI's concern.
type Settings struct {
	Debug     bool              `yaml:"debug"` // true to enable debug logging
	Main      MainSettings      `yaml:"main"`
	Migration MigrationSettings `yaml:"migration"`
	Output    OutputSettings    `yaml:"output"`
}

// Conflict strategy tokens. Only skip is implemented by the importers;
// overwrite and merge are declared configuration values treated as skip.
const (
	ConflictSkip      = "skip"
	ConflictOverwrite = "overwrite"
	ConflictMerge     = "merge"
)

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into a new
// Settings instance and stores it as the package-level instance.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	viper.SetEnvPrefix("KITABU")
	viper.AutomaticEnv()

	// Set default values for each configuration parameter,
	// function defined in defaults.go
	setDefaultConfig()

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found, create config with defaults
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes a config file populated with the default values
// to the first default config path and reads it back in.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	defaults := &Settings{}
	if err := viper.Unmarshal(defaults); err != nil {
		return fmt.Errorf("error unmarshaling defaults: %w", err)
	}
	if err := SaveYAMLConfig(configPath, defaults); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	fmt.Println("Created default config file at:", configPath)
	return viper.ReadInConfig()
}

// GetDefaultConfigPaths returns the config file search paths in priority
// order: current directory first, then the user config directory.
func GetDefaultConfigPaths() ([]string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("error resolving user config directory: %w", err)
	}
	return []string{".", filepath.Join(configDir, "kitabu")}, nil
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings instance, loading it if necessary.
func Setting() *Settings {
	if GetSettings() == nil {
		if _, err := Load(); err != nil {
			panic(err)
		}
	}
	return GetSettings()
}
