package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Data     DataConfig     `json:"data" mapstructure:"data"`
	Registry RegistryConfig `json:"registry" mapstructure:"registry"`
	QC       QCConfig       `json:"qc" mapstructure:"qc"`
	Workers  int            `json:"workers" mapstructure:"workers"`
	Output   OutputConfig   `json:"output" mapstructure:"output"`
	Log      LogConfig      `json:"log" mapstructure:"log"`
}

// DataConfig locates the recordings
type DataConfig struct {
	Root string `json:"root" mapstructure:"root"` // holds Supervised/ and Unsupervised/
}

// RegistryConfig locates the per-subject zone spreadsheet
type RegistryConfig struct {
	Path   string `json:"path" mapstructure:"path"`
	Sheet  string `json:"sheet" mapstructure:"sheet"`
	SnapTo int    `json:"snap_to" mapstructure:"snap_to"`
}

// QCConfig holds session QC limits
type QCConfig struct {
	MaxSessionMinutes int `json:"max_session_minutes" mapstructure:"max_session_minutes"`
	MaxRecordingHours int `json:"max_recording_hours" mapstructure:"max_recording_hours"`
}

// OutputConfig holds report and database destinations
type OutputConfig struct {
	QCCSV      string `json:"qc_csv" mapstructure:"qc_csv"`
	ZoneCSV    string `json:"zone_csv" mapstructure:"zone_csv"`
	ParquetDir string `json:"parquet_dir" mapstructure:"parquet_dir"` // empty disables parquet
	DBPath     string `json:"db_path" mapstructure:"db_path"`
}

// LogConfig holds logging preferences
type LogConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
}

// ErrNoConfig is returned when the config file doesn't exist
var ErrNoConfig = errors.New("config file not found")

// EnvPrefix prefixes environment overrides, e.g. HRQC_DATA_ROOT
const EnvPrefix = "HRQC"

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	dbPath := "results.db"
	if dir, err := GetConfigDir(); err == nil {
		dbPath = filepath.Join(dir, "results.db")
	}

	return Config{
		Registry: RegistryConfig{
			Sheet:  "Sheet1",
			SnapTo: 5,
		},
		QC: QCConfig{
			MaxSessionMinutes: 60,
			MaxRecordingHours: 4,
		},
		Workers: runtime.GOMAXPROCS(0),
		Output: OutputConfig{
			QCCSV:   "qc_out.csv",
			ZoneCSV: "zone_out.csv",
			DBPath:  dbPath,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("data.root", d.Data.Root)
	v.SetDefault("registry.path", d.Registry.Path)
	v.SetDefault("registry.sheet", d.Registry.Sheet)
	v.SetDefault("registry.snap_to", d.Registry.SnapTo)
	v.SetDefault("qc.max_session_minutes", d.QC.MaxSessionMinutes)
	v.SetDefault("qc.max_recording_hours", d.QC.MaxRecordingHours)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("output.qc_csv", d.Output.QCCSV)
	v.SetDefault("output.zone_csv", d.Output.ZoneCSV)
	v.SetDefault("output.parquet_dir", d.Output.ParquetDir)
	v.SetDefault("output.db_path", d.Output.DBPath)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Load resolves the configuration from defaults, the config file, HRQC_*
// environment variables and flags, in increasing priority.
// An empty path reads ~/.hrqc/config.json when it exists. An explicit path
// that does not exist returns ErrNoConfig. flags maps config keys such as
// "data.root" to command-line flags; it may be nil.
func Load(path string, flags map[string]*pflag.Flag) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, flag := range flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("binding flag %s: %w", flag.Name, err)
		}
	}

	explicit := path != ""
	if !explicit {
		var err error
		if path, err = getConfigPath(); err != nil {
			return nil, err
		}
	}

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file: %w", err)
	} else if explicit {
		return nil, ErrNoConfig
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// Save writes the configuration as JSON
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// CreateExample writes an example config file if none exists and returns its path.
// An empty path means ~/.hrqc/config.json.
func CreateExample(path string) (string, error) {
	if path == "" {
		var err error
		if path, err = getConfigPath(); err != nil {
			return "", err
		}
	}

	if _, err := os.Stat(path); err == nil {
		return path, nil // don't overwrite
	}

	example := DefaultConfig()
	example.Data.Root = "/path/to/HR_data"
	example.Registry.Path = "/path/to/zones.xlsx"

	return path, Save(&example, path)
}

// Validate checks if the config has required fields
func (c *Config) Validate() error {
	if c.Data.Root == "" {
		return errors.New("data.root is required - the directory holding Supervised/ and Unsupervised/")
	}
	if c.Registry.Path == "" {
		return errors.New("registry.path is required - the zone spreadsheet (.xlsx)")
	}
	if c.Registry.SnapTo < 1 {
		return fmt.Errorf("registry.snap_to must be at least 1, got %d", c.Registry.SnapTo)
	}
	if c.QC.MaxSessionMinutes <= 0 {
		return fmt.Errorf("qc.max_session_minutes must be positive, got %d", c.QC.MaxSessionMinutes)
	}
	if c.QC.MaxRecordingHours <= 0 {
		return fmt.Errorf("qc.max_recording_hours must be positive, got %d", c.QC.MaxRecordingHours)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be \"text\" or \"json\", got %q", c.Log.Format)
	}

	return nil
}

// getConfigPath returns the path to the config file
func getConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".hrqc"), nil
}
