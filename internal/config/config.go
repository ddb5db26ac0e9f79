package config

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"

	"github.com/spf13/viper"
)

type Config struct {
	LogLevel      string `mapstructure:"log_level"`
	LogFormat     string `mapstructure:"log_format"`
	LogFile       string `mapstructure:"log_file"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups"`

	// PipePath is the IPC endpoint: a named pipe on Windows, a unix socket elsewhere.
	PipePath     string `mapstructure:"pipe_path"`
	ProfilesFile string `mapstructure:"profiles_file"`

	PollIntervalSeconds    int  `mapstructure:"poll_interval_seconds"`
	VerifyTopology         bool `mapstructure:"verify_topology"`
	FallbackToFirstDisplay bool `mapstructure:"fallback_to_first_display"`
	MaxConnections         int  `mapstructure:"max_connections"`
}

func Default() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		LogMaxSizeMB:        10,
		LogMaxBackups:       3,
		PipePath:            DefaultPipePath(),
		ProfilesFile:        filepath.Join(Dir(), "profiles.yaml"),
		PollIntervalSeconds: 3,
		VerifyTopology:      true,
		MaxConnections:      8,
	}
}

func Load(cfgFile string) (*Config, error) {
	cfg := Default()
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("dhk")
		v.SetConfigType("yaml")
		v.AddConfigPath(Dir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("DHK")
	v.AutomaticEnv()
	bindDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// bindDefaults registers every key so AutomaticEnv can resolve DHK_* variables
// during Unmarshal even when no config file mentions the key.
func bindDefaults(v *viper.Viper, cfg *Config) {
	for k, val := range settings(cfg) {
		v.SetDefault(k, val)
	}
}

// settings maps each dhk.yaml key to its value in cfg.
func settings(cfg *Config) map[string]any {
	return map[string]any{
		"log_level":                 cfg.LogLevel,
		"log_format":                cfg.LogFormat,
		"log_file":                  cfg.LogFile,
		"log_max_size_mb":           cfg.LogMaxSizeMB,
		"log_max_backups":           cfg.LogMaxBackups,
		"pipe_path":                 cfg.PipePath,
		"profiles_file":             cfg.ProfilesFile,
		"poll_interval_seconds":     cfg.PollIntervalSeconds,
		"verify_topology":           cfg.VerifyTopology,
		"fallback_to_first_display": cfg.FallbackToFirstDisplay,
		"max_connections":           cfg.MaxConnections,
	}
}

// Keys lists the settings dhk.yaml accepts, sorted.
func Keys() []string {
	return slices.Sorted(maps.Keys(settings(Default())))
}

// Path returns cfgFile, or dhk.yaml in Dir when cfgFile is empty.
func Path(cfgFile string) string {
	if cfgFile != "" {
		return cfgFile
	}
	return filepath.Join(Dir(), "dhk.yaml")
}

func Save(cfg *Config) error {
	return SaveTo(cfg, "")
}

func SaveTo(cfg *Config, cfgFile string) error {
	v := viper.New()
	for k, val := range settings(cfg) {
		v.Set(k, val)
	}

	cfgPath := Path(cfgFile)
	if dir := filepath.Dir(cfgPath); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return err
		}
	}
	return v.WriteConfigAs(cfgPath)
}

// Update sets key to value in the config file at path and writes it back.
// A missing file starts from the defaults. Environment overrides are not
// read, so they never end up in the file. Nothing is written when the value
// does not parse or leaves the config invalid.
func Update(path, key, value string) (*Config, error) {
	if !slices.Contains(Keys(), key) {
		return nil, fmt.Errorf("unknown config key %q", key)
	}

	cfg := Default()
	v := viper.New()
	v.SetConfigFile(path)
	bindDefaults(v, cfg)
	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	v.Set(key, value)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	if result := cfg.ValidateTiered(); result.HasFatals() {
		return nil, result.Err()
	}
	if err := SaveTo(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Dir is the per-user configuration directory.
func Dir() string {
	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "DisplayHotKeys")
		}
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "dhk")
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "dhk")
}

// DefaultPipePath is per user: the pipe namespace and the temp directory are
// shared by every account on the machine.
func DefaultPipePath() string {
	suffix := userSuffix()
	if runtime.GOOS == "windows" {
		return `\\.\pipe\dhk-display-` + suffix
	}
	return filepath.Join(os.TempDir(), "dhk-display-"+suffix+".sock")
}

// userSuffix is the uid, or the SID on Windows.
func userSuffix() string {
	if cu, err := user.Current(); err == nil && cu.Uid != "" {
		return cu.Uid
	}
	return strconv.Itoa(os.Getuid())
}
