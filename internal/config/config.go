package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	APIBind string `toml:"api_bind"`
}

// YouTube contains configuration for the broadcast platform client.
type YouTube struct {
	TokenPath       string `toml:"token_path"`
	CredentialsPath string `toml:"credentials_path"`
	DefaultPrivacy  string `toml:"default_privacy"`
	RequestTimeout  int    `toml:"request_timeout"`
}

// OBS contains configuration for the local streaming encoder's control socket.
type OBS struct {
	Address  string `toml:"address"`
	Password string `toml:"password"`
}

// Schedule contains configuration for the scheduling core.
type Schedule struct {
	Timezone          string `toml:"timezone"`
	HeartbeatInterval int    `toml:"heartbeat_interval"`
	WatchdogInterval  int    `toml:"watchdog_interval"`
	WatchdogGrace     int    `toml:"watchdog_grace"`
	ProbeInterval     int    `toml:"probe_interval"`
	CleanupInterval   int    `toml:"cleanup_interval"`
	GoLiveAttempts    int    `toml:"go_live_attempts"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Stagehand.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and API bind address
//   - YouTube: broadcast platform credentials and request defaults
//   - OBS: encoder control-socket address and password
//   - Schedule: timezone plus heartbeat, watchdog, probe, and cleanup cadence
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	YouTube  YouTube  `toml:"youtube"`
	OBS      OBS      `toml:"obs"`
	Schedule Schedule `toml:"schedule"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/stagehand/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("stagehand.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Location resolves the configured schedule timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("resolve timezone %q: %w", c.Schedule.Timezone, err)
	}
	return loc, nil
}

// HeartbeatInterval returns the clock driver pulse cadence.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Schedule.HeartbeatInterval) * time.Second
}

// WatchdogInterval returns the watchdog sampling cadence.
func (c *Config) WatchdogInterval() time.Duration {
	return time.Duration(c.Schedule.WatchdogInterval) * time.Second
}

// WatchdogGrace returns the allowance beyond the expected pulse interval before
// the scheduler is declared stale.
func (c *Config) WatchdogGrace() time.Duration {
	return time.Duration(c.Schedule.WatchdogGrace) * time.Second
}

// ProbeInterval returns the encoder health probe cadence.
func (c *Config) ProbeInterval() time.Duration {
	return time.Duration(c.Schedule.ProbeInterval) * time.Second
}

// CleanupInterval returns the orphan reconciliation cadence. Zero disables the
// periodic sweep (cleanup stays available on demand).
func (c *Config) CleanupInterval() time.Duration {
	return time.Duration(c.Schedule.CleanupInterval) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
