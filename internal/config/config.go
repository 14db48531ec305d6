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
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Host contains configuration for reaching the editing host through its
// scripting bridge.
type Host struct {
	BridgeAddress string `toml:"bridge_address"`
	BridgeNetwork string `toml:"bridge_network"`
	// APIGeneration selects the scripting method naming: "auto", "native" or "snake".
	APIGeneration string `toml:"api_generation"`
	// Executable is launched by the ensure-project endpoint when the bridge is
	// not reachable. Empty disables launching.
	Executable          string `toml:"executable"`
	ProjectName         string `toml:"project_name"`
	InitTimeoutMillis   int    `toml:"init_timeout_ms"`
	OpTimeoutMillis     int    `toml:"op_timeout_ms"`
	CallTimeoutSeconds  int    `toml:"call_timeout_seconds"`
	ReadyTimeoutSeconds int    `toml:"ready_timeout_seconds"`
	ReconcileAttempts   int    `toml:"reconcile_attempts"`
}

// Render contains defaults applied to every pipeline run.
type Render struct {
	DefaultPreset      string `toml:"default_preset"`
	OutputDir          string `toml:"output_dir"`
	BinPrefix          string `toml:"bin_prefix"`
	BinParent          string `toml:"bin_parent"`
	TimelinePrefix     string `toml:"timeline_prefix"`
	UniqueFilename     bool   `toml:"unique_filename"`
	PollIntervalMillis int    `toml:"poll_interval_ms"`
}

// Ingest contains configuration for source media discovery.
type Ingest struct {
	Extensions    []string `toml:"extensions"`
	Recursive     bool     `toml:"recursive"`
	IncludeStills bool     `toml:"include_stills"`
}

// Watch contains configuration for the watch-folder trigger.
type Watch struct {
	Enabled         bool   `toml:"enabled"`
	SourceDir       string `toml:"source_dir"`
	OutputDir       string `toml:"output_dir"`
	Preset          string `toml:"preset"`
	Recursive       bool   `toml:"recursive"`
	DebounceSeconds int    `toml:"debounce_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Telemetry contains configuration for pipeline tracing.
type Telemetry struct {
	Enabled bool `toml:"enabled"`
	// Output is a file path receiving spans; empty writes to stdout.
	Output string `toml:"output"`
}

// Config encapsulates all configuration values for MediaSolver.
//
// Configuration sections by subsystem:
//   - Paths: state/log directories and API bind address
//   - Host: scripting bridge address, API generation, call timeouts
//   - Render: preset, output and naming defaults for pipeline runs
//   - Ingest: media discovery rules
//   - Watch: watch-folder trigger
//   - Logging: log format, level, and retention
//   - Telemetry: stage tracing
type Config struct {
	Paths     Paths     `toml:"paths"`
	Host      Host      `toml:"host"`
	Render    Render    `toml:"render"`
	Ingest    Ingest    `toml:"ingest"`
	Watch     Watch     `toml:"watch"`
	Logging   Logging   `toml:"logging"`
	Telemetry Telemetry `toml:"telemetry"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
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
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
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

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mediasolver.toml")
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
// The render output directory is created best-effort since it may live on
// storage that is mounted later.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Render.OutputDir) != "" {
		_ = os.MkdirAll(c.Render.OutputDir, 0o755)
	}
	return nil
}

// HistoryPath is the sqlite database recording past pipeline runs.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath is the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "mediasolverd.lock")
}

// PIDPath is the file recording the running daemon's process id.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.StateDir, "mediasolverd.pid")
}

// InitTimeout bounds construction of a host session.
func (c *Config) InitTimeout() time.Duration {
	return time.Duration(c.Host.InitTimeoutMillis) * time.Millisecond
}

// OpTimeout bounds each reconciliation probe into the host.
func (c *Config) OpTimeout() time.Duration {
	return time.Duration(c.Host.OpTimeoutMillis) * time.Millisecond
}

// CallTimeout bounds each pipeline call into the host (imports can be slow).
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.Host.CallTimeoutSeconds) * time.Second
}

// ReadyTimeout bounds how long a freshly launched host may take to expose its API.
func (c *Config) ReadyTimeout() time.Duration {
	return time.Duration(c.Host.ReadyTimeoutSeconds) * time.Second
}

// PollInterval is the render status polling period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Render.PollIntervalMillis) * time.Millisecond
}

// WatchDebounce is the quiet period after the last file event before a watch run starts.
func (c *Config) WatchDebounce() time.Duration {
	return time.Duration(c.Watch.DebounceSeconds) * time.Second
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
