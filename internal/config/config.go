package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains filesystem locations for source images and the database.
type Paths struct {
	ImagesDir    string `toml:"images_dir"`
	WebPSubdir   string `toml:"webp_subdir"`
	DatabasePath string `toml:"database_path"`
	LockDir      string `toml:"lock_dir"`
}

// Pipeline contains settings for the image derivation pipeline.
type Pipeline struct {
	JPEGQuality      int    `toml:"jpeg_quality"`
	WebPQuality      int    `toml:"webp_quality"`
	Workers          int    `toml:"workers"` // 0 means one worker per CPU
	PreserveMetadata bool   `toml:"preserve_metadata"`
	WriteIndex       bool   `toml:"write_index"`
	IndexFileName    string `toml:"index_file_name"`
}

// Database contains SQLite connection settings.
type Database struct {
	BusyTimeoutMS int  `toml:"busy_timeout_ms"`
	Writable      bool `toml:"writable"`
}

// API contains settings for the admin JSON API.
type API struct {
	Bind    string `toml:"bind"`
	Metrics bool   `toml:"metrics"`
	// RateLimit caps mutating requests per second across all clients; 0 disables it.
	RateLimit float64 `toml:"rate_limit"`
	RateBurst int     `toml:"rate_burst"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values.
//
// Configuration sections by subsystem:
//   - Paths: source image tree, derivative subdirectory, database file
//   - Pipeline: encoder qualities, worker pool size, index regeneration
//   - Database: busy timeout and the writable guard
//   - API: admin API bind address and metrics exposure
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Pipeline Pipeline `toml:"pipeline"`
	Database Database `toml:"database"`
	API      API      `toml:"api"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/commissions/config.toml")
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
		info, err := os.Stat(expanded)
		if err != nil {
			if os.IsNotExist(err) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config path %q is a directory", expanded)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("commissions.toml")
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

// WebPDir returns the directory holding delivery derivatives.
func (c *Config) WebPDir() string {
	return filepath.Join(c.Paths.ImagesDir, c.Paths.WebPSubdir)
}

// PipelineLockPath returns the lock file that serializes pipeline runs.
func (c *Config) PipelineLockPath() string {
	dir := c.Paths.LockDir
	if strings.TrimSpace(dir) == "" {
		dir = c.Paths.ImagesDir
	}
	return filepath.Join(dir, ".pipeline.lock")
}

// WorkerCount resolves the configured pool size, falling back to the CPU count.
func (c *Config) WorkerCount() int {
	if c.Pipeline.Workers > 0 {
		return c.Pipeline.Workers
	}
	return runtime.NumCPU()
}

// EnsureDirectories creates the directories the pipeline and store write into.
// The derivative directory is created by the pipeline itself on every run.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.ImagesDir, filepath.Dir(c.Paths.DatabasePath)}
	if strings.TrimSpace(c.Paths.LockDir) != "" {
		dirs = append(dirs, c.Paths.LockDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
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
