package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"commissions/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The images directory is created; the derivative directory is not.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.ImagesDir = filepath.Join(base, "images")
	cfgVal.Paths.DatabasePath = filepath.Join(base, "data", "commissions.db")
	cfgVal.Paths.LockDir = filepath.Join(base, "lock")
	cfgVal.Pipeline.Workers = 4
	cfgVal.API.Bind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithWorkers overrides the pipeline pool size.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.Workers = n
	}
}

// WithReadOnlyDatabase turns on the writable guard.
func WithReadOnlyDatabase() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Database.Writable = false
	}
}

// WithoutIndex disables derivative index regeneration.
func WithoutIndex() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.WriteIndex = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.ImagesDir)
}

// ImagePath joins name onto the configured images directory.
func ImagePath(cfg *config.Config, name string) string {
	return filepath.Join(cfg.Paths.ImagesDir, name)
}

// WebPPath joins name onto the configured derivative directory.
func WebPPath(cfg *config.Config, name string) string {
	return filepath.Join(cfg.WebPDir(), name)
}

// MustExist fails the test when path is missing.
func MustExist(t testing.TB, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected %s to exist: %v", path, err)
	}
}

// MustNotExist fails the test when path exists.
func MustNotExist(t testing.TB, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Fatalf("expected %s to be absent", path)
	} else if !os.IsNotExist(err) {
		t.Fatalf("stat %s: %v", path, err)
	}
}
