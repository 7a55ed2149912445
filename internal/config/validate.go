package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.ImagesDir) == "" {
		return errors.New("paths.images_dir must be set")
	}
	if strings.TrimSpace(c.Paths.DatabasePath) == "" {
		return errors.New("paths.database_path must be set")
	}
	if strings.ContainsAny(c.Paths.WebPSubdir, `/\`) || c.Paths.WebPSubdir == "." || c.Paths.WebPSubdir == ".." {
		return fmt.Errorf("paths.webp_subdir must be a single directory name, got %q", c.Paths.WebPSubdir)
	}
	if filepath.Clean(c.Paths.DatabasePath) == filepath.Clean(c.Paths.ImagesDir) {
		return errors.New("paths.database_path must not point at paths.images_dir")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.JPEGQuality < 1 || c.Pipeline.JPEGQuality > 100 {
		return errors.New("pipeline.jpeg_quality must be between 1 and 100")
	}
	if c.Pipeline.WebPQuality < 1 || c.Pipeline.WebPQuality > 100 {
		return errors.New("pipeline.webp_quality must be between 1 and 100")
	}
	if c.Pipeline.Workers < 0 {
		return errors.New("pipeline.workers must be zero (auto) or positive")
	}
	if strings.ContainsAny(c.Pipeline.IndexFileName, `/\`) {
		return fmt.Errorf("pipeline.index_file_name must be a bare file name, got %q", c.Pipeline.IndexFileName)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.BusyTimeoutMS <= 0 {
		return errors.New("database.busy_timeout_ms must be positive")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.RateLimit < 0 {
		return errors.New("api.rate_limit must be zero (disabled) or positive")
	}
	if c.API.RateLimit > 0 && c.API.RateBurst < 1 {
		return errors.New("api.rate_burst must be at least 1 when api.rate_limit is set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
