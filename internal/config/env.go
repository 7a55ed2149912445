package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// envOverrides lists the settings that may be supplied through the
// environment. Set variables win over the config file.
type envOverrides struct {
	ImagesDir    string `env:"COMMISSIONS_IMAGES_DIR"`
	DatabasePath string `env:"COMMISSIONS_DB_PATH"`
	APIBind      string `env:"COMMISSIONS_API_BIND"`
	LogLevel     string `env:"COMMISSIONS_LOG_LEVEL"`
	LogFormat    string `env:"COMMISSIONS_LOG_FORMAT"`
	Workers      *int   `env:"COMMISSIONS_WORKERS"`
	Writable     *bool  `env:"COMMISSIONS_DB_WRITABLE"`
}

func (c *Config) applyEnv() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	setIfPresent(&c.Paths.ImagesDir, o.ImagesDir)
	setIfPresent(&c.Paths.DatabasePath, o.DatabasePath)
	setIfPresent(&c.API.Bind, o.APIBind)
	setIfPresent(&c.Logging.Level, o.LogLevel)
	setIfPresent(&c.Logging.Format, o.LogFormat)
	if o.Workers != nil {
		c.Pipeline.Workers = *o.Workers
	}
	if o.Writable != nil {
		c.Database.Writable = *o.Writable
	}
	return nil
}

func setIfPresent(dst *string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*dst = value
	}
}
