package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"commissions/internal/admin"
	"commissions/internal/apperr"
	"commissions/internal/catalog"
	"commissions/internal/config"
	"commissions/internal/logging"
	"commissions/internal/pipelinejob"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	store *catalog.Store
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// openStore opens the catalog once per invocation; close releases it.
func (c *commandContext) openStore() (*catalog.Store, error) {
	if c.store != nil {
		return c.store, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	store, err := catalog.Open(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	c.store = store
	return store, nil
}

// adminService wires the catalog to a synchronous pipeline so a mutation
// command returns only after derivatives are regenerated.
func (c *commandContext) adminService() (*admin.Service, error) {
	store, err := c.openStore()
	if err != nil {
		return nil, err
	}
	logger, _ := c.ensureLogger()
	job := pipelinejob.New(c.config, logger)
	return admin.New(store, job, logger), nil
}

func (c *commandContext) close() {
	if c.store != nil {
		_ = c.store.Close()
		c.store = nil
	}
}

// reportResult prints a mutation result and converts failures into a
// non-zero exit.
func (c *commandContext) reportResult(cmd *cobra.Command, result apperr.Result) error {
	if c.jsonOutput() {
		if err := writeJSON(cmd, result); err != nil {
			return err
		}
	} else if !result.Failed() {
		fmt.Fprintln(cmd.OutOrStdout(), result.Message)
	}
	if result.Failed() {
		return errors.New(result.Message)
	}
	return nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
