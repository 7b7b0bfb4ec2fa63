package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"clipcontext/internal/config"
	"clipcontext/internal/logging"
	"clipcontext/internal/pipeline"
	"clipcontext/internal/procexec"
	"clipcontext/internal/transcribe"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	// runner replaces the media tool runner; nil runs real binaries.
	runner procexec.Runner
	// opener replaces the browser launcher; nil uses the platform opener.
	opener func(url string) error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
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
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = fmt.Errorf("init logger: %w", err)
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) mediaRunner(cfg *config.Config) procexec.Runner {
	if c.runner != nil {
		return c.runner
	}
	return procexec.NewExecRunner(cfg.ToolTimeout())
}

func (c *commandContext) newPipeline(cfg *config.Config, logger *slog.Logger) *pipeline.Pipeline {
	backend := transcribe.NewGeminiBackend(cfg.Transcriber)
	return pipeline.New(cfg, c.mediaRunner(cfg), backend, pipeline.WithLogger(logger))
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
