package main

import (
	"fmt"

	"github.com/kbukum/chunkscribe/audio"
	"github.com/kbukum/chunkscribe/config"
	"github.com/kbukum/chunkscribe/database"
	"github.com/kbukum/chunkscribe/observability"
	"github.com/kbukum/chunkscribe/pipeline"
	"github.com/kbukum/chunkscribe/recognition"
	"github.com/kbukum/chunkscribe/storage"
	"github.com/kbukum/chunkscribe/version"
)

const serviceName = "chunkscribe"

// AppConfig is the complete chunkscribe configuration.
type AppConfig struct {
	config.ServiceConfig `mapstructure:",squash"`

	Pipeline      pipeline.Config      `mapstructure:"pipeline"`
	Recognition   recognition.Config   `mapstructure:"recognition"`
	FFmpeg        audio.FFmpegConfig   `mapstructure:"ffmpeg"`
	Ledger        database.Config      `mapstructure:"ledger"`
	Export        storage.Config       `mapstructure:"export"`
	Observability observability.Config `mapstructure:"observability"`
}

// defaultConfig is the value config files and env vars are decoded onto.
func defaultConfig() *AppConfig {
	cfg := &AppConfig{Pipeline: pipeline.DefaultConfig()}
	// A decoded list must replace the defaults, not merge into them.
	cfg.Pipeline.Extensions = nil
	cfg.Ledger.AutoMigrate = true
	return cfg
}

// ApplyDefaults fills every section.
func (c *AppConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	if c.Version == "" {
		c.Version = version.Get().Short()
	}
	c.ServiceConfig.ApplyDefaults()
	c.Pipeline.ApplyDefaults()
	c.Recognition.ApplyDefaults()
	c.FFmpeg.ApplyDefaults()
	c.Ledger.ApplyDefaults()
	c.Export.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate checks every section.
func (c *AppConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if err := c.Recognition.Validate(); err != nil {
		return err
	}
	if err := c.Ledger.Validate(); err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	if err := c.Export.Validate(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	return nil
}
