package storage

import (
	"context"
	"fmt"

	"github.com/kbukum/chunkscribe/component"
	"github.com/kbukum/chunkscribe/logger"
)

// healthKey is probed to check the backend answers.
const healthKey = ".health"

// Component manages the export sink's lifecycle.
type Component struct {
	storage Storage
	cfg     Config
	log     *logger.Logger
}

// NewComponent creates the export sink component. The backend is built on
// Start.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log.WithComponent("storage")}
}

// Storage returns the backend, or nil before Start or when export is
// disabled.
func (c *Component) Storage() Storage {
	return c.storage
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

func (c *Component) Name() string { return "storage" }

// Start builds the configured backend.
func (c *Component) Start(_ context.Context) error {
	if !c.cfg.Enabled {
		c.log.Info("metadata export is disabled")
		return nil
	}
	s, err := New(c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("storage start: %w", err)
	}
	c.storage = s
	return nil
}

func (c *Component) Stop(_ context.Context) error {
	c.storage = nil
	return nil
}

// Health probes the backend with an Exists call.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	switch {
	case !c.cfg.Enabled:
		h.Message = "disabled"
	case c.storage == nil:
		h.Status, h.Message = component.StatusUnhealthy, "storage not initialized"
	default:
		if _, err := c.storage.Exists(ctx, healthKey); err != nil {
			h.Status, h.Message = component.StatusUnhealthy, fmt.Sprintf("health probe failed: %v", err)
		}
	}
	return h
}

// Describe returns the startup summary line.
func (c *Component) Describe() component.Description {
	details := "disabled"
	if c.cfg.Enabled {
		details = fmt.Sprintf("provider=%s base_path=%s", c.cfg.Provider, c.cfg.BasePath)
	}
	return component.Description{Name: "Metadata export", Type: "storage", Details: details}
}
