package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/kbukum/chunkscribe/component"
)

// InfrastructureInfo describes one started component.
type InfrastructureInfo struct {
	Name    string
	Type    string // "database", "storage", "telemetry"
	Status  string
	Details string
	Healthy bool
}

// Summary prints what the application started with.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	infrastructure  []InfrastructureInfo
	out             io.Writer
}

// NewSummary creates a summary that prints to out, or stderr when out is nil.
func NewSummary(serviceName, version string, out io.Writer) *Summary {
	if out == nil {
		out = os.Stderr
	}
	return &Summary{
		serviceName:    serviceName,
		version:        version,
		infrastructure: make([]InfrastructureInfo, 0),
		out:            out,
	}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// TrackInfrastructure adds a component line to the summary.
func (s *Summary) TrackInfrastructure(name, componentType, status, details string, healthy bool) {
	s.infrastructure = append(s.infrastructure, InfrastructureInfo{
		Name:    name,
		Type:    componentType,
		Status:  status,
		Details: details,
		Healthy: healthy,
	})
}

// Infrastructure returns the tracked components.
func (s *Summary) Infrastructure() []InfrastructureInfo {
	return s.infrastructure
}

// CollectFromRegistry replaces the tracked infrastructure with the
// registry's describable components and their current health.
func (s *Summary) CollectFromRegistry(registry *component.Registry) {
	if registry == nil {
		return
	}
	s.infrastructure = s.infrastructure[:0]
	for _, c := range registry.All() {
		d, ok := c.(component.Describable)
		if !ok {
			continue
		}
		desc := d.Describe()
		name := desc.Name
		if name == "" {
			name = c.Name()
		}
		h := c.Health(context.Background())
		s.TrackInfrastructure(name, desc.Type, string(h.Status), desc.Details, h.Status == component.StatusHealthy)
	}
}

// DisplaySummary prints the header, the tracked infrastructure and live
// health from registry.
func (s *Summary) DisplaySummary(ctx context.Context, registry *component.Registry) {
	w := s.out
	fmt.Fprintf(w, "\n%s %s ready in %.2fs\n", s.serviceName, s.version, s.startupDuration.Seconds())

	if len(s.infrastructure) > 0 {
		fmt.Fprintf(w, "\nInfrastructure\n")
		for i, inf := range s.infrastructure {
			fmt.Fprintf(w, "   %s %s %s [%s]: %s\n",
				treePrefix(i, len(s.infrastructure)), statusIcon(inf.Status, inf.Healthy), inf.Name, inf.Type, inf.Details)
		}
	}

	if registry != nil {
		results := registry.HealthAll(ctx)
		if len(results) > 0 {
			fmt.Fprintf(w, "\nHealth\n")
			for i, h := range results {
				msg := ""
				if h.Message != "" {
					msg = " (" + h.Message + ")"
				}
				fmt.Fprintf(w, "   %s %s %s: %s%s\n",
					treePrefix(i, len(results)), healthStatusIcon(h.Status), h.Name, strings.ToLower(string(h.Status)), msg)
			}
		}
	}
	fmt.Fprintln(w)
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func statusIcon(status string, healthy bool) string {
	if !healthy {
		return "✗"
	}
	switch status {
	case "healthy", "active", "connected":
		return "✓"
	case "disabled":
		return "-"
	default:
		return "?"
	}
}

func healthStatusIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✓"
	case component.StatusDegraded:
		return "!"
	case component.StatusUnhealthy:
		return "✗"
	default:
		return "?"
	}
}
