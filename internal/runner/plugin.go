package runner

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"growthops/internal/models"
)

// PluginResult is the outcome of one plugin's logic. A runner may report
// failure either by returning an error or by leaving Success false.
type PluginResult struct {
	Success  bool
	Output   map[string]any
	Error    string
	XPEarned int
	Duration time.Duration
}

// PluginRunner executes the logic behind a plugin.
type PluginRunner interface {
	Execute(ctx context.Context, plugin models.Plugin, options map[string]any) (PluginResult, error)
}

// RunnerFunc adapts a function to PluginRunner.
type RunnerFunc func(ctx context.Context, plugin models.Plugin, options map[string]any) (PluginResult, error)

func (f RunnerFunc) Execute(ctx context.Context, plugin models.Plugin, options map[string]any) (PluginResult, error) {
	return f(ctx, plugin, options)
}

// Registry resolves a runner by plugin id, then metadata.category, then the
// fallback.
type Registry struct {
	mu         sync.RWMutex
	byID       map[uuid.UUID]PluginRunner
	byCategory map[string]PluginRunner
	fallback   PluginRunner
}

func NewRegistry(fallback PluginRunner) *Registry {
	return &Registry{
		byID:       map[uuid.UUID]PluginRunner{},
		byCategory: map[string]PluginRunner{},
		fallback:   fallback,
	}
}

func (r *Registry) RegisterPlugin(id uuid.UUID, runner PluginRunner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[id] = runner
}

func (r *Registry) RegisterCategory(category string, runner PluginRunner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byCategory[normalizeCategory(category)] = runner
}

// Resolve never returns nil while a fallback is set.
func (r *Registry) Resolve(plugin models.Plugin) PluginRunner {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if pr, ok := r.byID[plugin.ID]; ok {
		return pr
	}
	if c := normalizeCategory(plugin.ParsedMetadata().Category); c != "" {
		if pr, ok := r.byCategory[c]; ok {
			return pr
		}
	}
	return r.fallback
}

func normalizeCategory(c string) string {
	return strings.ToLower(strings.TrimSpace(c))
}

// SimulatedRunner always succeeds and awards metadata.xp_reward, or DefaultXP
// when the plugin does not declare one.
type SimulatedRunner struct {
	DefaultXP int
}

func (s SimulatedRunner) Execute(ctx context.Context, plugin models.Plugin, options map[string]any) (PluginResult, error) {
	start := time.Now()
	xp := s.DefaultXP
	if md := plugin.ParsedMetadata(); md.XPReward != nil && *md.XPReward >= 0 {
		xp = *md.XPReward
	}
	return PluginResult{
		Success: true,
		Output: map[string]any{
			"message":   fmt.Sprintf("Plugin %s executed successfully", plugin.Name),
			"simulated": true,
		},
		XPEarned: xp,
		Duration: time.Since(start),
	}, nil
}
