package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// StageFactory produces a fresh Stage instance. Pipelines are assembled from
// factories rather than shared instances so concurrent runs of the same
// pipeline never share stage state.
type StageFactory func() Stage

// Registry maps stage names to factories and pipeline names to ordered stage
// lists. It is an explicit dependency handed to whatever triggers pipelines;
// there is no package-level instance.
type Registry struct {
	mu        sync.RWMutex
	stages    map[string]StageFactory
	pipelines map[string][]string
	cfg       Config
	logger    *slog.Logger
}

func NewRegistry(cfg Config, logger *slog.Logger) *Registry {
	return &Registry{
		stages:    make(map[string]StageFactory),
		pipelines: make(map[string][]string),
		cfg:       cfg.withDefaults(),
		logger:    logger,
	}
}

// RegisterStage adds a stage factory under a unique name.
func (r *Registry) RegisterStage(name string, factory StageFactory) error {
	if name == "" {
		return fmt.Errorf("stage name must not be empty")
	}
	if factory == nil {
		return fmt.Errorf("stage %q: factory must not be nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.stages[name]; exists {
		return fmt.Errorf("stage %q is already registered", name)
	}
	r.stages[name] = factory
	return nil
}

// RegisterPipeline defines a named pipeline as an ordered list of stage
// names. Every referenced stage must already be registered: a dangling name
// fails here, not at run time.
func (r *Registry) RegisterPipeline(name string, stageNames []string) error {
	if name == "" {
		return fmt.Errorf("pipeline name must not be empty")
	}
	if len(stageNames) == 0 {
		return fmt.Errorf("pipeline %q: must reference at least one stage", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.pipelines[name]; exists {
		return fmt.Errorf("pipeline %q is already registered", name)
	}
	for _, sn := range stageNames {
		if _, ok := r.stages[sn]; !ok {
			return fmt.Errorf("pipeline %q references unregistered stage %q (registered: %v)", name, sn, r.stageNamesLocked())
		}
	}
	names := make([]string, len(stageNames))
	copy(names, stageNames)
	r.pipelines[name] = names
	return nil
}

// Build assembles a pipeline with fresh stage instances.
func (r *Registry) Build(name string) (*Pipeline, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stageNames, ok := r.pipelines[name]
	if !ok {
		return nil, fmt.Errorf("unknown pipeline %q (registered: %v)", name, r.pipelineNamesLocked())
	}
	stages := make([]Stage, 0, len(stageNames))
	for _, sn := range stageNames {
		stages = append(stages, r.stages[sn]())
	}
	return New(name, stages, r.cfg, r.logger), nil
}

// Execute builds and runs a registered pipeline in one call.
func (r *Registry) Execute(ctx context.Context, name string, targets []Target, runID string) (*RunContext, error) {
	p, err := r.Build(name)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, targets, runID)
}

func (r *Registry) stageNamesLocked() []string {
	names := make([]string, 0, len(r.stages))
	for n := range r.stages {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) pipelineNamesLocked() []string {
	names := make([]string, 0, len(r.pipelines))
	for n := range r.pipelines {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
