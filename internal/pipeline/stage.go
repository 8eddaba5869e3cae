// Package pipeline implements the staged ingestion engine: a RunContext
// shared across ordered stages, per-item retry and batch helpers, and a
// registry that assembles pipelines from stage factories.
package pipeline

import (
	"fmt"
	"time"

	"context"
)

// Config is the engine-level execution policy handed to every stage.
// Individual stages may apply tighter limits but never looser ones.
type Config struct {
	BatchSize   int
	Concurrency int
	MaxRetries  int
	// StageTimeout bounds one Execute call via context deadline; zero
	// disables the limit.
	StageTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return c
}

// Stage is one unit of work in a pipeline. Implementations must be stateless
// across runs: all run state lives on the RunContext.
type Stage interface {
	Name() string
	// AbortOnError decides whether a failure of this stage aborts the whole
	// run or is recorded and skipped.
	AbortOnError() bool
	Execute(ctx context.Context, rc *RunContext, cfg Config) error
}

// ContextKey names a precondition a stage can require on the run context.
type ContextKey string

const (
	KeyTargets      ContextKey = "targets"
	KeyRawData      ContextKey = "raw_data"
	KeyRepositories ContextKey = "repositories"
)

// ValidateContext fails fast with a descriptive error when a required input
// is missing, so stages never work on half-initialized state.
func ValidateContext(rc *RunContext, required ...ContextKey) error {
	for _, key := range required {
		switch key {
		case KeyTargets:
			if len(rc.Targets) == 0 {
				return fmt.Errorf("context is missing required %q: no ingest targets", key)
			}
		case KeyRawData:
			if len(rc.RawData()) == 0 {
				return fmt.Errorf("context is missing required %q: fetch stage has not run", key)
			}
		case KeyRepositories:
			if len(rc.Repositories()) == 0 {
				return fmt.Errorf("context is missing required %q: transform stage has not run", key)
			}
		default:
			return fmt.Errorf("unknown context requirement %q", key)
		}
	}
	return nil
}
