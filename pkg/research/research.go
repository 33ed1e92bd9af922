// Package research provides the public API for embedding the research
// pipeline. This is the stable API for external consumers.
package research

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mwrenn/research-pipeline/internal/config"
	"github.com/mwrenn/research-pipeline/internal/domain"
	"github.com/mwrenn/research-pipeline/internal/pipeline"
	"github.com/mwrenn/research-pipeline/internal/stages/collect"
	"github.com/mwrenn/research-pipeline/internal/stages/render"
	"github.com/mwrenn/research-pipeline/internal/stages/synthesize"
	"github.com/mwrenn/research-pipeline/internal/stages/verify"
	"github.com/mwrenn/research-pipeline/internal/storage"
	"github.com/mwrenn/research-pipeline/internal/storage/memory"
	"github.com/mwrenn/research-pipeline/internal/storage/sqlite"
)

// Engine wires the stage capabilities, registry, executor, and run store
// into a ready-to-use pipeline.
type Engine struct {
	orch   *pipeline.Orchestrator
	store  storage.RunStore
	logger *slog.Logger

	// overrides applied before assembly
	caps *pipeline.Capabilities
}

// Option customizes engine assembly.
type Option func(*Engine)

// WithLogger sets the engine logger; slog.Default is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithCapabilities replaces the built-in stage capabilities, e.g. to point a
// stage at a webhook-hosted implementation.
func WithCapabilities(caps pipeline.Capabilities) Option {
	return func(e *Engine) { e.caps = &caps }
}

// New assembles an engine from configuration.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	e := &Engine{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}

	store, err := newStore(cfg.Storage)
	if err != nil {
		return nil, err
	}
	e.store = store

	caps, err := e.buildCapabilities(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	timeouts, err := cfg.Pipeline.Timeouts.StageTimeouts()
	if err != nil {
		store.Close()
		return nil, err
	}
	regOpts := make([]pipeline.RegistryOption, 0, len(timeouts))
	for stage, d := range timeouts {
		regOpts = append(regOpts, pipeline.WithStageTimeout(stage, d))
	}

	registry, err := pipeline.NewRegistry(caps, regOpts...)
	if err != nil {
		store.Close()
		return nil, err
	}

	var exec pipeline.StageExecutor = pipeline.NewExecutor(
		pipeline.WithExecutorLogger(e.logger),
	)
	if cfg.Pipeline.Retry.Attempts > 1 {
		backoff, err := cfg.Pipeline.Retry.BackoffDuration()
		if err != nil {
			store.Close()
			return nil, err
		}
		exec = pipeline.NewRetryExecutor(exec, cfg.Pipeline.Retry.Attempts, backoff, e.logger)
	}

	e.orch = pipeline.NewOrchestrator(registry,
		pipeline.WithExecutor(exec),
		pipeline.WithRunStore(store),
		pipeline.WithLogger(e.logger),
	)
	return e, nil
}

// Research executes one pipeline run for the request.
func (e *Engine) Research(ctx context.Context, req domain.ResearchRequest) (*domain.Run, error) {
	return e.orch.Run(ctx, req)
}

// Run implements the server.Runner interface.
func (e *Engine) Run(ctx context.Context, req domain.ResearchRequest) (*domain.Run, error) {
	return e.orch.Run(ctx, req)
}

// Store exposes the run store for read access.
func (e *Engine) Store() storage.RunStore {
	return e.store
}

// Close releases the engine's resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

func (e *Engine) buildCapabilities(cfg *config.Config) (pipeline.Capabilities, error) {
	if e.caps != nil {
		return *e.caps, nil
	}

	synth, err := synthesize.New(synthesize.WithLogger(e.logger))
	if err != nil {
		return pipeline.Capabilities{}, fmt.Errorf("build synthesize capability: %w", err)
	}

	return pipeline.Capabilities{
		Collect: collect.New(
			collect.WithFanoutLimit(cfg.Collect.FanoutLimit),
			collect.WithLogger(e.logger),
		),
		Verify:     verify.New(verify.WithLogger(e.logger)),
		Synthesize: synth,
		Render:     render.New(cfg.Output.Dir, render.WithLogger(e.logger)),
	}, nil
}

func newStore(cfg config.StorageConfig) (storage.RunStore, error) {
	switch cfg.Type {
	case "", "memory":
		return memory.New(), nil
	case "sqlite":
		return sqlite.New(cfg.SQLite.Path)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
