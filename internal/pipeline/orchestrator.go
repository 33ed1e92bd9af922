package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mwrenn/research-pipeline/internal/domain"
	"github.com/mwrenn/research-pipeline/internal/storage"
)

// Orchestrator drives the stage registry in order, deciding per stage whether
// to continue, degrade, or abort. It holds no per-run mutable state: every
// invocation of Run builds an isolated Context and Run, so concurrent runs
// against one Orchestrator never observe each other.
type Orchestrator struct {
	registry *Registry
	exec     StageExecutor
	store    storage.RunStore
	logger   *slog.Logger
	tracer   trace.Tracer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithExecutor replaces the default stage executor, e.g. with a
// RetryExecutor.
func WithExecutor(exec StageExecutor) Option {
	return func(o *Orchestrator) { o.exec = exec }
}

// WithRunStore persists finished runs to the given store.
func WithRunStore(store storage.RunStore) Option {
	return func(o *Orchestrator) { o.store = store }
}

// WithLogger sets the orchestrator's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithTracer sets the orchestrator's tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = tracer }
}

// NewOrchestrator creates an orchestrator over the given registry.
func NewOrchestrator(registry *Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry: registry,
		logger:   slog.Default(),
		tracer:   otel.Tracer("research-pipeline/orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.exec == nil {
		o.exec = NewExecutor(WithExecutorLogger(o.logger), WithExecutorTracer(o.tracer))
	}
	return o
}

// Run executes the pipeline for one request. It always returns a Run, even
// under total failure; the returned error is non-nil only when the request
// is rejected before any stage executes, and the Run's trace is then empty.
func (o *Orchestrator) Run(ctx context.Context, req domain.ResearchRequest) (*domain.Run, error) {
	req.Normalize()

	run := &domain.Run{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
	}

	if err := req.Validate(); err != nil {
		run.Error = err.Error()
		run.FinishedAt = time.Now()
		o.logger.Warn("request rejected", slog.String("run_id", run.ID), slog.String("error", run.Error))
		o.saveRun(ctx, run)
		return run, err
	}

	run.Topic = req.Topic
	run.Query = req.Query

	ctx, span := o.tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(
			attribute.String("run_id", run.ID),
			attribute.String("topic", req.Topic),
		))
	defer span.End()

	o.logger.Info("starting run",
		slog.String("run_id", run.ID),
		slog.String("topic", req.Topic),
		slog.Int("max_sources", req.MaxSources))

	pc := NewContext(req)

	for _, desc := range o.registry.Stages() {
		step := o.exec.Execute(ctx, desc, pc)

		if step.Status == domain.StepCompleted {
			if err := desc.ApplyResult(pc, step.Payload); err != nil {
				// The capability replied success with a payload the stage
				// cannot consume; record it as a fault.
				step.Status = domain.StepError
				step.Failure = domain.FailureFault
				step.Error = err.Error()
				step.Payload = nil
			}
		}
		run.Steps = append(run.Steps, step)

		if step.Status == domain.StepCompleted {
			o.logger.Info("stage completed",
				slog.String("run_id", run.ID),
				slog.String("stage", desc.Name),
				slog.Duration("duration", step.Duration))
			continue
		}

		if o.canDegrade(desc, step) {
			desc.ApplyFallback(pc)
			o.logger.Warn("stage degraded, continuing with fallback",
				slog.String("run_id", run.ID),
				slog.String("stage", desc.Name),
				slog.String("error", step.Error))
			continue
		}

		o.logger.Error("stage failed, aborting run",
			slog.String("run_id", run.ID),
			slog.String("stage", desc.Name),
			slog.String("failure", string(step.Failure)),
			slog.String("error", step.Error))
		break
	}

	run.FinishedAt = time.Now()
	span.SetAttributes(attribute.String("status", string(run.Status())))
	o.logger.Info("run finished",
		slog.String("run_id", run.ID),
		slog.String("status", string(run.Status())),
		slog.Int("steps", len(run.Steps)))

	o.saveRun(ctx, run)
	return run, nil
}

// canDegrade decides whether a failed stage recovers via its fallback.
// Only non-required stages degrade, and only on capability-reported errors;
// a timeout or fault means the stage infrastructure is broken and the run
// aborts regardless.
func (o *Orchestrator) canDegrade(desc Descriptor, step domain.StepResult) bool {
	return !desc.Required && desc.ApplyFallback != nil && step.Failure == domain.FailureError
}

func (o *Orchestrator) saveRun(ctx context.Context, run *domain.Run) {
	if o.store == nil {
		return
	}
	if err := o.store.SaveRun(ctx, run); err != nil {
		o.logger.Error("failed to save run",
			slog.String("run_id", run.ID),
			slog.String("error", err.Error()))
	}
}
