package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mwrenn/research-pipeline/internal/domain"
)

// StageExecutor invokes one stage's capability under its deadline and
// normalizes the outcome into a StepResult. It is the single point where
// heterogeneous failure modes (error replies, timeouts, panics) collapse
// into one taxonomy.
type StageExecutor interface {
	Execute(ctx context.Context, desc Descriptor, pc *Context) domain.StepResult
}

// Executor is the default StageExecutor.
type Executor struct {
	logger *slog.Logger
	tracer trace.Tracer
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithExecutorLogger sets the executor's logger.
func WithExecutorLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = logger }
}

// WithExecutorTracer sets the executor's tracer.
func WithExecutorTracer(tracer trace.Tracer) ExecutorOption {
	return func(e *Executor) { e.tracer = tracer }
}

// NewExecutor creates an executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		logger: slog.Default(),
		tracer: otel.Tracer("research-pipeline/executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// invocation is what the capability goroutine reports back.
type invocation struct {
	reply    domain.Message
	panicked bool
	panicMsg string
}

// Execute builds the stage request, invokes the capability with a deadline,
// and classifies the outcome. On timeout the reported duration is the
// configured budget, not the elapsed time: the invocation may still be
// running in the background. Cancellation is cooperative; a capability that
// ignores it is abandoned and the leak is logged.
func (e *Executor) Execute(ctx context.Context, desc Descriptor, pc *Context) domain.StepResult {
	ctx, span := e.tracer.Start(ctx, "stage."+desc.Name,
		trace.WithAttributes(attribute.String("stage", desc.Name)))
	defer span.End()

	req := desc.BuildRequest(pc)
	start := time.Now()

	stageCtx, cancel := context.WithTimeout(ctx, desc.Timeout)
	defer cancel()

	done := make(chan invocation, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- invocation{panicked: true, panicMsg: fmt.Sprint(r)}
			}
		}()
		done <- invocation{reply: desc.Capability.Invoke(stageCtx, req)}
	}()

	select {
	case inv := <-done:
		end := time.Now()
		if inv.panicked {
			e.logger.Error("capability panicked",
				slog.String("stage", desc.Name),
				slog.String("capability", desc.Capability.Name()),
				slog.String("panic", inv.panicMsg))
			return e.failed(desc, domain.FailureFault, inv.panicMsg, start, end)
		}
		return e.classify(desc, inv.reply, start, end)

	case <-stageCtx.Done():
		if errors.Is(stageCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			// Stage deadline, not caller cancellation. The goroutine is not
			// awaited; if the capability ignores cancellation it keeps
			// running in the background.
			e.logger.Warn("stage timed out; abandoning invocation",
				slog.String("stage", desc.Name),
				slog.String("capability", desc.Capability.Name()),
				slog.Duration("timeout", desc.Timeout))
			res := e.failed(desc, domain.FailureTimeout,
				fmt.Sprintf("stage timed out after %s", desc.Timeout),
				start, start.Add(desc.Timeout))
			res.Duration = desc.Timeout
			return res
		}
		return e.failed(desc, domain.FailureFault, "run cancelled: "+ctx.Err().Error(), start, time.Now())
	}
}

// classify maps a reply envelope to the step result taxonomy.
func (e *Executor) classify(desc Descriptor, reply domain.Message, start, end time.Time) domain.StepResult {
	switch p := reply.Payload.(type) {
	case nil:
		return e.failed(desc, domain.FailureFault, "capability returned no payload", start, end)
	case *domain.ErrorResult:
		return e.failed(desc, domain.FailureError, p.Message, start, end)
	default:
		return domain.StepResult{
			Stage:      desc.Name,
			Capability: desc.Capability.Name(),
			Status:     domain.StepCompleted,
			Payload:    p,
			Duration:   end.Sub(start),
			StartedAt:  start,
			EndedAt:    end,
		}
	}
}

func (e *Executor) failed(desc Descriptor, kind domain.FailureKind, msg string, start, end time.Time) domain.StepResult {
	return domain.StepResult{
		Stage:      desc.Name,
		Capability: desc.Capability.Name(),
		Status:     domain.StepError,
		Failure:    kind,
		Error:      msg,
		Duration:   end.Sub(start),
		StartedAt:  start,
		EndedAt:    end,
	}
}

var _ StageExecutor = (*Executor)(nil)
