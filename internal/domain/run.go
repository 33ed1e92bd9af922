package domain

import "time"

// StepStatus is the normalized outcome of one stage invocation.
type StepStatus string

const (
	StepCompleted StepStatus = "completed"
	StepError     StepStatus = "error"
)

// FailureKind records how a failed stage failed. It is data in the step
// result, not a control-flow signal; only the degrade policy consults it.
type FailureKind string

const (
	// FailureNone marks a completed step.
	FailureNone FailureKind = ""
	// FailureError means the capability reported failure in its reply.
	FailureError FailureKind = "stage_error"
	// FailureTimeout means the stage's deadline elapsed before it replied.
	FailureTimeout FailureKind = "stage_timeout"
	// FailureFault means the capability panicked or broke the contract.
	FailureFault FailureKind = "stage_fault"
)

// StepResult is the immutable record of one stage invocation within a run.
// The executor creates exactly one per invocation.
type StepResult struct {
	Stage      string        `json:"stage"`
	Capability string        `json:"capability"`
	Status     StepStatus    `json:"status"`
	Failure    FailureKind   `json:"failure,omitempty"`
	Payload    Payload       `json:"payload,omitempty"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
	StartedAt  time.Time     `json:"started_at"`
	EndedAt    time.Time     `json:"ended_at"`
}

// RunStatus is the derived overall status of a run.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is one end-to-end execution of the pipeline for a single request.
// Each run owns its trace; nothing about a run is shared across callers.
type Run struct {
	ID         string       `json:"id"`
	Topic      string       `json:"topic"`
	Query      string       `json:"query"`
	Steps      []StepResult `json:"steps"`
	Error      string       `json:"error,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// Status derives the overall outcome: completed when the trace's last stage
// completed, failed otherwise (including the empty trace of a rejected
// request).
func (r *Run) Status() RunStatus {
	if len(r.Steps) == 0 {
		return RunFailed
	}
	if r.Steps[len(r.Steps)-1].Status == StepCompleted {
		return RunCompleted
	}
	return RunFailed
}

// Clone returns a copy with its own trace slice. Step payloads are shared;
// they are immutable after creation.
func (r *Run) Clone() *Run {
	out := *r
	out.Steps = make([]StepResult, len(r.Steps))
	copy(out.Steps, r.Steps)
	return &out
}
