package pipeline

import (
	"fmt"
	"time"

	"github.com/mwrenn/research-pipeline/internal/domain"
)

// Stage names of the default pipeline, in execution order.
const (
	StageCollect    = "collect"
	StageVerify     = "verify"
	StageSynthesize = "synthesize"
	StageRender     = "render"
)

// Default per-stage timeout budgets.
const (
	DefaultCollectTimeout    = 300 * time.Second
	DefaultVerifyTimeout     = 180 * time.Second
	DefaultSynthesizeTimeout = 240 * time.Second
	DefaultRenderTimeout     = 120 * time.Second
)

// Credibility filtering applied after a successful verify stage.
const (
	// credibilityThreshold is the score a source must strictly exceed to be
	// retained as verified.
	credibilityThreshold = 0.3
	// defaultCredibility is assumed when the verify analysis has no entry
	// for a source's domain.
	defaultCredibility = 0.5
)

// Descriptor is the static definition of one pipeline stage. Descriptors are
// created once at registry construction and read-only thereafter.
type Descriptor struct {
	Name        string
	Description string
	// Required failures abort the run. Non-required stages with a fallback
	// degrade instead, but only on capability-reported errors; timeouts and
	// faults still abort.
	Required   bool
	Timeout    time.Duration
	Capability Capability

	// BuildRequest derives the stage's request envelope from the current
	// context, decoupling stage ordering from payload shape.
	BuildRequest func(*Context) domain.Message
	// ApplyResult merges a successful reply payload into the context.
	ApplyResult func(*Context, domain.Payload) error
	// ApplyFallback is the degrade path for non-required stages; nil when
	// the stage has none.
	ApplyFallback func(*Context)
}

// Capabilities binds an implementation to each stage slot.
type Capabilities struct {
	Collect    Capability
	Verify     Capability
	Synthesize Capability
	Render     Capability
}

// Registry is the fixed, ordered stage table. It is immutable after
// construction and safe to share across concurrent runs.
type Registry struct {
	stages   []Descriptor
	timeouts map[string]time.Duration
}

// RegistryOption customizes registry construction.
type RegistryOption func(*Registry)

// WithStageTimeout overrides one stage's timeout budget.
func WithStageTimeout(stage string, d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.timeouts[stage] = d
		}
	}
}

// NewRegistry builds the default four-stage pipeline over the given
// capabilities.
func NewRegistry(caps Capabilities, opts ...RegistryOption) (*Registry, error) {
	for name, c := range map[string]Capability{
		StageCollect:    caps.Collect,
		StageVerify:     caps.Verify,
		StageSynthesize: caps.Synthesize,
		StageRender:     caps.Render,
	} {
		if c == nil {
			return nil, fmt.Errorf("registry: no capability bound for stage %s", name)
		}
	}

	r := &Registry{
		timeouts: map[string]time.Duration{
			StageCollect:    DefaultCollectTimeout,
			StageVerify:     DefaultVerifyTimeout,
			StageSynthesize: DefaultSynthesizeTimeout,
			StageRender:     DefaultRenderTimeout,
		},
	}
	for _, opt := range opts {
		opt(r)
	}

	r.stages = []Descriptor{
		{
			Name:        StageCollect,
			Description: "gather candidate sources for the query",
			Required:    true,
			Timeout:     r.timeouts[StageCollect],
			Capability:  caps.Collect,
			BuildRequest: func(c *Context) domain.Message {
				return domain.NewMessage(roleOrchestrator, &domain.CollectRequest{
					Query:      c.Query,
					MaxResults: c.MaxSources,
				})
			},
			ApplyResult: func(c *Context, p domain.Payload) error {
				res, ok := p.(*domain.CollectResult)
				if !ok {
					return fmt.Errorf("collect: unexpected payload %T", p)
				}
				c.Sources = res.Results
				return nil
			},
		},
		{
			Name:        StageVerify,
			Description: "assess source credibility",
			// Verification is advisory: a reported failure degrades to the
			// unfiltered source list instead of aborting the run.
			Required:   false,
			Timeout:    r.timeouts[StageVerify],
			Capability: caps.Verify,
			BuildRequest: func(c *Context) domain.Message {
				return domain.NewMessage(roleOrchestrator, &domain.VerifyRequest{
					Content: "Research on " + c.Topic,
					Sources: c.Sources,
				})
			},
			ApplyResult: func(c *Context, p domain.Payload) error {
				res, ok := p.(*domain.VerifyResult)
				if !ok {
					return fmt.Errorf("verify: unexpected payload %T", p)
				}
				c.VerifiedSources = filterCredible(c.Sources, res.Verification)
				return nil
			},
			ApplyFallback: func(c *Context) {
				c.VerifiedSources = c.Sources
			},
		},
		{
			Name:        StageSynthesize,
			Description: "synthesize findings from verified sources",
			Required:    true,
			Timeout:     r.timeouts[StageSynthesize],
			Capability:  caps.Synthesize,
			BuildRequest: func(c *Context) domain.Message {
				return domain.NewMessage(roleOrchestrator, &domain.SynthesizeRequest{
					Topic:   c.Topic,
					Sources: c.VerifiedSources,
				})
			},
			ApplyResult: func(c *Context, p domain.Payload) error {
				res, ok := p.(*domain.SynthesizeResult)
				if !ok {
					return fmt.Errorf("synthesize: unexpected payload %T", p)
				}
				c.Synthesis = &res.Synthesis
				return nil
			},
		},
		{
			Name:        StageRender,
			Description: "render the final report",
			Required:    true,
			Timeout:     r.timeouts[StageRender],
			Capability:  caps.Render,
			BuildRequest: func(c *Context) domain.Message {
				return domain.NewMessage(roleOrchestrator, &domain.RenderRequest{
					Synthesis:  c.Synthesis,
					Format:     c.OutputFormat,
					IncludeTOC: true,
				})
			},
			ApplyResult: func(c *Context, p domain.Payload) error {
				res, ok := p.(*domain.RenderResult)
				if !ok {
					return fmt.Errorf("render: unexpected payload %T", p)
				}
				report := res.Report
				c.Report = &report
				return nil
			},
		},
	}

	return r, nil
}

// Stages returns the ordered stage table. Callers must treat it as read-only.
func (r *Registry) Stages() []Descriptor {
	return r.stages
}

// Stage looks up one descriptor by name.
func (r *Registry) Stage(name string) (Descriptor, bool) {
	for _, d := range r.stages {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}

const roleOrchestrator = "orchestrator"

// filterCredible retains sources whose per-domain credibility score strictly
// exceeds the threshold, defaulting when the analysis has no entry.
func filterCredible(sources []domain.Source, v domain.Verification) []domain.Source {
	kept := make([]domain.Source, 0, len(sources))
	for _, src := range sources {
		if sourceCredibility(src, v) > credibilityThreshold {
			kept = append(kept, src)
		}
	}
	return kept
}

func sourceCredibility(src domain.Source, v domain.Verification) float64 {
	if d, ok := v.SourceAnalysis.Domains[src.Domain]; ok {
		return d.CredibilityScore
	}
	return defaultCredibility
}
