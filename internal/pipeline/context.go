package pipeline

import "github.com/mwrenn/research-pipeline/internal/domain"

// Context is the accumulating state threaded between stages. One Context is
// created per run; the orchestrator is its only writer and mutates it only
// between stage invocations, never during one.
type Context struct {
	Topic        string
	Query        string
	MaxSources   int
	OutputFormat domain.OutputFormat

	// Sources is the raw collect output; VerifiedSources the credibility-
	// filtered subset the synthesize stage consumes.
	Sources         []domain.Source
	VerifiedSources []domain.Source

	// Synthesis and Report stay nil until their stages succeed.
	Synthesis *domain.Synthesis
	Report    *domain.Artifact
}

// NewContext creates the run-scoped context from a normalized request.
func NewContext(req domain.ResearchRequest) *Context {
	return &Context{
		Topic:        req.Topic,
		Query:        req.Query,
		MaxSources:   req.MaxSources,
		OutputFormat: req.OutputFormat,
	}
}
