// Package verify implements the credibility-assessment stage capability.
// Scoring is heuristic: domain characteristics, not content analysis.
package verify

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/mwrenn/research-pipeline/internal/domain"
)

// Credibility bands used when counting sources per level.
const (
	highThreshold   = 0.8
	mediumThreshold = 0.5
)

// Capability assesses per-domain credibility for gathered sources.
type Capability struct {
	logger *slog.Logger
	// known maps domains with an editorially assigned score, consulted
	// before the heuristic assessment.
	known map[string]float64
}

// Option configures the verify capability.
type Option func(*Capability)

// WithKnownDomains seeds editorially trusted domains and their scores.
func WithKnownDomains(known map[string]float64) Option {
	return func(c *Capability) { c.known = known }
}

// WithLogger sets the capability's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Capability) { c.logger = logger }
}

// New creates the verify capability.
func New(opts ...Option) *Capability {
	c := &Capability{logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the capability identifier.
func (c *Capability) Name() string { return "verify" }

// Invoke analyzes the request's sources and replies with a Verification.
func (c *Capability) Invoke(ctx context.Context, in domain.Message) domain.Message {
	req, ok := in.Payload.(*domain.VerifyRequest)
	if !ok {
		return domain.NewErrorMessage(c.Name(), fmt.Sprintf("verify: unexpected request payload %T", in.Payload))
	}
	if err := ctx.Err(); err != nil {
		return domain.NewErrorMessage(c.Name(), "verification cancelled: "+err.Error())
	}

	analysis := c.analyzeSources(req.Sources)
	verification := domain.Verification{
		CredibilityScore: analysis.OverallScore,
		SourceAnalysis:   analysis,
	}
	verification.Recommendations, verification.Warnings = recommend(analysis)

	c.logger.Debug("verified sources",
		slog.Int("sources", len(req.Sources)),
		slog.Float64("overall_score", analysis.OverallScore))

	return domain.NewMessage(c.Name(), &domain.VerifyResult{Verification: verification}).
		WithMetadata(map[string]any{
			"sources_analyzed": len(req.Sources),
			"credibility":      analysis.OverallScore,
		})
}

func (c *Capability) analyzeSources(sources []domain.Source) domain.SourceAnalysis {
	analysis := domain.SourceAnalysis{
		TotalSources: len(sources),
		Domains:      make(map[string]domain.DomainAnalysis),
	}
	if len(sources) == 0 {
		return analysis
	}

	total := 0.0
	for _, src := range sources {
		d := src.Domain
		if d == "" {
			d = extractDomain(src.URL)
		}
		da := c.assessDomain(d)
		analysis.Domains[d] = da

		switch {
		case da.CredibilityScore >= highThreshold:
			analysis.HighCredibility++
		case da.CredibilityScore >= mediumThreshold:
			analysis.MediumCredibility++
		default:
			analysis.LowCredibility++
		}
		total += da.CredibilityScore
	}
	analysis.OverallScore = total / float64(len(sources))
	return analysis
}

// assessDomain scores a domain from its characteristics: educational and
// government domains high, org/com middling, blog and forum hosts penalized.
func (c *Capability) assessDomain(d string) domain.DomainAnalysis {
	if score, ok := c.known[d]; ok {
		return domain.DomainAnalysis{
			CredibilityScore: score,
			AuthorityLevel:   authorityLevel(score),
			BiasRating:       "reviewed",
		}
	}

	score := 0.5
	switch {
	case strings.HasSuffix(d, ".edu"), strings.HasSuffix(d, ".gov"):
		score = 0.85
	case strings.HasSuffix(d, ".org"):
		score = 0.7
	case strings.HasSuffix(d, ".com"):
		score = 0.6
	}
	if strings.Contains(d, "wiki") {
		score = min(score+0.1, 1.0)
	} else if strings.Contains(d, "blog") || strings.Contains(d, "forum") {
		score = max(score-0.2, 0.0)
	}

	return domain.DomainAnalysis{
		CredibilityScore: score,
		AuthorityLevel:   authorityLevel(score),
		BiasRating:       "neutral",
	}
}

func authorityLevel(score float64) string {
	switch {
	case score >= highThreshold:
		return "high"
	case score >= mediumThreshold:
		return "medium"
	default:
		return "low"
	}
}

func recommend(a domain.SourceAnalysis) (recommendations, warnings []string) {
	if a.TotalSources == 0 {
		warnings = append(warnings, "no sources available for verification")
		return recommendations, warnings
	}
	if a.OverallScore < mediumThreshold {
		warnings = append(warnings, "overall source credibility is low; findings should be treated as preliminary")
	}
	if a.LowCredibility > 0 {
		recommendations = append(recommendations,
			fmt.Sprintf("corroborate claims from the %d low-credibility source(s) independently", a.LowCredibility))
	}
	if a.HighCredibility == 0 {
		recommendations = append(recommendations, "seek at least one high-authority source for key claims")
	}
	return recommendations, warnings
}

func extractDomain(rawURL string) string {
	if rawURL == "" {
		return "unknown"
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}
