// Package synthesize implements the synthesis stage capability. Findings,
// trends and agreements are extracted with keyword heuristics; no language
// understanding is attempted.
package synthesize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tiktoken-go/tokenizer"

	"github.com/mwrenn/research-pipeline/internal/domain"
)

// Sentence fragments that mark a statement as a finding.
var findingIndicators = []string{
	"found that", "shows that", "indicates", "suggests", "concludes",
	"demonstrates", "reveals", "according to", "research shows",
}

// Direction keywords used to spot trends.
var trendIndicators = map[string][]string{
	"increasing": {"increase", "rise", "grow", "growth", "upward", "surge"},
	"decreasing": {"decrease", "decline", "fall", "drop", "downward", "reduce"},
	"stable":     {"stable", "steady", "consistent", "unchanged", "constant"},
}

// Fragments that flag a knowledge gap.
var gapIndicators = []string{
	"further research needed", "more studies required", "unknown",
	"unclear", "not well understood", "limited data", "insufficient evidence",
}

// Capability merges verified sources into a structured synthesis.
type Capability struct {
	logger *slog.Logger
	codec  tokenizer.Codec
	now    func() time.Time
}

// Option configures the synthesize capability.
type Option func(*Capability)

// WithLogger sets the capability's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Capability) { c.logger = logger }
}

// New creates the synthesize capability. Token accounting uses the cl100k
// encoding.
func New(opts ...Option) (*Capability, error) {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer encoding: %w", err)
	}
	c := &Capability{
		logger: slog.Default(),
		codec:  codec,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name returns the capability identifier.
func (c *Capability) Name() string { return "synthesize" }

// Invoke synthesizes the request's sources into findings, trends,
// agreements and gaps.
func (c *Capability) Invoke(ctx context.Context, in domain.Message) domain.Message {
	req, ok := in.Payload.(*domain.SynthesizeRequest)
	if !ok {
		return domain.NewErrorMessage(c.Name(), fmt.Sprintf("synthesize: unexpected request payload %T", in.Payload))
	}
	if len(req.Sources) == 0 {
		return domain.NewErrorMessage(c.Name(), "no sources provided for synthesis")
	}
	if err := ctx.Err(); err != nil {
		return domain.NewErrorMessage(c.Name(), "synthesis cancelled: "+err.Error())
	}

	findings := c.keyFindings(req.Sources)
	trends := c.trends(req.Sources)
	agreements := c.agreements(req.Topic, req.Sources)
	gaps := c.knowledgeGaps(req.Sources)

	synthesis := domain.Synthesis{
		Topic:            req.Topic,
		ExecutiveSummary: c.executiveSummary(req.Topic, len(req.Sources), findings, trends),
		KeyFindings:      findings,
		Trends:           trends,
		Agreements:       agreements,
		KnowledgeGaps:    gaps,
		SourceCount:      len(req.Sources),
		TokenCount:       c.countTokens(req.Sources),
		SynthesizedAt:    c.now(),
	}

	c.logger.Debug("synthesis complete",
		slog.String("topic", req.Topic),
		slog.Int("findings", len(findings)),
		slog.Int("trends", len(trends)))

	return domain.NewMessage(c.Name(), &domain.SynthesizeResult{Synthesis: synthesis}).
		WithMetadata(map[string]any{
			"sources_processed": len(req.Sources),
			"key_findings":      len(findings),
		})
}

func (c *Capability) keyFindings(sources []domain.Source) []domain.Finding {
	var findings []domain.Finding
	for _, src := range sources {
		for _, sentence := range sentences(src.Snippet) {
			lower := strings.ToLower(sentence)
			for _, ind := range findingIndicators {
				if strings.Contains(lower, ind) {
					findings = append(findings, domain.Finding{
						Text:       sentence,
						SourceURL:  src.URL,
						Confidence: src.Score,
					})
					break
				}
			}
		}
	}
	return findings
}

func (c *Capability) trends(sources []domain.Source) []domain.Trend {
	var trends []domain.Trend
	for direction, indicators := range trendIndicators {
		mentions := 0
		example := ""
		for _, src := range sources {
			lower := strings.ToLower(src.Snippet)
			for _, ind := range indicators {
				if strings.Contains(lower, ind) {
					mentions++
					if example == "" {
						example = firstSentenceContaining(src.Snippet, ind)
					}
					break
				}
			}
		}
		if mentions > 0 {
			trends = append(trends, domain.Trend{
				Direction:   direction,
				Description: example,
				Mentions:    mentions,
			})
		}
	}
	return trends
}

// agreements reports topic terms discussed by at least two sources.
func (c *Capability) agreements(topic string, sources []domain.Source) []string {
	var agreements []string
	for _, term := range strings.Fields(strings.ToLower(topic)) {
		if len(term) < 4 {
			continue
		}
		count := 0
		for _, src := range sources {
			if strings.Contains(strings.ToLower(src.Snippet), term) {
				count++
			}
		}
		if count >= 2 {
			agreements = append(agreements,
				fmt.Sprintf("%d of %d sources discuss %q", count, len(sources), term))
		}
	}
	return agreements
}

func (c *Capability) knowledgeGaps(sources []domain.Source) []string {
	var gaps []string
	for _, src := range sources {
		lower := strings.ToLower(src.Snippet)
		for _, ind := range gapIndicators {
			if strings.Contains(lower, ind) {
				gaps = append(gaps, firstSentenceContaining(src.Snippet, ind))
				break
			}
		}
	}
	if len(sources) < 3 {
		gaps = append(gaps, "limited source coverage; conclusions rest on a small sample")
	}
	return gaps
}

func (c *Capability) executiveSummary(topic string, sourceCount int, findings []domain.Finding, trends []domain.Trend) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Synthesis of %d source(s) on %q.", sourceCount, topic)
	if len(findings) > 0 {
		fmt.Fprintf(&b, " %d key finding(s) were extracted.", len(findings))
	}
	for _, t := range trends {
		fmt.Fprintf(&b, " A %s trend was observed across %d source(s).", t.Direction, t.Mentions)
	}
	return b.String()
}

func (c *Capability) countTokens(sources []domain.Source) int {
	total := 0
	for _, src := range sources {
		ids, _, err := c.codec.Encode(src.Title + " " + src.Snippet)
		if err != nil {
			continue
		}
		total += len(ids)
	}
	return total
}

func sentences(text string) []string {
	var out []string
	for _, s := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	}) {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func firstSentenceContaining(text, fragment string) string {
	for _, s := range sentences(text) {
		if strings.Contains(strings.ToLower(s), fragment) {
			return s
		}
	}
	return ""
}
