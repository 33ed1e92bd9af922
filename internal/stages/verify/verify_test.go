package verify

import (
	"context"
	"testing"

	"github.com/mwrenn/research-pipeline/internal/domain"
)

func invoke(t *testing.T, c *Capability, sources []domain.Source) domain.Verification {
	t.Helper()
	out := c.Invoke(context.Background(), domain.NewMessage("orchestrator", &domain.VerifyRequest{
		Content: "Research on testing",
		Sources: sources,
	}))
	res, ok := out.Payload.(*domain.VerifyResult)
	if !ok {
		t.Fatalf("expected VerifyResult, got %T", out.Payload)
	}
	return res.Verification
}

func TestCapability_DomainHeuristics(t *testing.T) {
	c := New()
	v := invoke(t, c, []domain.Source{
		{URL: "https://physics.example.edu/paper", Domain: "physics.example.edu"},
		{URL: "https://example.org/report", Domain: "example.org"},
		{URL: "https://example.com/article", Domain: "example.com"},
		{URL: "https://blog.example.net/post", Domain: "blog.example.net"},
	})

	a := v.SourceAnalysis
	if a.TotalSources != 4 {
		t.Fatalf("expected 4 sources, got %d", a.TotalSources)
	}

	cases := map[string]float64{
		"physics.example.edu": 0.85,
		"example.org":         0.7,
		"example.com":         0.6,
		"blog.example.net":    0.3, // .net base 0.5 minus the blog penalty
	}
	for d, want := range cases {
		got, ok := a.Domains[d]
		if !ok {
			t.Errorf("domain %s missing from analysis", d)
			continue
		}
		if got.CredibilityScore != want {
			t.Errorf("domain %s: expected score %v, got %v", d, want, got.CredibilityScore)
		}
	}

	if a.HighCredibility != 1 || a.MediumCredibility != 2 || a.LowCredibility != 1 {
		t.Errorf("unexpected bands: high=%d medium=%d low=%d", a.HighCredibility, a.MediumCredibility, a.LowCredibility)
	}
}

func TestCapability_KnownDomainsOverrideHeuristics(t *testing.T) {
	c := New(WithKnownDomains(map[string]float64{"blog.example.net": 0.95}))
	v := invoke(t, c, []domain.Source{{URL: "https://blog.example.net/post", Domain: "blog.example.net"}})

	da := v.SourceAnalysis.Domains["blog.example.net"]
	if da.CredibilityScore != 0.95 {
		t.Errorf("expected editorial score 0.95, got %v", da.CredibilityScore)
	}
	if da.BiasRating != "reviewed" {
		t.Errorf("expected reviewed rating, got %q", da.BiasRating)
	}
}

func TestCapability_DomainFromURL(t *testing.T) {
	c := New()
	v := invoke(t, c, []domain.Source{{URL: "https://www.Example.EDU/paper"}})

	if _, ok := v.SourceAnalysis.Domains["example.edu"]; !ok {
		t.Errorf("expected domain extracted from URL, got %v", v.SourceAnalysis.Domains)
	}
}

func TestCapability_EmptySources(t *testing.T) {
	c := New()
	v := invoke(t, c, nil)

	if v.SourceAnalysis.TotalSources != 0 {
		t.Errorf("expected zero sources, got %d", v.SourceAnalysis.TotalSources)
	}
	if len(v.Warnings) == 0 {
		t.Error("expected a warning about missing sources")
	}
}

func TestCapability_WrongPayload(t *testing.T) {
	c := New()
	out := c.Invoke(context.Background(), domain.NewMessage("orchestrator", &domain.CollectRequest{}))
	if _, ok := out.Payload.(*domain.ErrorResult); !ok {
		t.Fatalf("expected ErrorResult, got %T", out.Payload)
	}
}

func TestRecommend_LowCredibility(t *testing.T) {
	_, warnings := recommend(domain.SourceAnalysis{TotalSources: 2, OverallScore: 0.4})
	if len(warnings) == 0 {
		t.Error("expected a low-credibility warning")
	}

	recs, _ := recommend(domain.SourceAnalysis{TotalSources: 2, OverallScore: 0.7, LowCredibility: 1})
	if len(recs) == 0 {
		t.Error("expected a corroboration recommendation")
	}
}

func TestExtractDomain(t *testing.T) {
	tests := map[string]string{
		"https://www.example.com/a": "example.com",
		"https://sub.example.org":   "sub.example.org",
		"not a url":                 "unknown",
		"":                          "unknown",
	}
	for in, want := range tests {
		if got := extractDomain(in); got != want {
			t.Errorf("extractDomain(%q) = %q, want %q", in, got, want)
		}
	}
}
