package synthesize

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mwrenn/research-pipeline/internal/domain"
)

func newCapability(t *testing.T) *Capability {
	t.Helper()
	c, err := New()
	if err != nil {
		t.Fatalf("build capability: %v", err)
	}
	c.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return c
}

func researchSources() []domain.Source {
	return []domain.Source{
		{
			Title:   "Storage deployment study",
			URL:     "https://research.example.edu/storage",
			Domain:  "research.example.edu",
			Snippet: "Research shows battery storage deployment continues to increase. Further research needed on recycling.",
			Score:   0.9,
		},
		{
			Title:   "Grid economics report",
			URL:     "https://journal.example.org/economics",
			Domain:  "journal.example.org",
			Snippet: "The data indicates storage costs decline each year. Storage adoption shows growth across markets.",
			Score:   0.8,
		},
		{
			Title:   "Utility commentary",
			URL:     "https://news.example.com/utilities",
			Domain:  "news.example.com",
			Snippet: "Analysts found that storage procurement is rising steadily.",
			Score:   0.7,
		},
	}
}

func TestCapability_Invoke(t *testing.T) {
	c := newCapability(t)
	out := c.Invoke(context.Background(), domain.NewMessage("orchestrator", &domain.SynthesizeRequest{
		Topic:   "battery storage",
		Sources: researchSources(),
	}))

	res, ok := out.Payload.(*domain.SynthesizeResult)
	if !ok {
		t.Fatalf("expected SynthesizeResult, got %T", out.Payload)
	}
	s := res.Synthesis

	if s.Topic != "battery storage" {
		t.Errorf("unexpected topic: %q", s.Topic)
	}
	if s.SourceCount != 3 {
		t.Errorf("expected 3 sources counted, got %d", s.SourceCount)
	}
	if len(s.KeyFindings) == 0 {
		t.Error("expected findings from indicator sentences")
	}
	for _, f := range s.KeyFindings {
		if f.SourceURL == "" {
			t.Errorf("finding without source attribution: %+v", f)
		}
	}
	if len(s.Trends) == 0 {
		t.Error("expected at least one trend")
	}
	if s.TokenCount <= 0 {
		t.Error("expected a positive token count")
	}
	if !strings.Contains(s.ExecutiveSummary, "3 source(s)") {
		t.Errorf("summary should mention the source count: %q", s.ExecutiveSummary)
	}
	if !s.SynthesizedAt.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected timestamp: %v", s.SynthesizedAt)
	}
}

func TestCapability_NoSources(t *testing.T) {
	c := newCapability(t)
	out := c.Invoke(context.Background(), domain.NewMessage("orchestrator", &domain.SynthesizeRequest{Topic: "x"}))

	res, ok := out.Payload.(*domain.ErrorResult)
	if !ok {
		t.Fatalf("expected ErrorResult, got %T", out.Payload)
	}
	if res.Message != "no sources provided for synthesis" {
		t.Errorf("unexpected message: %q", res.Message)
	}
}

func TestCapability_WrongPayload(t *testing.T) {
	c := newCapability(t)
	out := c.Invoke(context.Background(), domain.NewMessage("orchestrator", &domain.CollectRequest{}))
	if _, ok := out.Payload.(*domain.ErrorResult); !ok {
		t.Fatalf("expected ErrorResult, got %T", out.Payload)
	}
}

func TestKnowledgeGaps_SmallSample(t *testing.T) {
	c := newCapability(t)
	gaps := c.knowledgeGaps(researchSources()[:1])

	foundGap, foundCoverage := false, false
	for _, g := range gaps {
		if strings.Contains(strings.ToLower(g), "further research needed") {
			foundGap = true
		}
		if strings.Contains(g, "limited source coverage") {
			foundCoverage = true
		}
	}
	if !foundGap {
		t.Errorf("expected indicator-derived gap, got %v", gaps)
	}
	if !foundCoverage {
		t.Errorf("expected small-sample gap, got %v", gaps)
	}
}

func TestTrends_Directions(t *testing.T) {
	c := newCapability(t)
	trends := c.trends(researchSources())

	byDirection := map[string]domain.Trend{}
	for _, tr := range trends {
		byDirection[tr.Direction] = tr
	}
	up, ok := byDirection["increasing"]
	if !ok {
		t.Fatalf("expected an increasing trend, got %v", trends)
	}
	if up.Mentions < 1 || up.Description == "" {
		t.Errorf("trend incomplete: %+v", up)
	}
	if _, ok := byDirection["decreasing"]; !ok {
		t.Errorf("expected a decreasing trend from the costs snippet, got %v", trends)
	}
}

func TestAgreements_RequiresTwoSources(t *testing.T) {
	c := newCapability(t)
	got := c.agreements("storage recycling", researchSources())

	var storageAgreement bool
	for _, a := range got {
		if strings.Contains(a, `"storage"`) {
			storageAgreement = true
		}
		if strings.Contains(a, `"recycling"`) {
			t.Errorf("recycling appears in one source only, must not be an agreement: %v", got)
		}
	}
	if !storageAgreement {
		t.Errorf("expected agreement on storage, got %v", got)
	}
}

func TestSentences(t *testing.T) {
	got := sentences("First part. Second! Third? ")
	want := []string{"First part", "Second", "Third"}
	if len(got) != len(want) {
		t.Fatalf("expected %d sentences, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentence %d: got %q, want %q", i, got[i], want[i])
		}
	}
}
