package collect

import (
	"context"
	"errors"
	"testing"

	"github.com/mwrenn/research-pipeline/internal/domain"
)

func TestStaticSearcher_Deterministic(t *testing.T) {
	s := &StaticSearcher{}
	a, err := s.Search(context.Background(), "solar power", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := s.Search(context.Background(), "solar power", 5)

	if len(a) != 5 {
		t.Fatalf("expected 5 results, got %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("result %d not deterministic: %+v vs %+v", i, a[i], b[i])
		}
		if a[i].URL == "" || a[i].Domain == "" {
			t.Errorf("result %d incomplete: %+v", i, a[i])
		}
	}
}

func TestCapability_Invoke(t *testing.T) {
	c := New(WithFanoutLimit(2))
	out := c.Invoke(context.Background(), domain.NewMessage("orchestrator", &domain.CollectRequest{
		Query:      "solar power storage",
		MaxResults: 3,
	}))

	res, ok := out.Payload.(*domain.CollectResult)
	if !ok {
		t.Fatalf("expected CollectResult, got %T", out.Payload)
	}
	if res.Query != "solar power storage" {
		t.Errorf("unexpected query: %q", res.Query)
	}
	if len(res.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(res.Results))
	}
	for i := 1; i < len(res.Results); i++ {
		if res.Results[i].Score > res.Results[i-1].Score {
			t.Errorf("results not sorted by score: %v then %v", res.Results[i-1].Score, res.Results[i].Score)
		}
	}
	if got, ok := out.Metadata["result_count"].(int); !ok || got != 3 {
		t.Errorf("expected result_count metadata 3, got %v", out.Metadata["result_count"])
	}
}

func TestCapability_EmptyQuery(t *testing.T) {
	c := New()
	out := c.Invoke(context.Background(), domain.NewMessage("orchestrator", &domain.CollectRequest{}))

	res, ok := out.Payload.(*domain.ErrorResult)
	if !ok {
		t.Fatalf("expected ErrorResult, got %T", out.Payload)
	}
	if res.Message != "no query provided for web research" {
		t.Errorf("unexpected message: %q", res.Message)
	}
}

func TestCapability_WrongPayload(t *testing.T) {
	c := New()
	out := c.Invoke(context.Background(), domain.NewMessage("orchestrator", &domain.VerifyRequest{}))
	if _, ok := out.Payload.(*domain.ErrorResult); !ok {
		t.Fatalf("expected ErrorResult, got %T", out.Payload)
	}
}

type failingSearcher struct{}

func (failingSearcher) Search(context.Context, string, int) ([]domain.Source, error) {
	return nil, errors.New("rate limited")
}

func TestCapability_SearcherFailure(t *testing.T) {
	c := New(WithSearcher(failingSearcher{}))
	out := c.Invoke(context.Background(), domain.NewMessage("orchestrator", &domain.CollectRequest{Query: "x"}))

	res, ok := out.Payload.(*domain.ErrorResult)
	if !ok {
		t.Fatalf("expected ErrorResult, got %T", out.Payload)
	}
	if res.Message != "search failed: rate limited" {
		t.Errorf("unexpected message: %q", res.Message)
	}
}

func TestCapability_DefaultsMaxResults(t *testing.T) {
	c := New()
	out := c.Invoke(context.Background(), domain.NewMessage("orchestrator", &domain.CollectRequest{Query: "x", MaxResults: 0}))

	res, ok := out.Payload.(*domain.CollectResult)
	if !ok {
		t.Fatalf("expected CollectResult, got %T", out.Payload)
	}
	if len(res.Results) != domain.DefaultMaxSources {
		t.Errorf("expected %d results, got %d", domain.DefaultMaxSources, len(res.Results))
	}
}

func TestRescore_BlendsOverlap(t *testing.T) {
	src := domain.Source{Title: "Solar adoption", Snippet: "Nothing relevant here.", Score: 1.0}
	full := rescore("solar adoption", src)
	if full.Score != 0.7*1.0+0.3*1.0 {
		t.Errorf("full overlap should score 1.0, got %v", full.Score)
	}

	none := rescore("quantum dynamics", src)
	if none.Score != 0.7*1.0 {
		t.Errorf("no overlap should keep 0.7 of base, got %v", none.Score)
	}
}
