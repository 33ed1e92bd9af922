// Package collect implements the source-gathering stage capability.
package collect

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mwrenn/research-pipeline/internal/domain"
)

// Searcher produces candidate sources for a query. Implementations may call
// external search APIs; the capability handles fan-out and ranking.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]domain.Source, error)
}

// StaticSearcher fabricates deterministic results, standing in for a real
// search backend the way the upstream mock provider does. Useful for local
// runs and tests.
type StaticSearcher struct {
	// Domains cycles through the fabricated result URLs.
	Domains []string
}

var defaultDomains = []string{
	"example.com",
	"research.example.edu",
	"journal.example.org",
	"news.example.com",
	"blog.example.net",
}

// Search fabricates maxResults sources with decreasing base scores.
func (s *StaticSearcher) Search(_ context.Context, query string, maxResults int) ([]domain.Source, error) {
	domains := s.Domains
	if len(domains) == 0 {
		domains = defaultDomains
	}
	slug := strings.ReplaceAll(strings.ToLower(query), " ", "-")
	results := make([]domain.Source, 0, maxResults)
	for i := 0; i < maxResults; i++ {
		d := domains[i%len(domains)]
		results = append(results, domain.Source{
			Title:   fmt.Sprintf("%s — result %d", capitalize(query), i+1),
			URL:     fmt.Sprintf("https://%s/%s-%d", d, slug, i+1),
			Domain:  d,
			Snippet: fmt.Sprintf("Result %d contains relevant information about %s. Research shows %s remains an active area of study.", i+1, query, query),
			Score:   0.9 - 0.1*float64(i%8),
		})
	}
	return results, nil
}

// Capability gathers and ranks sources. Enrichment of individual results is
// fanned out concurrently; that concurrency is private to this stage.
type Capability struct {
	searcher Searcher
	fanout   int
	logger   *slog.Logger
}

// Option configures the collect capability.
type Option func(*Capability)

// WithSearcher replaces the default static searcher.
func WithSearcher(s Searcher) Option {
	return func(c *Capability) { c.searcher = s }
}

// WithFanoutLimit bounds concurrent result enrichment.
func WithFanoutLimit(n int) Option {
	return func(c *Capability) {
		if n > 0 {
			c.fanout = n
		}
	}
}

// WithLogger sets the capability's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Capability) { c.logger = logger }
}

// New creates the collect capability.
func New(opts ...Option) *Capability {
	c := &Capability{
		searcher: &StaticSearcher{},
		fanout:   4,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the capability identifier.
func (c *Capability) Name() string { return "collect" }

// Invoke gathers sources for the request query.
func (c *Capability) Invoke(ctx context.Context, in domain.Message) domain.Message {
	req, ok := in.Payload.(*domain.CollectRequest)
	if !ok {
		return domain.NewErrorMessage(c.Name(), fmt.Sprintf("collect: unexpected request payload %T", in.Payload))
	}
	if req.Query == "" {
		return domain.NewErrorMessage(c.Name(), "no query provided for web research")
	}
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = domain.DefaultMaxSources
	}

	results, err := c.searcher.Search(ctx, req.Query, maxResults)
	if err != nil {
		return domain.NewErrorMessage(c.Name(), "search failed: "+err.Error())
	}

	enriched := make([]domain.Source, len(results))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.fanout)
	for i, src := range results {
		i, src := i, src
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			enriched[i] = rescore(req.Query, src)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.NewErrorMessage(c.Name(), "source enrichment cancelled: "+err.Error())
	}

	sort.SliceStable(enriched, func(i, j int) bool {
		return enriched[i].Score > enriched[j].Score
	})
	if len(enriched) > maxResults {
		enriched = enriched[:maxResults]
	}

	c.logger.Debug("collected sources",
		slog.String("query", req.Query),
		slog.Int("count", len(enriched)))

	return domain.NewMessage(c.Name(), &domain.CollectResult{
		Query:   req.Query,
		Results: enriched,
	}).WithMetadata(map[string]any{"result_count": len(enriched)})
}

// rescore blends the searcher's base score with query-term overlap in the
// title and snippet.
func rescore(query string, src domain.Source) domain.Source {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return src
	}
	text := strings.ToLower(src.Title + " " + src.Snippet)
	hits := 0
	for _, t := range terms {
		if strings.Contains(text, t) {
			hits++
		}
	}
	overlap := float64(hits) / float64(len(terms))
	src.Score = 0.7*src.Score + 0.3*overlap
	return src
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
