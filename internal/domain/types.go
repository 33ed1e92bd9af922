package domain

import "time"

// Source is one gathered research source record.
type Source struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Domain  string  `json:"domain"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// DomainAnalysis is the verify stage's assessment of a single domain.
type DomainAnalysis struct {
	CredibilityScore float64 `json:"credibility_score"`
	AuthorityLevel   string  `json:"authority_level"`
	BiasRating       string  `json:"bias_rating"`
}

// SourceAnalysis aggregates per-domain credibility over a source set.
type SourceAnalysis struct {
	TotalSources      int                       `json:"total_sources"`
	HighCredibility   int                       `json:"high_credibility"`
	MediumCredibility int                       `json:"medium_credibility"`
	LowCredibility    int                       `json:"low_credibility"`
	Domains           map[string]DomainAnalysis `json:"domains"`
	OverallScore      float64                   `json:"overall_score"`
}

// Verification is the verify stage's result object.
type Verification struct {
	CredibilityScore float64        `json:"credibility_score"`
	SourceAnalysis   SourceAnalysis `json:"source_analysis"`
	Recommendations  []string       `json:"recommendations"`
	Warnings         []string       `json:"warnings"`
}

// Finding is a single extracted statement backed by a source.
type Finding struct {
	Text       string  `json:"text"`
	SourceURL  string  `json:"source_url"`
	Confidence float64 `json:"confidence"`
}

// Trend is a directional signal observed across sources.
type Trend struct {
	Direction   string `json:"direction"`
	Description string `json:"description"`
	Mentions    int    `json:"mentions"`
}

// Synthesis is the synthesize stage's structured result.
type Synthesis struct {
	Topic            string    `json:"topic"`
	ExecutiveSummary string    `json:"executive_summary"`
	KeyFindings      []Finding `json:"key_findings"`
	Trends           []Trend   `json:"trends"`
	Agreements       []string  `json:"agreements"`
	KnowledgeGaps    []string  `json:"knowledge_gaps"`
	SourceCount      int       `json:"source_count"`
	TokenCount       int       `json:"token_count"`
	SynthesizedAt    time.Time `json:"synthesized_at"`
}

// Artifact describes the rendered report output.
type Artifact struct {
	Filename string       `json:"filename"`
	Path     string       `json:"path"`
	Format   OutputFormat `json:"format"`
	Size     int          `json:"size"`
	Sections int          `json:"sections"`
}
