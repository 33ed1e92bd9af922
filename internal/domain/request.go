package domain

// OutputFormat selects the rendered report format.
type OutputFormat string

const (
	FormatHTML     OutputFormat = "html"
	FormatMarkdown OutputFormat = "markdown"
	FormatPDF      OutputFormat = "pdf"
)

// DefaultMaxSources bounds source collection when the caller does not.
const DefaultMaxSources = 5

// ResearchRequest is the inbound request that starts a pipeline run.
type ResearchRequest struct {
	Topic        string       `json:"topic"`
	Query        string       `json:"query"`
	MaxSources   int          `json:"max_sources"`
	OutputFormat OutputFormat `json:"output_format"`
}

// Normalize fills defaults: query falls back to the topic, max_sources to
// DefaultMaxSources, and output_format to html.
func (r *ResearchRequest) Normalize() {
	if r.Query == "" {
		r.Query = r.Topic
	}
	if r.Topic == "" {
		r.Topic = r.Query
	}
	if r.MaxSources == 0 {
		r.MaxSources = DefaultMaxSources
	}
	if r.OutputFormat == "" {
		r.OutputFormat = FormatHTML
	}
}

// Validate rejects malformed requests before any stage runs.
func (r ResearchRequest) Validate() error {
	if r.Topic == "" && r.Query == "" {
		return &ValidationError{Field: "topic", Message: "no topic or query provided for research"}
	}
	if r.MaxSources < 0 {
		return &ValidationError{Field: "max_sources", Message: "max_sources must be a positive integer"}
	}
	switch r.OutputFormat {
	case FormatHTML, FormatMarkdown, FormatPDF, "":
	default:
		return &ValidationError{Field: "output_format", Message: "output_format must be html, markdown or pdf"}
	}
	return nil
}
