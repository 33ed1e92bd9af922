// Package render implements the report-rendering stage capability.
package render

import (
	"context"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/mwrenn/research-pipeline/internal/domain"
)

// Capability renders a synthesis into an HTML or Markdown report artifact.
// PDF requests currently render the HTML body and record the requested
// format on the artifact.
// TODO: wire an HTML-to-PDF converter so pdf requests produce a real PDF.
type Capability struct {
	outputDir string
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures the render capability.
type Option func(*Capability)

// WithLogger sets the capability's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Capability) { c.logger = logger }
}

// New creates the render capability writing artifacts under outputDir.
func New(outputDir string, opts ...Option) *Capability {
	c := &Capability{
		outputDir: outputDir,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the capability identifier.
func (c *Capability) Name() string { return "render" }

// reportData is the template input.
type reportData struct {
	Synthesis   *domain.Synthesis
	IncludeTOC  bool
	GeneratedAt string
	Sections    []string
}

// Invoke renders the synthesis and writes the report file.
func (c *Capability) Invoke(ctx context.Context, in domain.Message) domain.Message {
	req, ok := in.Payload.(*domain.RenderRequest)
	if !ok {
		return domain.NewErrorMessage(c.Name(), fmt.Sprintf("render: unexpected request payload %T", in.Payload))
	}
	if req.Synthesis == nil {
		return domain.NewErrorMessage(c.Name(), "no synthesis data provided for report generation")
	}
	if err := ctx.Err(); err != nil {
		return domain.NewErrorMessage(c.Name(), "rendering cancelled: "+err.Error())
	}

	data := reportData{
		Synthesis:   req.Synthesis,
		IncludeTOC:  req.IncludeTOC,
		GeneratedAt: c.now().Format(time.RFC3339),
		Sections:    sectionNames(req.Synthesis),
	}

	var content, ext string
	var err error
	switch req.Format {
	case domain.FormatMarkdown:
		content, err = renderMarkdown(data)
		ext = "md"
	case domain.FormatHTML, domain.FormatPDF, "":
		content, err = renderHTML(data)
		ext = "html"
	default:
		return domain.NewErrorMessage(c.Name(), fmt.Sprintf("unsupported output format: %s", req.Format))
	}
	if err != nil {
		return domain.NewErrorMessage(c.Name(), "render report: "+err.Error())
	}

	format := req.Format
	if format == "" {
		format = domain.FormatHTML
	}

	filename := fmt.Sprintf("research_%s_%s.%s",
		slugify(req.Synthesis.Topic), c.now().Format("20060102_150405"), ext)
	path := filepath.Join(c.outputDir, filename)

	if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
		return domain.NewErrorMessage(c.Name(), "create output directory: "+err.Error())
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return domain.NewErrorMessage(c.Name(), "write report: "+err.Error())
	}

	c.logger.Debug("report written",
		slog.String("path", path),
		slog.String("format", string(format)))

	return domain.NewMessage(c.Name(), &domain.RenderResult{
		Report: domain.Artifact{
			Filename: filename,
			Path:     path,
			Format:   format,
			Size:     len(content),
			Sections: len(data.Sections),
		},
	}).WithMetadata(map[string]any{"filepath": path})
}

func sectionNames(s *domain.Synthesis) []string {
	sections := []string{"Executive Summary"}
	if len(s.KeyFindings) > 0 {
		sections = append(sections, "Key Findings")
	}
	if len(s.Trends) > 0 {
		sections = append(sections, "Trends")
	}
	if len(s.Agreements) > 0 {
		sections = append(sections, "Areas of Agreement")
	}
	if len(s.KnowledgeGaps) > 0 {
		sections = append(sections, "Knowledge Gaps")
	}
	return sections
}

var htmlTmpl = htmltemplate.Must(htmltemplate.New("report").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Research Report: {{.Synthesis.Topic}}</title></head>
<body>
<h1>Research Report: {{.Synthesis.Topic}}</h1>
<p><em>Generated {{.GeneratedAt}} from {{.Synthesis.SourceCount}} source(s).</em></p>
{{if .IncludeTOC}}<nav><ul>
{{range .Sections}}<li>{{.}}</li>
{{end}}</ul></nav>{{end}}
<h2>Executive Summary</h2>
<p>{{.Synthesis.ExecutiveSummary}}</p>
{{if .Synthesis.KeyFindings}}<h2>Key Findings</h2>
<ul>
{{range .Synthesis.KeyFindings}}<li>{{.Text}} <a href="{{.SourceURL}}">[source]</a></li>
{{end}}</ul>{{end}}
{{if .Synthesis.Trends}}<h2>Trends</h2>
<ul>
{{range .Synthesis.Trends}}<li><strong>{{.Direction}}</strong> ({{.Mentions}} mention(s)): {{.Description}}</li>
{{end}}</ul>{{end}}
{{if .Synthesis.Agreements}}<h2>Areas of Agreement</h2>
<ul>
{{range .Synthesis.Agreements}}<li>{{.}}</li>
{{end}}</ul>{{end}}
{{if .Synthesis.KnowledgeGaps}}<h2>Knowledge Gaps</h2>
<ul>
{{range .Synthesis.KnowledgeGaps}}<li>{{.}}</li>
{{end}}</ul>{{end}}
</body>
</html>
`))

var markdownTmpl = texttemplate.Must(texttemplate.New("report").Parse(`# Research Report: {{.Synthesis.Topic}}

*Generated {{.GeneratedAt}} from {{.Synthesis.SourceCount}} source(s).*
{{if .IncludeTOC}}
## Contents
{{range .Sections}}- {{.}}
{{end}}{{end}}
## Executive Summary

{{.Synthesis.ExecutiveSummary}}
{{if .Synthesis.KeyFindings}}
## Key Findings
{{range .Synthesis.KeyFindings}}- {{.Text}} ([source]({{.SourceURL}}))
{{end}}{{end}}{{if .Synthesis.Trends}}
## Trends
{{range .Synthesis.Trends}}- **{{.Direction}}** ({{.Mentions}} mention(s)): {{.Description}}
{{end}}{{end}}{{if .Synthesis.Agreements}}
## Areas of Agreement
{{range .Synthesis.Agreements}}- {{.}}
{{end}}{{end}}{{if .Synthesis.KnowledgeGaps}}
## Knowledge Gaps
{{range .Synthesis.KnowledgeGaps}}- {{.}}
{{end}}{{end}}`))

func renderHTML(data reportData) (string, error) {
	var b strings.Builder
	if err := htmlTmpl.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func renderMarkdown(data reportData) (string, error) {
	var b strings.Builder
	if err := markdownTmpl.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "report"
	}
	return b.String()
}
