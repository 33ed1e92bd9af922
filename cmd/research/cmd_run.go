package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mwrenn/research-pipeline/internal/config"
	"github.com/mwrenn/research-pipeline/internal/domain"
	"github.com/mwrenn/research-pipeline/pkg/research"
)

var runFlags struct {
	topic      string
	query      string
	maxSources int
	format     string
	outputDir  string
	configPath string
	verbose    bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one research run",
	RunE:  runResearch,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.topic, "topic", "", "Research topic")
	f.StringVar(&runFlags.query, "query", "", "Search query (defaults to the topic)")
	f.IntVar(&runFlags.maxSources, "max-sources", domain.DefaultMaxSources, "Maximum sources to collect")
	f.StringVar(&runFlags.format, "format", string(domain.FormatMarkdown), "Report format: html, markdown, or pdf")
	f.StringVar(&runFlags.outputDir, "output-dir", "", "Directory for rendered reports")
	f.StringVar(&runFlags.configPath, "config", "", "Path to a config file")
	f.BoolVar(&runFlags.verbose, "verbose", false, "Log pipeline internals")
}

func runResearch(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(runFlags.configPath)
	if err != nil {
		return err
	}
	if runFlags.outputDir != "" {
		cfg.Output.Dir = runFlags.outputDir
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(runFlags.verbose),
	}))

	engine, err := research.New(cfg, research.WithLogger(logger))
	if err != nil {
		return err
	}
	defer engine.Close()

	req := domain.ResearchRequest{
		Topic:        runFlags.topic,
		Query:        runFlags.query,
		MaxSources:   runFlags.maxSources,
		OutputFormat: domain.OutputFormat(runFlags.format),
	}

	run, err := engine.Research(cmd.Context(), req)
	if err != nil {
		return err
	}

	printRun(cmd, run)
	if run.Status() != domain.RunCompleted {
		return fmt.Errorf("run %s failed", run.ID)
	}
	return nil
}

func logLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

func printRun(cmd *cobra.Command, run *domain.Run) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:     %s\n", run.ID)
	fmt.Fprintf(out, "Topic:   %s\n", run.Topic)
	fmt.Fprintf(out, "Status:  %s\n", run.Status())
	fmt.Fprintf(out, "Trace:   (%d stages)\n", len(run.Steps))
	for _, step := range run.Steps {
		line := fmt.Sprintf("  %-10s %-9s %s", step.Stage, step.Status, step.Duration.Round(time.Millisecond))
		if step.Error != "" {
			line += " [" + string(step.Failure) + "] " + step.Error
		}
		fmt.Fprintln(out, line)
		if step.Stage == "render" && step.Status == domain.StepCompleted {
			if res, ok := step.Payload.(*domain.RenderResult); ok {
				fmt.Fprintf(out, "Report:  %s\n", res.Report.Path)
			}
		}
	}
}
