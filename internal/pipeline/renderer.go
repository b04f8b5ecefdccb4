package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ppiankov/planeval/internal/dataset"
	"github.com/ppiankov/planeval/internal/model"
)

// CSVHeader is the column layout of the tabular report
var CSVHeader = []string{
	"dataset", "solver", "model",
	"Precision", "Recall", "F1",
	"Object Precision", "Object Recall", "Object F1",
}

// Renderer writes reports to disk and to the terminal
type Renderer struct {
	includeItems bool
}

// NewRenderer creates a renderer
func NewRenderer(includeItems bool) *Renderer {
	return &Renderer{includeItems: includeItems}
}

// RenderFiles writes every enabled report format into dir and returns the written paths
func (r *Renderer) RenderFiles(report *model.Report, dir string, out model.OutputConfig) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	type target struct {
		enabled bool
		ext     string
		write   func(io.Writer, *model.Report) error
	}
	targets := []target{
		{out.CSV, ".csv", r.WriteCSV},
		{out.JSON, ".json", r.WriteJSON},
		{out.Markdown, ".md", r.WriteMarkdown},
	}

	var written []string
	for _, t := range targets {
		if !t.enabled {
			continue
		}
		path := filepath.Join(dir, dataset.ReportBaseName+t.ext)
		if err := writeFile(path, report, t.write); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func writeFile(path string, report *model.Report, write func(io.Writer, *model.Report) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f, report); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// WriteCSV writes one row per run with metrics formatted to four decimals
func (r *Renderer) WriteCSV(w io.Writer, report *model.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, run := range report.Runs {
		a, o := run.Result.ActionMetrics, run.Result.ObjectMetrics
		row := []string{
			run.Key.Dataset, run.Key.Solver, run.Key.Model,
			formatMetric(a.Precision), formatMetric(a.Recall), formatMetric(a.F1),
			formatMetric(o.Precision), formatMetric(o.Recall), formatMetric(o.F1),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the report as indented JSON
func (r *Renderer) WriteJSON(w io.Writer, report *model.Report) error {
	out := *report
	if !r.includeItems {
		out.Runs = make([]model.RunResult, len(report.Runs))
		for i, run := range report.Runs {
			run.Result.PerItem = nil
			out.Runs[i] = run
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// WriteMarkdown writes a table of all runs followed by their signals
func (r *Renderer) WriteMarkdown(w io.Writer, report *model.Report) error {
	var b strings.Builder

	b.WriteString("# Evaluation Report\n\n")
	fmt.Fprintf(&b, "- **Run ID:** `%s`\n", report.RunID)
	fmt.Fprintf(&b, "- **Generated:** %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "- **Aggregation:** %s\n", report.Mode)
	fmt.Fprintf(&b, "- **Consumption:** %s\n", report.Consumption)
	fmt.Fprintf(&b, "- **Lemmatizer:** %s\n\n", report.Lemmatizer)

	b.WriteString("| Dataset | Solver | Model | Items | Skipped | P | R | F1 | Obj P | Obj R | Obj F1 |\n")
	b.WriteString("|---|---|---|---:|---:|---:|---:|---:|---:|---:|---:|\n")
	for _, run := range report.Runs {
		res := run.Result
		fmt.Fprintf(&b, "| %s | %s | %s | %d | %d | %s | %s | %s | %s | %s | %s |\n",
			run.Key.Dataset, run.Key.Solver, run.Key.Model, res.Items, res.Skipped,
			formatMetric(res.ActionMetrics.Precision), formatMetric(res.ActionMetrics.Recall), formatMetric(res.ActionMetrics.F1),
			formatMetric(res.ObjectMetrics.Precision), formatMetric(res.ObjectMetrics.Recall), formatMetric(res.ObjectMetrics.F1))
	}
	if t := report.Total; t != nil {
		fmt.Fprintf(&b, "| **all** | | | %d | %d | %s | %s | %s | %s | %s | %s |\n",
			t.Items, t.Skipped,
			formatMetric(t.ActionMetrics.Precision), formatMetric(t.ActionMetrics.Recall), formatMetric(t.ActionMetrics.F1),
			formatMetric(t.ObjectMetrics.Precision), formatMetric(t.ObjectMetrics.Recall), formatMetric(t.ObjectMetrics.F1))
	}

	var signals []string
	for _, run := range report.Runs {
		for _, sig := range run.Result.Signals {
			signals = append(signals, fmt.Sprintf("- **%s** `%s` %s: %s", sig.Severity, sig.Type, run.Key, sig.Description))
		}
	}
	if len(signals) > 0 {
		b.WriteString("\n## Signals\n\n")
		b.WriteString(strings.Join(signals, "\n"))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA"))
	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

// RenderSummary prints a boxed per-run summary
func (r *Renderer) RenderSummary(w io.Writer, report *model.Report) {
	lines := []string{
		titleStyle.Render(fmt.Sprintf("Evaluation %s (%s, %s)", shortID(report.RunID), report.Mode, report.Consumption)),
	}
	for _, run := range report.Runs {
		res := run.Result
		lines = append(lines, fmt.Sprintf("%s  F1 %s  Obj F1 %s  %s",
			keyStyle.Render(run.Key.String()),
			formatMetric(res.ActionMetrics.F1),
			formatMetric(res.ObjectMetrics.F1),
			keyStyle.Render(fmt.Sprintf("(%d items, %d skipped)", res.Items, res.Skipped)),
		))
		for _, sig := range res.Signals {
			if sig.Type == model.SignalTotalsUndefined {
				lines = append(lines, warnStyle.Render("  ⚠ "+sig.Description))
			}
		}
	}
	if t := report.Total; t != nil {
		lines = append(lines, fmt.Sprintf("%s  F1 %s  Obj F1 %s  %s",
			titleStyle.Render("all runs (micro)"),
			formatMetric(t.ActionMetrics.F1),
			formatMetric(t.ObjectMetrics.F1),
			keyStyle.Render(fmt.Sprintf("(%d items, %d skipped)", t.Items, t.Skipped)),
		))
	}
	fmt.Fprintln(w, boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
}

func formatMetric(v float64) string {
	return fmt.Sprintf("%.4f", v)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
