package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/nomadiq-labs/parklake/internal/validation"
	"github.com/nomadiq-labs/parklake/pkg/core"
)

const timeFormat = "2006-01-02 15:04:05"

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "-"
	}
	return d.Round(time.Millisecond).String()
}

func renderRuns(w io.Writer, runs []*core.Run) {
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(w, "(no runs)")
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Run", "Trigger", "Status", "Started", "Duration", "Error"})
	for _, r := range runs {
		t.AppendRow(table.Row{
			r.ID,
			r.Trigger,
			r.Status,
			r.StartedAt.Local().Format(timeFormat),
			formatDuration(r.Duration()),
			r.Error,
		})
	}
	t.Render()
}

func renderRun(w io.Writer, run *core.Run, stages []*core.StageRun) {
	_, _ = fmt.Fprintf(w, "Run %s: %s (%s)\n", run.ID, run.Status, formatDuration(run.Duration()))
	if run.Error != "" {
		_, _ = fmt.Fprintf(w, "Error: %s\n", run.Error)
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"#", "Stage", "Status", "Detail", "Time", "Error"})
	for _, s := range stages {
		t.AppendRow(table.Row{
			s.Position + 1,
			s.Stage,
			s.Status,
			s.Detail,
			formatDuration(time.Duration(s.ExecutionMS) * time.Millisecond),
			s.Error,
		})
	}
	t.Render()
}

func renderValidation(w io.Writer, summary *validation.Summary, results []validation.Result, all bool) {
	_, _ = fmt.Fprintf(w, "Validation %s: %d/%d checks failed\n", summary.Layer, summary.Failures, summary.Total)
	_, _ = fmt.Fprintf(w, "Report: %s\n", summary.ReportPath)

	t := newTable(w)
	t.AppendHeader(table.Row{"Table", "Rule", "Result", "Details"})
	shown := 0
	for _, r := range results {
		if r.Passed && !all {
			continue
		}
		result := "FAIL"
		if r.Passed {
			result = "PASS"
		}
		t.AppendRow(table.Row{r.Table, r.Rule, result, r.Details})
		shown++
	}
	if shown > 0 {
		t.Render()
	}
}

func renderSummaries(w io.Writer, summaries []*core.ValidationSummary) {
	if len(summaries) == 0 {
		_, _ = fmt.Fprintln(w, "(no validation summaries)")
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Created", "Layer", "Failures", "Checks", "Report"})
	for _, s := range summaries {
		t.AppendRow(table.Row{
			s.CreatedAt.Local().Format(timeFormat),
			s.Layer,
			s.Failures,
			s.Total,
			s.ReportPath,
		})
	}
	t.Render()
}
