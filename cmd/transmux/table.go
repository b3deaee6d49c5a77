package main

import (
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"transmux/internal/glossary"
	"transmux/internal/manifest"
)

func newTableWriter(header table.Row) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(header)
	return tw
}

// stageTable renders a job manifest for the status view. The error message
// wins over the skip reason in the detail column; the duration column is
// right-aligned and stages that never ran show a dash.
func stageTable(stages []manifest.StageStatus) string {
	tw := newTableWriter(table.Row{"Stage", "State", "Duration", "Detail"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	for _, stage := range stages {
		detail := stage.Reason
		if stage.Error != "" {
			detail = stage.Error
		}
		tw.AppendRow(table.Row{stage.Name, string(stage.State), formatStageDuration(stage.DurationSec), detail})
	}
	return tw.Render()
}

func formatStageDuration(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	return time.Duration(seconds * float64(time.Second)).Round(time.Millisecond).String()
}

// termTable renders resolved glossary terms with their provenance tier.
func termTable(terms []glossary.Term) string {
	tw := newTableWriter(table.Row{"Source", "Translation", "Tier"})
	for _, term := range terms {
		tw.AppendRow(table.Row{term.Source, term.Translation, string(term.Tier)})
	}
	return tw.Render()
}

// learnedTable renders usage counters with right-aligned counts.
func learnedTable(entries []glossary.LearnedTerm) string {
	tw := newTableWriter(table.Row{"Term", "Candidate", "Seen", "Successes"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	for _, entry := range entries {
		tw.AppendRow(table.Row{entry.Term, entry.Candidate, strconv.Itoa(entry.Count), strconv.Itoa(entry.SuccessCount)})
	}
	return tw.Render()
}
