package reporting

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/rankrunner/rankrunner/types"
)

// ConsoleRenderer prints a merged report as a table on the console.
type ConsoleRenderer struct {
	out io.Writer
}

// NewConsoleRenderer creates a renderer writing to out.
func NewConsoleRenderer(out io.Writer) *ConsoleRenderer {
	return &ConsoleRenderer{out: out}
}

// Render prints the merged results grouped by configuration and method,
// one row per rank leaf, followed by a totals footer.
func (r *ConsoleRenderer) Render(runID string, report *MergedReport, duration time.Duration) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle(fmt.Sprintf("Parallel Test Results (%s)", formatDuration(duration)))

	t.AppendHeader(table.Row{"Test", "Status", "Details"})

	for _, leaf := range report.Results() {
		t.AppendRow(table.Row{
			leaf.ID.String(),
			getResultString(leaf.Status),
			truncateFailure(leaf.Failure),
		})
	}

	switch report.Status() {
	case types.StatusPass:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	case types.StatusSkip:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	passed, failed, skipped, missing := report.Stats()
	t.AppendFooter(table.Row{
		"TOTAL",
		fmt.Sprintf("%d passed, %d failed, %d skipped, %d missing", passed, failed, skipped, missing),
		fmt.Sprintf("run %s", runID),
	})
	t.Render()
}

// getResultString returns the status marker shown in the table. An empty
// status means the slot never received a result.
func getResultString(status types.RunStatus) string {
	switch status {
	case types.StatusPass:
		return "✓ pass"
	case types.StatusSkip:
		return "- skip"
	case types.StatusFail:
		return "✗ fail"
	default:
		return "? none"
	}
}

// truncateFailure keeps failure details down to one table-friendly line.
func truncateFailure(failure string) string {
	const max = 80
	for i := 0; i < len(failure); i++ {
		if failure[i] == '\n' {
			failure = failure[:i]
			break
		}
	}
	if len(failure) > max {
		return failure[:max-3] + "..."
	}
	return failure
}

// formatDuration formats run duration to seconds with one decimal place.
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
