package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rankrunner/rankrunner/types"
	"github.com/rankrunner/rankrunner/ui"
)

// TextSummaryWriter persists a tree-style text summary of a merged report
// under the artifact directory, one file per run. The summary survives the
// console scrollback and can be attached to CI runs.
type TextSummaryWriter struct {
	baseDir string
}

// NewTextSummaryWriter creates a summary writer rooted at baseDir.
func NewTextSummaryWriter(baseDir string) *TextSummaryWriter {
	return &TextSummaryWriter{baseDir: baseDir}
}

// Write renders the summary and stores it as testrun-<runID>/summary.log.
// It returns the written path.
func (w *TextSummaryWriter) Write(runID string, tree *Tree, report *MergedReport, duration time.Duration) (string, error) {
	outputDir := filepath.Join(w.baseDir, "testrun-"+runID)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("creating summary directory %s: %w", outputDir, err)
	}

	content := FormatTreeSummary(tree, report, duration)

	summaryFile := filepath.Join(outputDir, "summary.log")
	if err := os.WriteFile(summaryFile, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("writing summary file: %w", err)
	}
	return summaryFile, nil
}

// FormatTreeSummary renders the expected-report tree with each leaf's
// merged outcome, followed by totals and the overall status.
func FormatTreeSummary(tree *Tree, report *MergedReport, duration time.Duration) string {
	outcomes := make(map[string]*LeafResult)
	for _, leaf := range report.Results() {
		outcomes[leaf.ID.String()] = leaf
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Parallel Test Results (%s)\n", formatDuration(duration))
	writeTreeNode(&b, tree.Root, 0, true, nil, outcomes)

	passed, failed, skipped, missing := report.Stats()
	fmt.Fprintf(&b, "\nPassed: %d, Failed: %d, Skipped: %d, Missing: %d\n", passed, failed, skipped, missing)
	fmt.Fprintf(&b, "Status: %s\n", report.Status())
	return b.String()
}

func writeTreeNode(b *strings.Builder, node *TreeNode, depth int, isLast bool, parentIsLast []bool, outcomes map[string]*LeafResult) {
	prefix := ui.BuildTreePrefix(depth, isLast, parentIsLast)
	if node.Leaf == nil {
		fmt.Fprintf(b, "%s%s\n", prefix, node.Name)
	} else {
		var status types.RunStatus
		var failure string
		if leaf := outcomes[node.Leaf.String()]; leaf != nil {
			status = leaf.Status
			failure = leaf.Failure
		}
		line := fmt.Sprintf("%s%s: %s", prefix, node.Name, getResultString(status))
		if failure != "" {
			line += " (" + truncateFailure(failure) + ")"
		}
		b.WriteString(line + "\n")
	}

	childParents := parentIsLast
	if depth > 0 {
		childParents = append(append([]bool{}, parentIsLast...), isLast)
	}
	for i, c := range node.Children {
		writeTreeNode(b, c, depth+1, i == len(node.Children)-1, childParents, outcomes)
	}
}
