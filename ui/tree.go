// Package ui holds the box-drawing primitives used by the text report
// renderers.
package ui

import "strings"

// Tree connectors.
const (
	TreeBranch     = "├── " // node with siblings below
	TreeLastBranch = "└── " // last node of its parent
	TreeContinue   = "│   " // ancestor has siblings below
	TreeIndent     = "    " // ancestor was its parent's last child
)

// BuildTreePrefix renders the connector prefix for a node at the given
// depth. parentIsLast records, per ancestor level, whether that ancestor
// was the last child of its own parent.
func BuildTreePrefix(depth int, isLast bool, parentIsLast []bool) string {
	if depth == 0 {
		return ""
	}

	var prefix strings.Builder
	for i := 0; i < depth-1; i++ {
		if i < len(parentIsLast) && parentIsLast[i] {
			prefix.WriteString(TreeIndent)
		} else {
			prefix.WriteString(TreeContinue)
		}
	}

	if isLast {
		prefix.WriteString(TreeLastBranch)
	} else {
		prefix.WriteString(TreeBranch)
	}
	return prefix.String()
}
