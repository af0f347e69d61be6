package reporting

import (
	"fmt"

	"github.com/rankrunner/rankrunner/types"
)

// Tree is the expected shape of a merged report, computed from the suite
// declaration before any worker runs: suite at the root, one branch per
// configuration when parameterized, method nodes beneath, and one leaf per
// rank under each method. Sinks that receive the tree can show every
// expected result slot, including slots no event ever fills.
type Tree struct {
	Suite  string
	Root   *TreeNode
	leaves []types.TestID
}

// TreeNode is one node of the expected-report tree. Leaf is nil on interior
// nodes.
type TreeNode struct {
	Name     string
	Children []*TreeNode
	Leaf     *types.TestID
}

// Leaves returns every expected test identity in replay order: ascending
// configuration, declared method order, ascending rank.
func (t *Tree) Leaves() []types.TestID {
	out := make([]types.TestID, len(t.leaves))
	copy(out, t.leaves)
	return out
}

// Walk visits every node depth-first, handing the visitor its depth.
func (t *Tree) Walk(visit func(depth int, node *TreeNode)) {
	var walk func(depth int, n *TreeNode)
	walk = func(depth int, n *TreeNode) {
		visit(depth, n)
		for _, c := range n.Children {
			walk(depth+1, c)
		}
	}
	walk(0, t.Root)
}

// BuildTopology assembles the expected-report tree for one suite in a
// single call. configs is the parameterized-configuration count, zero for a
// plain run.
func BuildTopology(suite string, configs int, methods []string, ranks int) (*Tree, error) {
	return NewTreeBuilder(suite).
		WithConfigs(configs).
		WithMethods(methods...).
		WithRanks(ranks).
		Build()
}

// TreeBuilder assembles the expected-report tree for one suite.
type TreeBuilder struct {
	suite   string
	configs int
	methods []string
	ranks   int
}

// NewTreeBuilder creates a builder for the named suite.
func NewTreeBuilder(suite string) *TreeBuilder {
	return &TreeBuilder{suite: suite, ranks: 1}
}

// WithConfigs sets the number of parameterized configurations. Zero means a
// plain, non-parameterized run.
func (b *TreeBuilder) WithConfigs(n int) *TreeBuilder {
	b.configs = n
	return b
}

// WithMethods sets the declared method names in execution order.
func (b *TreeBuilder) WithMethods(names ...string) *TreeBuilder {
	b.methods = names
	return b
}

// WithRanks sets the worker count.
func (b *TreeBuilder) WithRanks(n int) *TreeBuilder {
	b.ranks = n
	return b
}

// Build assembles the tree.
func (b *TreeBuilder) Build() (*Tree, error) {
	if b.suite == "" {
		return nil, fmt.Errorf("tree builder requires a suite name")
	}
	if len(b.methods) == 0 {
		return nil, fmt.Errorf("tree builder requires at least one method")
	}
	if b.ranks < 1 {
		return nil, fmt.Errorf("tree builder requires at least one rank, got %d", b.ranks)
	}

	tree := &Tree{Suite: b.suite, Root: &TreeNode{Name: b.suite}}

	configs := []int{-1}
	if b.configs > 0 {
		configs = make([]int, b.configs)
		for i := range configs {
			configs[i] = i
		}
	}

	for _, cfg := range configs {
		parent := tree.Root
		if cfg >= 0 {
			node := &TreeNode{Name: fmt.Sprintf("config %d", cfg)}
			tree.Root.Children = append(tree.Root.Children, node)
			parent = node
		}
		for _, method := range b.methods {
			methodNode := &TreeNode{Name: method}
			parent.Children = append(parent.Children, methodNode)
			for rank := 0; rank < b.ranks; rank++ {
				id := types.TestID{Suite: b.suite, Config: cfg, Method: method}.Tagged(rank)
				methodNode.Children = append(methodNode.Children, &TreeNode{
					Name: id.Method,
					Leaf: &id,
				})
				tree.leaves = append(tree.leaves, id)
			}
		}
	}
	return tree, nil
}
