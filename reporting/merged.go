package reporting

import (
	"sync"

	"github.com/rankrunner/rankrunner/types"
)

// LeafResult is the merged outcome of one expected result slot. A leaf that
// never received an event keeps an empty Status; that is how a silently
// degraded worker appears in the final report.
type LeafResult struct {
	ID      types.TestID
	Status  types.RunStatus
	Failure string
}

// MergedReport accumulates replayed events into per-leaf outcomes and an
// overall run status. It folds duplicate suite boundaries, so replaying N
// artifacts each carrying their own start/finish pair still reads as one
// suite execution. Safe for concurrent use.
type MergedReport struct {
	mu       sync.Mutex
	started  bool
	finished bool
	order    []string
	results  map[string]*LeafResult
	tree     *Tree
}

var _ TopologySink = (*MergedReport)(nil)

// NewMergedReport creates an empty merged report.
func NewMergedReport() *MergedReport {
	return &MergedReport{results: make(map[string]*LeafResult)}
}

// RegisterTopology pre-creates every expected leaf in replay order, so the
// report can show slots that no event ever fills.
func (m *MergedReport) RegisterTopology(tree *Tree) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tree = tree
	for _, id := range tree.Leaves() {
		m.leafLocked(id)
	}
}

// SuiteStarted implements the Sink interface
func (m *MergedReport) SuiteStarted(types.TestID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = true
}

// SuiteFinished implements the Sink interface
func (m *MergedReport) SuiteFinished(types.TestID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = true
}

// TestStarted implements the Sink interface
func (m *MergedReport) TestStarted(id types.TestID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leafLocked(id)
}

// TestFinished implements the Sink interface. A leaf that finished without
// a failure or assumption event passed.
func (m *MergedReport) TestFinished(id types.TestID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	leaf := m.leafLocked(id)
	if leaf.Status == "" {
		leaf.Status = types.StatusPass
	}
}

// TestIgnored implements the Sink interface
func (m *MergedReport) TestIgnored(id types.TestID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leafLocked(id).Status = types.StatusSkip
}

// TestFailed implements the Sink interface
func (m *MergedReport) TestFailed(id types.TestID, failure string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	leaf := m.leafLocked(id)
	leaf.Status = types.StatusFail
	leaf.Failure = failure
}

// AssumptionFailed implements the Sink interface. A violated assumption is
// a skip with a recorded reason, not a failure.
func (m *MergedReport) AssumptionFailed(id types.TestID, failure string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	leaf := m.leafLocked(id)
	if leaf.Status != types.StatusFail {
		leaf.Status = types.StatusSkip
		leaf.Failure = failure
	}
}

func (m *MergedReport) leafLocked(id types.TestID) *LeafResult {
	key := id.String()
	if leaf, ok := m.results[key]; ok {
		return leaf
	}
	leaf := &LeafResult{ID: id}
	m.results[key] = leaf
	m.order = append(m.order, key)
	return leaf
}

// Results returns every leaf in order: topology order for registered
// slots, arrival order for anything beyond the topology.
func (m *MergedReport) Results() []*LeafResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*LeafResult, 0, len(m.order))
	for _, key := range m.order {
		out = append(out, m.results[key])
	}
	return out
}

// Stats returns the leaf counts by outcome. Leaves with no result at all
// are counted separately.
func (m *MergedReport) Stats() (passed, failed, skipped, missing int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range m.order {
		switch m.results[key].Status {
		case types.StatusPass:
			passed++
		case types.StatusFail:
			failed++
		case types.StatusSkip:
			skipped++
		default:
			missing++
		}
	}
	return passed, failed, skipped, missing
}

// Status reduces the merged leaves to one run status: fail if anything
// failed, skip if nothing passed, pass otherwise.
func (m *MergedReport) Status() types.RunStatus {
	passed, failed, _, _ := m.Stats()
	switch {
	case failed > 0:
		return types.StatusFail
	case passed == 0:
		return types.StatusSkip
	default:
		return types.StatusPass
	}
}

// Complete reports whether the suite boundaries were both observed.
func (m *MergedReport) Complete() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started && m.finished
}
