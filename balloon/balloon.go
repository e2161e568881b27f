// Package balloon inflates a reservation of physical pages spread evenly across NUMA nodes and
// later deflates it, releasing exactly the blocks it acquired.
package balloon

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/balloon/balloon/internal/budget"
	"github.com/vkngwrapper/balloon/ledger"
	"github.com/vkngwrapper/balloon/memutils"
	"github.com/vkngwrapper/balloon/pages"
	"golang.org/x/exp/slices"
	"golang.org/x/exp/slog"
)

// Balloon holds a set of blocks drawn from a pages.Source. It is inflated once with Inflate and
// deflated once with Deflate.
type Balloon struct {
	logger   *slog.Logger
	source   pages.Source
	nodes    []int
	maxOrder int
	flags    CreateFlags

	mutex  optionalMutex
	state  State
	ledger *ledger.Ledger[pages.Handle]
	budget *budget.NodeCounters

	inflateReport InflateReport
}

// InflateReport describes the outcome of Inflate
type InflateReport struct {
	// TotalPages is the page count Inflate was called with
	TotalPages int
	// PerNode is the target every node was given
	PerNode int
	// Dropped is the remainder of TotalPages that was not assigned to any node
	Dropped int
	// Nodes has one report per node, in the order nodes were visited
	Nodes []NodeReport
	// Acquired is the number of pages acquired across every node
	Acquired int
	// Unmet is the number of target pages that could not be acquired across every node
	Unmet int
}

// Err returns a combination of the errors of every node that fell short of its target, or nil
func (r InflateReport) Err() error {
	var err error
	for _, node := range r.Nodes {
		err = errors.CombineErrors(err, node.Err())
	}
	return err
}

func (b *Balloon) State() State {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return b.state
}

// Nodes returns the node ids the balloon draws from, in ascending order
func (b *Balloon) Nodes() []int { return slices.Clone(b.nodes) }

// MaxOrder returns the exclusive ceiling on block orders
func (b *Balloon) MaxOrder() int { return b.maxOrder }

// PageSize returns the size in bytes of a single page of the underlying source
func (b *Balloon) PageSize() int { return b.source.PageSize() }

// Inflate divides totalPages evenly across the balloon's nodes and acquires each node's share
// with the largest blocks the source will give. Any remainder of the division is dropped. Nodes
// that cannot be fully satisfied are reported, not treated as failures: the returned error is
// only non-nil for invalid input or when the balloon has already been inflated or deflated.
func (b *Balloon) Inflate(totalPages int) (InflateReport, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if totalPages < 0 {
		return InflateReport{}, errors.Newf("total page count must be non-negative, got %d", totalPages)
	}
	if b.state != StateUninitialized {
		return InflateReport{}, errors.Wrapf(ErrInvalidState, "cannot inflate a balloon that is %s", b.state)
	}
	b.state = StateAcquiring

	perNode := totalPages / len(b.nodes)
	report := InflateReport{
		TotalPages: totalPages,
		PerNode:    perNode,
		Dropped:    totalPages - perNode*len(b.nodes),
		Nodes:      make([]NodeReport, 0, len(b.nodes)),
	}

	b.logger.Info("inflating balloon",
		slog.Int("totalPages", totalPages),
		slog.Int("onlineNodes", len(b.nodes)),
		slog.Int("pagesPerNode", perNode))

	for _, node := range b.nodes {
		nodeReport := b.acquireForNode(node, perNode)
		report.Nodes = append(report.Nodes, nodeReport)
		report.Acquired += nodeReport.Acquired
		report.Unmet += nodeReport.Unmet
	}

	memutils.DebugValidate(b.ledger)

	b.inflateReport = report
	b.state = StateHolding
	return report, nil
}

// Statistics sums the blocks the balloon currently holds into stats
func (b *Balloon) Statistics(stats *memutils.DetailedStatistics) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.ledger.AddDetailedStatistics(stats)
}

// NodeStatistics sums the blocks the balloon currently holds on node into stats. It returns
// false if node is not one of the balloon's nodes.
func (b *Balloon) NodeStatistics(node int, stats *memutils.Statistics) bool {
	if !slices.Contains(b.nodes, node) {
		return false
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.budget.AddStatistics(node, stats)
	return true
}
