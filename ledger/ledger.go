// Package ledger records every block a balloon acquires, in acquisition order, so that each one
// can later be released with exactly the order it was acquired at.
package ledger

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/pkg/errors"
	"github.com/vkngwrapper/balloon/memutils"
)

// Block is a single contiguous run of 2^Order pages taken from Node. Handle is whatever the
// page source returned for the block and must be passed back to it when the block is freed.
type Block[H any] struct {
	Node   int
	Order  int
	Handle H
}

// Pages returns the number of pages covered by this block
func (b Block[H]) Pages() int {
	return memutils.OrderPages(b.Order)
}

// Ledger is an ordered sequence of live blocks. A block is owned by the ledger from the moment
// it is appended until it is handed back by Drain. Ledger is not safe for concurrent use.
type Ledger[H any] struct {
	maxOrder int
	blocks   []Block[H]
	pages    int
}

var _ memutils.Validatable = &Ledger[int]{}

// New creates an empty Ledger whose blocks all have an order below maxOrder
func New[H any](maxOrder int) *Ledger[H] {
	return &Ledger[H]{
		maxOrder: maxOrder,
		blocks:   []Block[H]{},
	}
}

// Append adds a block to the end of the ledger
func (l *Ledger[H]) Append(block Block[H]) {
	memutils.DebugCheckOrder(block.Order, l.maxOrder, "appended block order")

	l.blocks = append(l.blocks, block)
	l.pages += block.Pages()
}

// Len returns the number of blocks currently held
func (l *Ledger[H]) Len() int { return len(l.blocks) }

// Pages returns the sum of the page counts of every block currently held
func (l *Ledger[H]) Pages() int { return l.pages }

// IsEmpty will return true if the ledger holds no blocks
func (l *Ledger[H]) IsEmpty() bool { return len(l.blocks) == 0 }

// Visit calls visit once for each block in insertion order. Iteration stops at the first error,
// which is returned. visit must not modify the ledger.
func (l *Ledger[H]) Visit(visit func(index int, block Block[H]) error) error {
	for index, block := range l.blocks {
		err := visit(index, block)
		if err != nil {
			return err
		}
	}

	return nil
}

// Drain returns every block in insertion order and leaves the ledger empty. Ownership of the
// returned blocks passes to the caller.
func (l *Ledger[H]) Drain() []Block[H] {
	blocks := l.blocks
	l.blocks = []Block[H]{}
	l.pages = 0
	return blocks
}

// AddStatistics sums this ledger's blocks into the provided memutils.Statistics object
func (l *Ledger[H]) AddStatistics(stats *memutils.Statistics) {
	stats.BlockCount += len(l.blocks)
	stats.PageCount += l.pages
}

// AddDetailedStatistics sums this ledger's blocks into the provided memutils.DetailedStatistics object
func (l *Ledger[H]) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	for _, block := range l.blocks {
		stats.AddBlock(block.Order)
	}
}

// NodeStatistics sums the blocks taken from a single node into the provided memutils.Statistics object
func (l *Ledger[H]) NodeStatistics(node int, stats *memutils.Statistics) {
	for _, block := range l.blocks {
		if block.Node == node {
			stats.AddBlock(block.Order)
		}
	}
}

// Validate performs internal consistency checks on the ledger
func (l *Ledger[H]) Validate() error {
	var sumPages int

	for index, block := range l.blocks {
		if block.Order < 0 || block.Order >= l.maxOrder {
			return errors.Errorf("block at index %d has order %d, but orders must be in [0, %d)", index, block.Order, l.maxOrder)
		}
		if block.Node < 0 {
			return errors.Errorf("block at index %d has invalid node %d", index, block.Node)
		}

		sumPages += block.Pages()
	}

	if sumPages != l.pages {
		return errors.Errorf("ledger blocks add up to %d pages, but the ledger is tracking %d", sumPages, l.pages)
	}

	return nil
}

// WriteJSON populates a json object with the ledger's totals and, when detailed is true, one
// entry per block in insertion order
func (l *Ledger[H]) WriteJSON(json *jwriter.ObjectState, detailed bool) {
	json.Name("BlockCount").Int(len(l.blocks))
	json.Name("Pages").Int(l.pages)

	if !detailed {
		return
	}

	arrayState := json.Name("Blocks").Array()
	defer arrayState.End()

	for _, block := range l.blocks {
		obj := arrayState.Object()
		obj.Name("Node").Int(block.Node)
		obj.Name("Order").Int(block.Order)
		obj.Name("Pages").Int(block.Pages())
		obj.End()
	}
}
