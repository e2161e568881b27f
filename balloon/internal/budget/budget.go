package budget

import (
	"fmt"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/vkngwrapper/balloon/memutils"
)

// ErrLimitExceeded is returned by TryAddBlock when a block would push a node past its page limit
var ErrLimitExceeded = errors.New("node page limit exceeded")

type nodeCounters struct {
	// Number of blocks currently held from the node
	blockCount int32
	// Number of pages currently held from the node
	pageCount int64
	// Maximum number of pages that may be held from the node, or -1 for no limit
	limit int64
}

// NodeCounters tracks the blocks and pages a balloon holds on each NUMA node and enforces
// optional per-node page limits.
type NodeCounters struct {
	nodes *swiss.Map[int, *nodeCounters]
}

// New creates counters for nodes. limits may be nil; nodes without an entry have no limit.
func New(nodes []int, limits map[int]int) *NodeCounters {
	counters := &NodeCounters{
		nodes: swiss.NewMap[int, *nodeCounters](uint32(len(nodes))),
	}

	for _, node := range nodes {
		limit := int64(-1)
		if nodeLimit, ok := limits[node]; ok {
			limit = int64(nodeLimit)
		}
		counters.nodes.Put(node, &nodeCounters{limit: limit})
	}

	return counters
}

func (c *NodeCounters) counters(node int) *nodeCounters {
	counters, ok := c.nodes.Get(node)
	if !ok {
		panic(fmt.Sprintf("node %d has no budget counters", node))
	}
	return counters
}

// TryAddBlock records a block of pages on node, unless doing so would exceed the node's limit
func (c *NodeCounters) TryAddBlock(node, pages int) error {
	counters := c.counters(node)

	for {
		currentVal := atomic.LoadInt64(&counters.pageCount)
		targetVal := currentVal + int64(pages)

		if counters.limit >= 0 && targetVal > counters.limit {
			return errors.Wrapf(ErrLimitExceeded, "node %d holds %d pages, limit %d, requested %d", node, currentVal, counters.limit, pages)
		}

		if atomic.CompareAndSwapInt64(&counters.pageCount, currentVal, targetVal) {
			break
		}
	}

	atomic.AddInt32(&counters.blockCount, 1)
	return nil
}

// RemoveBlock forgets a block of pages on node previously recorded with TryAddBlock
func (c *NodeCounters) RemoveBlock(node, pages int) {
	counters := c.counters(node)

	newVal := atomic.AddInt64(&counters.pageCount, int64(-pages))
	if newVal < 0 {
		panic(fmt.Sprintf("page count budget for node %d went negative", node))
	}

	newCountVal := atomic.AddInt32(&counters.blockCount, -1)
	if newCountVal < 0 {
		panic(fmt.Sprintf("block count budget for node %d went negative", node))
	}
}

// Limit returns the node's page limit and whether one is set
func (c *NodeCounters) Limit(node int) (int, bool) {
	counters := c.counters(node)
	if counters.limit < 0 {
		return 0, false
	}
	return int(counters.limit), true
}

// AddStatistics sums the node's current counters into the provided memutils.Statistics object
func (c *NodeCounters) AddStatistics(node int, stats *memutils.Statistics) {
	counters := c.counters(node)
	stats.BlockCount += int(atomic.LoadInt32(&counters.blockCount))
	stats.PageCount += int(atomic.LoadInt64(&counters.pageCount))
}
