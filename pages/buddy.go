package pages

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/vkngwrapper/balloon/memutils"
	"golang.org/x/exp/slices"
	"golang.org/x/exp/slog"
)

type buddyNode struct {
	pages     int
	freePages int
	// one set of free page frame numbers per order
	free []*swiss.Map[int, struct{}]
}

type buddyBlock struct {
	node  int
	pfn   int
	order int
}

// BuddySource is a Source that simulates a per-node binary buddy allocator instead of touching
// real memory. Each node owns a fixed arena of pages; allocations split the smallest free block
// that fits and frees merge with their buddy whenever it is also free. It is used for dry runs
// and to exercise the balloon against a realistic free-area layout.
type BuddySource struct {
	logger   *slog.Logger
	maxOrder int
	pageSize int

	mutex      sync.Mutex
	nodes      *swiss.Map[int, *buddyNode]
	nodeIDs    []int
	allocated  *swiss.Map[Handle, buddyBlock]
	nextHandle Handle
}

var _ Source = &BuddySource{}

// NewBuddySource creates a simulated source. nodePages maps each NUMA node id to the number of
// pages in its arena; maxOrder is the exclusive ceiling on block orders, as in the kernel's
// MAX_ORDER.
func NewBuddySource(logger *slog.Logger, maxOrder, pageSize int, nodePages map[int]int) (*BuddySource, error) {
	if maxOrder < 1 || maxOrder > 32 {
		return nil, errors.Newf("maxOrder must be in [1, 32], got %d", maxOrder)
	}
	if pageSize < 1 {
		return nil, errors.Newf("page size must be positive, got %d", pageSize)
	}
	err := memutils.CheckPow2(pageSize, "page size")
	if err != nil {
		return nil, err
	}
	if len(nodePages) == 0 {
		return nil, errors.New("a buddy page source needs at least one node")
	}

	source := &BuddySource{
		logger:    logger,
		maxOrder:  maxOrder,
		pageSize:  pageSize,
		nodes:     swiss.NewMap[int, *buddyNode](uint32(len(nodePages))),
		allocated: swiss.NewMap[Handle, buddyBlock](64),
	}

	for nodeID, pageCount := range nodePages {
		if nodeID < 0 {
			return nil, errors.Newf("node ids must be non-negative, got %d", nodeID)
		}
		if pageCount < 0 {
			return nil, errors.Newf("node %d has a negative page count %d", nodeID, pageCount)
		}

		source.nodes.Put(nodeID, source.carveArena(pageCount))
		source.nodeIDs = append(source.nodeIDs, nodeID)
	}
	slices.Sort(source.nodeIDs)

	return source, nil
}

// carveArena splits pageCount pages into the largest naturally-aligned free blocks
func (s *BuddySource) carveArena(pageCount int) *buddyNode {
	node := &buddyNode{
		pages:     pageCount,
		freePages: pageCount,
		free:      make([]*swiss.Map[int, struct{}], s.maxOrder),
	}
	for order := range node.free {
		node.free[order] = swiss.NewMap[int, struct{}](8)
	}

	pfn := 0
	for pfn < pageCount {
		order := s.maxOrder - 1
		for order > 0 && (pfn%memutils.OrderPages(order) != 0 || pfn+memutils.OrderPages(order) > pageCount) {
			order--
		}

		node.free[order].Put(pfn, struct{}{})
		pfn += memutils.OrderPages(order)
	}

	return node
}

func (s *BuddySource) PageSize() int { return s.pageSize }
func (s *BuddySource) MaxOrder() int { return s.maxOrder }

// Nodes returns the ids of the simulated nodes in ascending order
func (s *BuddySource) Nodes() []int {
	return slices.Clone(s.nodeIDs)
}

func (s *BuddySource) Allocate(node, order int) (Handle, error) {
	err := memutils.CheckOrder(order, s.maxOrder, "order")
	if err != nil {
		return NoHandle, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	n, ok := s.nodes.Get(node)
	if !ok {
		return NoHandle, errors.Newf("node %d is not part of this page source", node)
	}

	current := order
	for current < s.maxOrder && n.free[current].Count() == 0 {
		current++
	}
	if current == s.maxOrder {
		return NoHandle, errors.Wrapf(ErrUnavailable, "node %d has no free block of order %d or above", node, order)
	}

	pfn := lowestFrame(n.free[current])
	n.free[current].Delete(pfn)

	// Hand the upper halves back as we split down to the requested order
	for current > order {
		current--
		n.free[current].Put(pfn+memutils.OrderPages(current), struct{}{})
	}

	n.freePages -= memutils.OrderPages(order)
	s.nextHandle++
	handle := s.nextHandle
	s.allocated.Put(handle, buddyBlock{node: node, pfn: pfn, order: order})

	s.logger.Debug("BuddySource::Allocate", slog.Int("node", node), slog.Int("order", order), slog.Int("pfn", pfn))
	return handle, nil
}

func (s *BuddySource) Free(handle Handle, order int) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	block, ok := s.allocated.Get(handle)
	if !ok {
		return errors.Newf("handle %d does not refer to a live block", handle)
	}
	if block.order != order {
		return errors.Newf("block %d was allocated at order %d but freed at order %d", handle, block.order, order)
	}
	s.allocated.Delete(handle)

	n, _ := s.nodes.Get(block.node)
	n.freePages += memutils.OrderPages(order)

	pfn := block.pfn
	current := order
	for current < s.maxOrder-1 {
		buddy := pfn ^ memutils.OrderPages(current)
		if !n.free[current].Has(buddy) {
			break
		}

		n.free[current].Delete(buddy)
		pfn = memutils.AlignDown(pfn, uint(memutils.OrderPages(current+1)))
		current++
	}
	n.free[current].Put(pfn, struct{}{})

	s.logger.Debug("BuddySource::Free", slog.Int("node", block.node), slog.Int("order", order), slog.Int("pfn", block.pfn))
	return nil
}

// FreePages returns the number of unallocated pages on node, or 0 for an unknown node
func (s *BuddySource) FreePages(node int) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	n, ok := s.nodes.Get(node)
	if !ok {
		return 0
	}
	return n.freePages
}

// FreeBlocks returns the number of free blocks of each order on node, indexed by order, in the
// same shape as a row of /proc/buddyinfo
func (s *BuddySource) FreeBlocks(node int) []int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	n, ok := s.nodes.Get(node)
	if !ok {
		return nil
	}

	counts := make([]int, s.maxOrder)
	for order, set := range n.free {
		counts[order] = set.Count()
	}
	return counts
}

// LiveBlocks returns the number of blocks currently handed out across all nodes
func (s *BuddySource) LiveBlocks() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.allocated.Count()
}

func lowestFrame(set *swiss.Map[int, struct{}]) int {
	lowest := -1
	set.Iter(func(pfn int, _ struct{}) bool {
		if lowest < 0 || pfn < lowest {
			lowest = pfn
		}
		return false
	})
	return lowest
}
