// Package topology takes a snapshot of the machine's NUMA layout: which nodes are online, how
// much memory each one has, and how the kernel's buddy allocator currently has it split up.
package topology

import (
	"strconv"

	"github.com/cockroachdb/errors"
	ghwopt "github.com/jaypipes/ghw/pkg/option"
	ghwtopology "github.com/jaypipes/ghw/pkg/topology"
	"github.com/prometheus/procfs"
	"golang.org/x/exp/slices"
)

// DefaultMaxOrder is the buddy allocator ceiling used when /proc/buddyinfo cannot be read. It
// matches the kernel's long-standing MAX_ORDER of 11, i.e. blocks of up to 2^10 pages.
const DefaultMaxOrder = 11

// Node is a single online NUMA node
type Node struct {
	ID int
	// TotalBytes is the physical memory attached to the node, 0 if unknown
	TotalBytes int64
	// UsableBytes is the memory the kernel can hand out from the node, 0 if unknown
	UsableBytes int64
}

// OnlineNodes enumerates the NUMA nodes currently online under sysRoot (usually "/"), sorted by
// id. The result is a snapshot: nodes that come online later are not included.
func OnlineNodes(sysRoot string) ([]Node, error) {
	info, err := ghwtopology.New(ghwopt.WithChroot(sysRoot), ghwopt.WithNullAlerter())
	if err != nil {
		return nil, errors.Wrapf(err, "cannot discover machine topology under %s", sysRoot)
	}

	nodes := nodesFromInfo(info)
	if len(nodes) == 0 {
		return nil, errors.Newf("no NUMA nodes found under %s", sysRoot)
	}
	return nodes, nil
}

func nodesFromInfo(info *ghwtopology.Info) []Node {
	nodes := make([]Node, 0, len(info.Nodes))
	for _, ghwNode := range info.Nodes {
		if ghwNode == nil {
			continue
		}

		node := Node{ID: ghwNode.ID}
		if ghwNode.Memory != nil {
			node.TotalBytes = ghwNode.Memory.TotalPhysicalBytes
			node.UsableBytes = ghwNode.Memory.TotalUsableBytes
		}
		nodes = append(nodes, node)
	}

	slices.SortFunc(nodes, func(left, right Node) int {
		return left.ID - right.ID
	})
	return nodes
}

// NodeIDs returns just the ids of nodes, preserving order
func NodeIDs(nodes []Node) []int {
	ids := make([]int, len(nodes))
	for i, node := range nodes {
		ids[i] = node.ID
	}
	return ids
}

// Zone is one row of /proc/buddyinfo: the free block counts of one memory zone of one node,
// indexed by order
type Zone struct {
	Node       int
	Zone       string
	FreeBlocks []int
}

// FreePages returns the number of free pages represented by the zone's free blocks
func (z Zone) FreePages() int {
	var total int
	for order, count := range z.FreeBlocks {
		total += count << order
	}
	return total
}

// ReadBuddyInfo parses /proc/buddyinfo under procRoot (usually "/proc")
func ReadBuddyInfo(procRoot string) ([]Zone, error) {
	fs, err := procfs.NewFS(procRoot)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open procfs at %s", procRoot)
	}

	rows, err := fs.BuddyInfo()
	if err != nil {
		return nil, errors.Wrap(err, "cannot read buddyinfo")
	}

	zones := make([]Zone, 0, len(rows))
	for _, row := range rows {
		node, err := strconv.Atoi(row.Node)
		if err != nil {
			return nil, errors.Wrapf(err, "buddyinfo has an invalid node %q", row.Node)
		}

		freeBlocks := make([]int, len(row.Sizes))
		for order, count := range row.Sizes {
			freeBlocks[order] = int(count)
		}

		zones = append(zones, Zone{
			Node:       node,
			Zone:       row.Zone,
			FreeBlocks: freeBlocks,
		})
	}

	return zones, nil
}

// MaxOrder returns the exclusive ceiling on block orders implied by the buddyinfo columns, or
// DefaultMaxOrder if zones is empty
func MaxOrder(zones []Zone) int {
	if len(zones) == 0 || len(zones[0].FreeBlocks) == 0 {
		return DefaultMaxOrder
	}
	return len(zones[0].FreeBlocks)
}

// FreePagesByNode sums the free pages of every zone on each node
func FreePagesByNode(zones []Zone) map[int]int {
	free := make(map[int]int)
	for _, zone := range zones {
		free[zone.Node] += zone.FreePages()
	}
	return free
}
