package balloon

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/balloon/memutils"
	"github.com/vkngwrapper/balloon/pages"
)

type recordedBlock struct {
	node  int
	order int
}

// recordingSource passes through to a BuddySource and remembers every successful allocation
type recordingSource struct {
	*pages.BuddySource
	allocated []recordedBlock
}

func (s *recordingSource) Allocate(node, order int) (pages.Handle, error) {
	handle, err := s.BuddySource.Allocate(node, order)
	if err == nil {
		s.allocated = append(s.allocated, recordedBlock{node: node, order: order})
	}
	return handle, err
}

func TestNodePageLimit(t *testing.T) {
	source, err := pages.NewBuddySource(testLogger(), 11, 4096, map[int]int{0: 1024, 1: 1024})
	require.NoError(t, err)

	balloon, err := New(testLogger(), source, source.Nodes(), CreateOptions{
		NodePageLimits: map[int]int{0: 64},
	})
	require.NoError(t, err)

	report, err := balloon.Inflate(200)
	require.NoError(t, err)

	require.Equal(t, NodeReport{
		Node:         0,
		Target:       100,
		InitialOrder: 6,
		Acquired:     64,
		Blocks:       1,
		Unmet:        36,
		Fallbacks:    7,
	}, report.Nodes[0])
	require.ErrorIs(t, report.Nodes[0].Err(), ErrAllocationExhausted)
	require.Equal(t, 128, report.Nodes[1].Acquired)
	require.NoError(t, report.Nodes[1].Err())

	require.Equal(t, 1024-64, source.FreePages(0))
	require.Equal(t, 1024-128, source.FreePages(1))

	release, err := balloon.Deflate()
	require.NoError(t, err)
	require.Equal(t, 192, release.Freed)
	require.Equal(t, 1024, source.FreePages(0))
	require.Equal(t, 0, source.LiveBlocks())
}

func TestInflateDeflateProperties(t *testing.T) {
	nodePages := map[int]int{0: 1000, 1: 300, 2: 77}
	const maxOrder = 8

	for _, total := range []int{0, 1, 2, 3, 5, 17, 100, 299, 512, 900, 1377, 5000} {
		buddy, err := pages.NewBuddySource(testLogger(), maxOrder, 4096, nodePages)
		require.NoError(t, err)

		initialBlocks := make(map[int][]int)
		for _, node := range buddy.Nodes() {
			initialBlocks[node] = buddy.FreeBlocks(node)
		}

		source := &recordingSource{BuddySource: buddy}
		balloon, err := New(testLogger(), source, buddy.Nodes(), CreateOptions{MaxOrder: maxOrder})
		require.NoError(t, err)

		report, err := balloon.Inflate(total)
		require.NoError(t, err)
		require.Equal(t, total/3, report.PerNode)
		require.Equal(t, total%3, report.Dropped)

		acquiredByNode := make(map[int]int)
		for _, block := range source.allocated {
			require.Less(t, block.order, maxOrder)
			acquiredByNode[block.node] += memutils.OrderPages(block.order)
		}

		held := 0
		for _, node := range report.Nodes {
			require.Equal(t, report.PerNode, node.Target)
			require.Equal(t, acquiredByNode[node.Node], node.Acquired)
			require.Equal(t, nodePages[node.Node]-node.Acquired, buddy.FreePages(node.Node))
			require.Equal(t, node.Target+node.Overshoot-node.Unmet, node.Acquired)

			if node.Target > 0 {
				require.Less(t, node.Overshoot, memutils.OrderPages(node.InitialOrder))
			}
			if node.Unmet > 0 {
				require.Zero(t, node.Overshoot)
			}
			held += node.Acquired
		}
		require.Equal(t, held, balloon.ledger.Pages())
		require.Equal(t, held, report.Acquired)

		release, err := balloon.Deflate()
		require.NoError(t, err)
		require.Equal(t, held, release.Freed)
		require.Equal(t, len(source.allocated), release.Blocks)
		require.True(t, balloon.ledger.IsEmpty())
		require.Equal(t, 0, buddy.LiveBlocks())

		for _, node := range buddy.Nodes() {
			require.Equal(t, nodePages[node], buddy.FreePages(node))
			require.Equal(t, initialBlocks[node], buddy.FreeBlocks(node))
		}
	}
}

func TestBuildStatsString(t *testing.T) {
	source, err := pages.NewBuddySource(testLogger(), 11, 4096, map[int]int{0: 64, 1: 2})
	require.NoError(t, err)

	balloon, err := New(testLogger(), source, source.Nodes(), CreateOptions{
		NodePageLimits: map[int]int{1: 2},
	})
	require.NoError(t, err)

	report, err := balloon.Inflate(7)
	require.NoError(t, err)
	require.Equal(t, 1, report.Dropped)

	var stats struct {
		State    string
		MaxOrder int
		PageSize int
		Total    struct {
			BlockCount int
			PageCount  int
			OrderMin   int
			OrderMax   int
		}
		Request struct {
			TotalPages int
			PerNode    int
			Dropped    int
		}
		Nodes map[string]struct {
			Blocks       int
			Pages        int
			PageLimit    *int
			Target       int
			InitialOrder int
			Unmet        int
			Overshoot    int
		}
		Ledger struct {
			BlockCount int
			Pages      int
			Blocks     []map[string]int
		}
	}

	require.NoError(t, json.Unmarshal([]byte(balloon.BuildStatsString(true)), &stats))

	require.Equal(t, "Holding", stats.State)
	require.Equal(t, 11, stats.MaxOrder)
	require.Equal(t, 4096, stats.PageSize)
	require.Equal(t, 7, stats.Request.TotalPages)
	require.Equal(t, 3, stats.Request.PerNode)

	// node 0: order 1 twice; node 1: order 1 then capped at its limit
	require.Equal(t, 3, stats.Total.BlockCount)
	require.Equal(t, 6, stats.Total.PageCount)
	require.Equal(t, 1, stats.Total.OrderMin)
	require.Equal(t, 1, stats.Total.OrderMax)

	require.Len(t, stats.Nodes, 2)
	require.Equal(t, 4, stats.Nodes["0"].Pages)
	require.Equal(t, 1, stats.Nodes["0"].Overshoot)
	require.Nil(t, stats.Nodes["0"].PageLimit)
	require.Equal(t, 2, stats.Nodes["1"].Pages)
	require.Equal(t, 1, stats.Nodes["1"].Unmet)
	require.NotNil(t, stats.Nodes["1"].PageLimit)
	require.Equal(t, 2, *stats.Nodes["1"].PageLimit)

	require.Equal(t, 3, stats.Ledger.BlockCount)
	require.Equal(t, 6, stats.Ledger.Pages)
	require.Len(t, stats.Ledger.Blocks, 3)

	_, err = balloon.Deflate()
	require.NoError(t, err)

	require.NoError(t, json.Unmarshal([]byte(balloon.BuildStatsString(false)), &stats))
	require.Equal(t, "Released", stats.State)
}
