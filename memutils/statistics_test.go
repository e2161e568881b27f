package memutils_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/balloon/memutils"
)

func TestDetailedStatistics(t *testing.T) {
	var stats memutils.DetailedStatistics
	stats.Clear()

	require.Equal(t, memutils.DetailedStatistics{
		OrderMin: math.MaxInt,
		OrderMax: -1,
	}, stats)

	stats.AddBlock(6)
	stats.AddBlock(6)
	stats.AddBlock(0)

	require.Equal(t, memutils.DetailedStatistics{
		Statistics: memutils.Statistics{
			BlockCount: 3,
			PageCount:  129,
		},
		OrderMin: 0,
		OrderMax: 6,
	}, stats)

	var other memutils.DetailedStatistics
	other.Clear()
	other.AddBlock(10)
	stats.AddDetailedStatistics(&other)

	require.Equal(t, memutils.DetailedStatistics{
		Statistics: memutils.Statistics{
			BlockCount: 4,
			PageCount:  1153,
		},
		OrderMin: 0,
		OrderMax: 10,
	}, stats)

	// empty statistics don't disturb the order range
	var empty memutils.DetailedStatistics
	empty.Clear()
	stats.AddDetailedStatistics(&empty)
	require.Equal(t, 0, stats.OrderMin)
	require.Equal(t, 10, stats.OrderMax)
}
