package memutils_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/balloon/memutils"
)

func TestFitOrder(t *testing.T) {
	testCases := []struct {
		target   int
		maxOrder int
		expected int
	}{
		{target: 0, maxOrder: 11, expected: 0},
		{target: 1, maxOrder: 11, expected: 0},
		{target: 3, maxOrder: 11, expected: 1},
		{target: 4, maxOrder: 11, expected: 2},
		{target: 100, maxOrder: 11, expected: 6},
		{target: 1024, maxOrder: 11, expected: 10},
		{target: 1 << 20, maxOrder: 11, expected: 10},
		{target: 100, maxOrder: 1, expected: 0},
	}

	for _, testCase := range testCases {
		require.Equal(t, testCase.expected, memutils.FitOrder(testCase.target, testCase.maxOrder),
			"target %d maxOrder %d", testCase.target, testCase.maxOrder)
	}
}

func TestCheckOrder(t *testing.T) {
	require.NoError(t, memutils.CheckOrder(0, 11, "order"))
	require.NoError(t, memutils.CheckOrder(10, 11, "order"))

	err := memutils.CheckOrder(11, 11, "order")
	require.Error(t, err)
	require.True(t, errors.Is(err, memutils.OrderRangeError))

	err = memutils.CheckOrder(-1, 11, "order")
	require.True(t, errors.Is(err, memutils.OrderRangeError))
}

func TestCheckPow2(t *testing.T) {
	require.NoError(t, memutils.CheckPow2(4096, "page size"))

	err := memutils.CheckPow2(3000, "page size")
	require.Error(t, err)
	require.True(t, errors.Is(err, memutils.PowerOfTwoError))
	require.Contains(t, err.Error(), "page size is 3000")
}

func TestAlignDown(t *testing.T) {
	require.Equal(t, 8, memutils.AlignDown(13, 8))
	require.Equal(t, 16, memutils.AlignDown(16, 8))
	require.Equal(t, 0, memutils.AlignDown(1, 2))
}
