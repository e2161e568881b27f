package pages_test

import (
	"io"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/balloon/pages"
	"golang.org/x/exp/slog"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestBuddyCarvesArena(t *testing.T) {
	source, err := pages.NewBuddySource(testLogger(), 4, 4096, map[int]int{0: 21, 1: 8})
	require.NoError(t, err)

	require.Equal(t, []int{0, 1}, source.Nodes())
	require.Equal(t, 4096, source.PageSize())
	require.Equal(t, 4, source.MaxOrder())

	// 21 pages = 8 + 8 + 4 + 1
	require.Equal(t, []int{1, 0, 1, 2}, source.FreeBlocks(0))
	require.Equal(t, 21, source.FreePages(0))
	require.Equal(t, []int{0, 0, 0, 1}, source.FreeBlocks(1))
	require.Nil(t, source.FreeBlocks(7))
	require.Equal(t, 0, source.FreePages(7))
}

func TestBuddySplitAndMerge(t *testing.T) {
	source, err := pages.NewBuddySource(testLogger(), 4, 4096, map[int]int{0: 8})
	require.NoError(t, err)

	single, err := source.Allocate(0, 0)
	require.NoError(t, err)
	require.NotEqual(t, pages.NoHandle, single)

	// splitting the order-3 block leaves one free block each at orders 0, 1 and 2
	require.Equal(t, []int{1, 1, 1, 0}, source.FreeBlocks(0))
	require.Equal(t, 7, source.FreePages(0))

	pair, err := source.Allocate(0, 1)
	require.NoError(t, err)
	require.Equal(t, []int{1, 0, 1, 0}, source.FreeBlocks(0))
	require.Equal(t, 2, source.LiveBlocks())

	require.NoError(t, source.Free(single, 0))
	require.NoError(t, source.Free(pair, 1))

	// everything coalesces back into the original block
	require.Equal(t, []int{0, 0, 0, 1}, source.FreeBlocks(0))
	require.Equal(t, 8, source.FreePages(0))
	require.Equal(t, 0, source.LiveBlocks())
}

func TestBuddyExhaustion(t *testing.T) {
	source, err := pages.NewBuddySource(testLogger(), 11, 4096, map[int]int{0: 3})
	require.NoError(t, err)

	_, err = source.Allocate(0, 2)
	require.Error(t, err)
	require.True(t, errors.Is(err, pages.ErrUnavailable))

	_, err = source.Allocate(0, 1)
	require.NoError(t, err)
	_, err = source.Allocate(0, 0)
	require.NoError(t, err)

	_, err = source.Allocate(0, 0)
	require.True(t, errors.Is(err, pages.ErrUnavailable))
	require.Equal(t, 0, source.FreePages(0))
}

func TestBuddyRejectsMismatchedFree(t *testing.T) {
	source, err := pages.NewBuddySource(testLogger(), 11, 4096, map[int]int{0: 64})
	require.NoError(t, err)

	handle, err := source.Allocate(0, 3)
	require.NoError(t, err)

	err = source.Free(handle, 2)
	require.Error(t, err)
	require.Equal(t, 1, source.LiveBlocks())

	require.NoError(t, source.Free(handle, 3))
	require.Error(t, source.Free(handle, 3))
}

func TestBuddyRejectsUnknownNodeAndOrder(t *testing.T) {
	source, err := pages.NewBuddySource(testLogger(), 11, 4096, map[int]int{0: 64})
	require.NoError(t, err)

	_, err = source.Allocate(3, 0)
	require.Error(t, err)
	require.False(t, errors.Is(err, pages.ErrUnavailable))

	_, err = source.Allocate(0, 11)
	require.Error(t, err)
	require.False(t, errors.Is(err, pages.ErrUnavailable))
}

func TestNewBuddySourceValidation(t *testing.T) {
	_, err := pages.NewBuddySource(testLogger(), 0, 4096, map[int]int{0: 1})
	require.Error(t, err)

	_, err = pages.NewBuddySource(testLogger(), 11, 3000, map[int]int{0: 1})
	require.Error(t, err)

	_, err = pages.NewBuddySource(testLogger(), 11, 4096, map[int]int{})
	require.Error(t, err)

	_, err = pages.NewBuddySource(testLogger(), 11, 4096, map[int]int{-1: 1})
	require.Error(t, err)

	_, err = pages.NewBuddySource(testLogger(), 11, 4096, map[int]int{0: -1})
	require.Error(t, err)
}
