// Package pages provides the sources a balloon takes physical pages from. A Source hands out
// blocks of 2^order contiguous pages bound to a single NUMA node, and takes them back when
// given the same handle and order.
package pages

//go:generate mockgen -source=source.go -destination=mocks/source.go -package=mock_pages

import (
	"github.com/cockroachdb/errors"
)

// Handle identifies a block handed out by a Source. NoHandle is never a valid block.
type Handle uint64

const NoHandle Handle = 0

// ErrUnavailable is returned from Source.Allocate when the source cannot supply a block of the
// requested order on the requested node. It is not fatal: callers are expected to retry at a
// smaller order.
var ErrUnavailable = errors.New("no block of the requested order is available on the node")

// Source is the page allocator a balloon draws from.
type Source interface {
	// Allocate reserves 2^order contiguous pages on node. On failure it returns NoHandle and an
	// error; errors.Is(err, ErrUnavailable) reports that the node simply has no block of that
	// order to give.
	Allocate(node, order int) (Handle, error)
	// Free releases a block previously returned by Allocate. order must be the order the block
	// was allocated at.
	Free(handle Handle, order int) error
	// PageSize returns the size in bytes of an order-0 block
	PageSize() int
}
