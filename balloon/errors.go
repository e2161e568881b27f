package balloon

import "github.com/cockroachdb/errors"

// ErrAllocationExhausted marks a node that could not satisfy the rest of its target even with
// single-page blocks. It is informational: the blocks already acquired for the node are kept.
var ErrAllocationExhausted = errors.New("node could not satisfy its target at the smallest block size")

// ErrInvalidState is returned when Inflate or Deflate is called out of sequence
var ErrInvalidState = errors.New("operation is not valid in the balloon's current state")
