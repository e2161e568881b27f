package balloon

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/balloon/balloon/internal/budget"
	"github.com/vkngwrapper/balloon/ledger"
	"github.com/vkngwrapper/balloon/pages"
	"golang.org/x/exp/slices"
	"golang.org/x/exp/slog"
)

// CreateFlags indicate specific balloon behaviors to activate or deactivate
type CreateFlags int32

const (
	// CreateExternallySynchronized ensures that the balloon will not be synchronized
	// internally. The consumer must guarantee Inflate, Deflate and the statistics methods are
	// called from only one goroutine at a time.
	CreateExternallySynchronized CreateFlags = 1 << iota
)

var createFlagsMapping = map[CreateFlags]string{
	CreateExternallySynchronized: "CreateExternallySynchronized",
}

func (f CreateFlags) String() string {
	if f == 0 {
		return "None"
	}

	var names []string
	for flag := CreateFlags(1); flag != 0 && flag <= f; flag <<= 1 {
		if f&flag == 0 {
			continue
		}
		name, ok := createFlagsMapping[flag]
		if !ok {
			name = "Unknown"
		}
		names = append(names, name)
	}
	return strings.Join(names, "|")
}

const (
	// defaultMaxOrder is the value used as MaxOrder when none is provided via CreateOptions.
	// It matches the kernel's classic MAX_ORDER of 11.
	defaultMaxOrder   int = 11
	maxSupportedOrder     = 31
)

// CreateOptions contains optional settings when creating a balloon
type CreateOptions struct {
	// Flags indicates specific balloon behaviors to activate or deactivate
	Flags CreateFlags
	// MaxOrder is the exclusive ceiling on block orders: the largest block requested is
	// 2^(MaxOrder-1) pages. Zero selects the default of 11.
	MaxOrder int

	// NodePageLimits can be left empty. Any entry caps the number of pages the balloon will
	// hold on that node; once a block would cross the cap the node treats the block size as
	// unavailable and the usual fallback to smaller blocks applies.
	NodePageLimits map[int]int
}

// New creates a new Balloon that will draw pages from source across nodes, the snapshot of
// online NUMA node ids. Nodes are visited in ascending id order.
func New(logger *slog.Logger, source pages.Source, nodes []int, options CreateOptions) (*Balloon, error) {
	if source == nil {
		return nil, errors.New("a balloon needs a page source")
	}
	if len(nodes) == 0 {
		return nil, errors.New("a balloon needs at least one online node")
	}

	sortedNodes := slices.Clone(nodes)
	slices.Sort(sortedNodes)
	for i, node := range sortedNodes {
		if node < 0 {
			return nil, errors.Newf("node ids must be non-negative, got %d", node)
		}
		if i > 0 && sortedNodes[i-1] == node {
			return nil, errors.Newf("node %d was provided more than once", node)
		}
	}

	maxOrder := options.MaxOrder
	if maxOrder == 0 {
		maxOrder = defaultMaxOrder
	}
	if maxOrder < 1 || maxOrder > maxSupportedOrder {
		return nil, errors.Newf("CreateOptions.MaxOrder must be in [1, %d], got %d", maxSupportedOrder, maxOrder)
	}

	for node, limit := range options.NodePageLimits {
		if limit < 0 {
			return nil, errors.Newf("CreateOptions.NodePageLimits has a negative limit %d for node %d", limit, node)
		}
		if !slices.Contains(sortedNodes, node) {
			logger.Warn("ignoring page limit for a node that is not online", slog.Int("node", node))
		}
	}

	balloon := &Balloon{
		logger:   logger,
		source:   source,
		nodes:    sortedNodes,
		maxOrder: maxOrder,
		flags:    options.Flags,

		mutex: optionalMutex{
			useMutex: options.Flags&CreateExternallySynchronized == 0,
		},
		state:  StateUninitialized,
		ledger: ledger.New[pages.Handle](maxOrder),
		budget: budget.New(sortedNodes, options.NodePageLimits),
	}

	logger.Debug("Balloon::New",
		slog.Any("nodes", sortedNodes),
		slog.Int("maxOrder", maxOrder),
		slog.String("flags", options.Flags.String()))

	return balloon, nil
}
