//go:build linux

package pages

import (
	"context"
	"os"
	"sync"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/vkngwrapper/balloon/memutils"
	"golang.org/x/exp/slog"
	"golang.org/x/sys/unix"
)

// Memory policy modes and flags as defined in /usr/include/linux/mempolicy.h
const (
	mpolBind     = 2
	mpolMFStrict = 1 << 0
)

// MmapSource is a Source backed by anonymous private mappings. Each block is a separate
// mapping of pageSize << order bytes, bound to its node with mbind(MPOL_BIND) and then faulted
// in, so that a successful Allocate means the node really gave up the pages.
type MmapSource struct {
	logger   *slog.Logger
	pageSize int
	options  MmapOptions

	mutex    sync.Mutex
	mappings *swiss.Map[Handle, []byte]
}

var _ Source = &MmapSource{}

func NewMmapSource(logger *slog.Logger, options MmapOptions) (*MmapSource, error) {
	pageSize := os.Getpagesize()
	err := memutils.CheckPow2(pageSize, "system page size")
	if err != nil {
		return nil, err
	}

	if _, ok := populateModeMapping[options.Populate]; !ok {
		return nil, errors.Newf("unknown populate mode %d", options.Populate)
	}

	return &MmapSource{
		logger:   logger,
		pageSize: pageSize,
		options:  options,
		mappings: swiss.NewMap[Handle, []byte](64),
	}, nil
}

func (s *MmapSource) PageSize() int { return s.pageSize }

func (s *MmapSource) Allocate(node, order int) (Handle, error) {
	if node < 0 {
		return NoHandle, errors.Newf("invalid node %d", node)
	}
	if order < 0 {
		return NoHandle, errors.Newf("invalid order %d", order)
	}

	size := s.pageSize << order
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS|unix.MAP_NORESERVE)
	if err != nil {
		return NoHandle, errors.Mark(errors.Wrapf(err, "failed to map %d bytes", size), ErrUnavailable)
	}

	err = s.populate(data, node, order)
	if err != nil {
		unmapErr := unix.Munmap(data)
		if unmapErr != nil {
			s.logger.LogAttrs(context.Background(), slog.LevelError, "failed to unmap a block that could not be populated",
				slog.Int("node", node),
				slog.Int("order", order),
				slog.Any("error", unmapErr))
		}
		return NoHandle, err
	}

	if memutils.DebugMargin > 0 {
		memutils.WriteMagicValue(unsafe.Pointer(&data[0]), 0)
	}

	handle := Handle(uintptr(unsafe.Pointer(&data[0])))

	s.mutex.Lock()
	s.mappings.Put(handle, data)
	s.mutex.Unlock()

	return handle, nil
}

func (s *MmapSource) populate(data []byte, node, order int) error {
	err := bindToNode(data, node)
	if err != nil {
		return errors.Wrapf(err, "failed to bind block to node %d", node)
	}

	if s.options.HugePageOrder > 0 && order >= s.options.HugePageOrder {
		adviseErr := unix.Madvise(data, unix.MADV_HUGEPAGE)
		if adviseErr != nil {
			s.logger.Debug("MADV_HUGEPAGE rejected", slog.Int("order", order), slog.Any("error", adviseErr))
		}
	}

	switch s.options.Populate {
	case PopulateAdvise:
		err = unix.Madvise(data, unix.MADV_POPULATE_WRITE)
	default:
		err = unix.Mlock(data)
	}
	if err == nil {
		return nil
	}

	wrapped := errors.Wrapf(err, "failed to populate order %d block on node %d", order, node)
	if errors.Is(err, unix.ENOMEM) || errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EFAULT) {
		return errors.Mark(wrapped, ErrUnavailable)
	}
	return wrapped
}

func bindToNode(data []byte, node int) error {
	mask := make([]uint64, node/64+1)
	mask[node/64] |= 1 << uint(node%64)

	// The kernel reads maxnode-1 bits from the mask
	_, _, errno := unix.Syscall6(unix.SYS_MBIND,
		uintptr(unsafe.Pointer(&data[0])),
		uintptr(len(data)),
		mpolBind,
		uintptr(unsafe.Pointer(&mask[0])),
		uintptr(len(mask)*64+1),
		mpolMFStrict)
	if errno != 0 {
		return errno
	}
	return nil
}

func (s *MmapSource) Free(handle Handle, order int) error {
	s.mutex.Lock()
	data, ok := s.mappings.Get(handle)
	if ok {
		s.mappings.Delete(handle)
	}
	s.mutex.Unlock()

	if !ok {
		return errors.Newf("handle %#x does not refer to a live mapping", uint64(handle))
	}

	if len(data) != s.pageSize<<order {
		// Put it back so that a correct Free can still release it
		s.mutex.Lock()
		s.mappings.Put(handle, data)
		s.mutex.Unlock()
		return errors.Newf("mapping %#x is %d bytes but was freed as order %d", uint64(handle), len(data), order)
	}

	if memutils.DebugMargin > 0 && !memutils.ValidateMagicValue(unsafe.Pointer(&data[0]), 0) {
		s.logger.LogAttrs(context.Background(), slog.LevelError, "corruption marker overwritten",
			slog.Int("order", order))
	}

	return unix.Munmap(data)
}

// LiveMappings returns the number of mappings currently handed out
func (s *MmapSource) LiveMappings() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.mappings.Count()
}
