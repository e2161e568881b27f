//go:build !linux

package pages

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
)

var errMmapUnsupported = errors.New("the mmap page source requires linux")

// MmapSource is only functional on linux
type MmapSource struct{}

var _ Source = &MmapSource{}

func NewMmapSource(logger *slog.Logger, options MmapOptions) (*MmapSource, error) {
	return nil, errMmapUnsupported
}

func (s *MmapSource) PageSize() int                            { return 0 }
func (s *MmapSource) Allocate(node, order int) (Handle, error) { return NoHandle, errMmapUnsupported }
func (s *MmapSource) Free(handle Handle, order int) error      { return errMmapUnsupported }
func (s *MmapSource) LiveMappings() int                        { return 0 }
