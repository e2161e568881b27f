package main

import (
	"strconv"
	"strings"

	"code.cloudfoundry.org/bytefmt"
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/balloon/pages"
	"golang.org/x/exp/slices"
)

// resolvePages turns either an explicit page count or a human-readable byte size into a page
// count. Sizes are rounded down to whole pages.
func resolvePages(pageCount int, size string, pageSize int) (int, error) {
	if pageCount != 0 && size != "" {
		return 0, errors.New("--pages and --size are mutually exclusive")
	}
	if pageCount < 0 {
		return 0, errors.Newf("--pages must be non-negative, got %d", pageCount)
	}
	if size == "" {
		return pageCount, nil
	}

	bytes, err := bytefmt.ToBytes(size)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid --size %q", size)
	}
	return int(bytes / uint64(pageSize)), nil
}

// parseNodeLimits converts node-id keyed limits from the command line into a per-node page
// limit map. Values are page counts, or byte sizes when suffixed with a unit.
func parseNodeLimits(limits map[string]string, pageSize int) (map[int]int, error) {
	parsed := make(map[int]int, len(limits))
	for key, value := range limits {
		node, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || node < 0 {
			return nil, errors.Newf("invalid node id %q in --node-limit", key)
		}

		value = strings.TrimSpace(value)
		pageCount, err := strconv.Atoi(value)
		if err != nil {
			bytes, sizeErr := bytefmt.ToBytes(value)
			if sizeErr != nil {
				return nil, errors.Wrapf(sizeErr, "invalid limit %q for node %d", value, node)
			}
			pageCount = int(bytes / uint64(pageSize))
		}
		if pageCount < 0 {
			return nil, errors.Newf("node %d has a negative limit %d", node, pageCount)
		}

		parsed[node] = pageCount
	}
	return parsed, nil
}

// selectNodes returns the online nodes restricted to requested, or every online node if
// requested is empty
func selectNodes(online, requested []int) ([]int, error) {
	if len(requested) == 0 {
		return slices.Clone(online), nil
	}

	for _, node := range requested {
		if !slices.Contains(online, node) {
			return nil, errors.Newf("node %d is not online", node)
		}
	}
	return slices.Clone(requested), nil
}

func parsePopulateMode(mode string) (pages.PopulateMode, error) {
	for _, candidate := range []pages.PopulateMode{pages.PopulateLock, pages.PopulateAdvise} {
		if strings.EqualFold(mode, candidate.String()) {
			return candidate, nil
		}
	}
	return pages.PopulateLock, errors.Newf("unknown populate mode %q, expected lock or advise", mode)
}

// formatPages renders a page count as a human-readable byte size
func formatPages(pageCount, pageSize int) string {
	return bytefmt.ByteSize(uint64(pageCount) * uint64(pageSize))
}
