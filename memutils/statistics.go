package memutils

import "math"

type Statistics struct {
	BlockCount int
	PageCount  int
}

func (s *Statistics) Clear() {
	s.BlockCount = 0
	s.PageCount = 0
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.BlockCount += other.BlockCount
	s.PageCount += other.PageCount
}

func (s *Statistics) AddBlock(order int) {
	s.BlockCount++
	s.PageCount += OrderPages(order)
}

// DetailedStatistics extends Statistics with the spread of block orders. OrderMax is -1 and
// OrderMin is math.MaxInt while no blocks have been counted.
type DetailedStatistics struct {
	Statistics
	OrderMin int
	OrderMax int
}

func (s *DetailedStatistics) Clear() {
	s.Statistics.Clear()
	s.OrderMin = math.MaxInt
	s.OrderMax = -1
}

func (s *DetailedStatistics) AddBlock(order int) {
	s.Statistics.AddBlock(order)

	if order < s.OrderMin {
		s.OrderMin = order
	}

	if order > s.OrderMax {
		s.OrderMax = order
	}
}

func (s *DetailedStatistics) AddDetailedStatistics(other *DetailedStatistics) {
	s.Statistics.AddStatistics(&other.Statistics)

	if other.OrderMin < s.OrderMin {
		s.OrderMin = other.OrderMin
	}

	if other.OrderMax > s.OrderMax {
		s.OrderMax = other.OrderMax
	}
}
