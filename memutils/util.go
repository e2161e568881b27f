package memutils

import (
	cerrors "github.com/cockroachdb/errors"
)

type Number interface {
	~int | ~uint | ~int64 | ~uint64
}

func CheckPow2[T Number](number T, name string) error {
	if number&(number-1) != 0 {
		return cerrors.Wrapf(PowerOfTwoError, "%s is %d", name, number)
	}
	return nil
}

// CheckOrder verifies that order names a block size the allocator can hand out, i.e. that
// 0 <= order < maxOrder.
func CheckOrder(order, maxOrder int, name string) error {
	if order < 0 || order >= maxOrder {
		return cerrors.Wrapf(OrderRangeError, "%s is %d, must be in [0, %d)", name, order, maxOrder)
	}
	return nil
}

// OrderPages returns the number of pages in a block of the provided order
func OrderPages(order int) int {
	return 1 << order
}

// FitOrder returns the largest order below maxOrder whose block size does not exceed target
// pages. It never returns less than 0, so a target of 0 or 1 produces order 0.
func FitOrder(target, maxOrder int) int {
	order := maxOrder - 1
	for order > 0 && OrderPages(order) > target {
		order--
	}
	return order
}

func AlignDown(value int, alignment uint) int {
	return value & int(^(alignment - 1))
}
