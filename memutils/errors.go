package memutils

import "github.com/pkg/errors"

// PowerOfTwoError is the error returned from CheckPow2 or other methods if the number being tested is not a power of two
var PowerOfTwoError error = errors.New("number must be a power of two")

// OrderRangeError is the error returned from CheckOrder if a block order falls outside of [0, maxOrder)
var OrderRangeError error = errors.New("block order is out of range")
