package safemath

import (
	"errors"
	"math/bits"

	"github.com/holiman/uint256"
)

var (
	ErrOverflow  = errors.New("number overflow")
	ErrUnderflow = errors.New("number underflow")
)

func Add64(a, b uint64) (uint64, bool) {
	v, carry := bits.Add64(a, b, 0)
	return v, carry == 0
}

// Add returns a fresh a+b. The bool is false if the sum does not fit in 256 bits.
func Add(a, b *uint256.Int) (*uint256.Int, bool) {
	v, overflow := new(uint256.Int).AddOverflow(a, b)
	return v, !overflow
}

// Sub returns a fresh a-b. The bool is false if b > a.
func Sub(a, b *uint256.Int) (*uint256.Int, bool) {
	v, underflow := new(uint256.Int).SubOverflow(a, b)
	return v, !underflow
}

// AddErr is Add reporting overflow as ErrOverflow.
func AddErr(a, b *uint256.Int) (*uint256.Int, error) {
	v, ok := Add(a, b)
	if !ok {
		return nil, ErrOverflow
	}
	return v, nil
}

// SubErr is Sub reporting underflow as ErrUnderflow.
func SubErr(a, b *uint256.Int) (*uint256.Int, error) {
	v, ok := Sub(a, b)
	if !ok {
		return nil, ErrUnderflow
	}
	return v, nil
}
