package state

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/eigerco/tollbridge/internal/common"
)

// Limits holds the bounds of one direction together with the value spent
// in the current accounting window.
type Limits struct {
	DailyLimit uint256.Int
	MaxPerTx   uint256.Int
	MinPerTx   uint256.Int
	Spent      uint256.Int
}

// Validate checks MinPerTx ≤ MaxPerTx ≤ DailyLimit and MinPerTx > fee.
func (l Limits) Validate(fee *uint256.Int) error {
	if l.MinPerTx.Gt(&l.MaxPerTx) {
		return fmt.Errorf("%w: min per tx %s above max per tx %s", common.ErrConfigurationInvalid, l.MinPerTx.Dec(), l.MaxPerTx.Dec())
	}
	if l.MaxPerTx.Gt(&l.DailyLimit) {
		return fmt.Errorf("%w: max per tx %s above daily limit %s", common.ErrConfigurationInvalid, l.MaxPerTx.Dec(), l.DailyLimit.Dec())
	}
	if fee != nil && !l.MinPerTx.Gt(fee) {
		return fmt.Errorf("%w: min per tx %s must exceed toll fee %s", common.ErrConfigurationInvalid, l.MinPerTx.Dec(), fee.Dec())
	}
	return nil
}

// Remaining is the value that can still be admitted in the current window.
func (l Limits) Remaining() *uint256.Int {
	if l.Spent.Gt(&l.DailyLimit) {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(&l.DailyLimit, &l.Spent)
}
