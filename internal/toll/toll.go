package toll

import (
	"context"
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/eigerco/tollbridge/internal/common"
	"github.com/eigerco/tollbridge/internal/crypto"
	"github.com/eigerco/tollbridge/internal/ledger"
	"github.com/eigerco/tollbridge/internal/state"
)

// Payout is a credit scheduled by a settlement. Payouts are executed only
// after the bookkeeping that produced them is committed.
type Payout struct {
	To     crypto.Address
	Amount uint256.Int
}

// Split returns value minus fee, failing with ErrValueBelowToll unless
// value exceeds fee.
func Split(value, fee *uint256.Int) (*uint256.Int, error) {
	if !value.Gt(fee) {
		return nil, fmt.Errorf("%w: value %s, toll %s", common.ErrValueBelowToll, value.Dec(), fee.Dec())
	}
	return new(uint256.Int).Sub(value, fee), nil
}

// Toll deducts the fixed fee of its configuration.
type Toll struct {
	config state.TollConfig
}

func New(config state.TollConfig) *Toll {
	return &Toll{config: config}
}

func (t *Toll) Config() state.TollConfig {
	return t.config
}

// Settle schedules the payouts of an admitted deposit: the net value to the
// recipient and the fee to the toll destination.
func (t *Toll) Settle(recipient crypto.Address, value *uint256.Int) ([]Payout, error) {
	net, err := Split(value, &t.config.Fee)
	if err != nil {
		return nil, err
	}
	payouts := []Payout{{To: recipient, Amount: *net}}
	if !t.config.Fee.IsZero() {
		payouts = append(payouts, Payout{To: t.config.Destination, Amount: t.config.Fee})
	}
	return payouts, nil
}

// Collect takes a withdrawal from sender: the fee is transferred to the toll
// destination and the rest is burned. It returns the burned value.
func (t *Toll) Collect(ctx context.Context, l ledger.Ledger, sender crypto.Address, value *uint256.Int) (*uint256.Int, error) {
	net, err := Split(value, &t.config.Fee)
	if err != nil {
		return nil, err
	}
	fee := &t.config.Fee
	if !fee.IsZero() {
		if err := l.Transfer(ctx, sender, t.config.Destination, fee); err != nil {
			return nil, fmt.Errorf("collect toll: %w", err)
		}
	}
	if err := l.Burn(ctx, sender, net); err != nil {
		if !fee.IsZero() {
			if refundErr := l.Transfer(ctx, t.config.Destination, sender, fee); refundErr != nil {
				return nil, fmt.Errorf("%w: burn withdrawal: %w", common.ErrSettlementFailed,
					errors.Join(err, fmt.Errorf("refund toll: %w", refundErr)))
			}
		}
		return nil, fmt.Errorf("burn withdrawal: %w", err)
	}
	return net, nil
}

// Restore reverses a successful Collect of value from sender: the fee
// returns from the toll destination and the burned value is credited back.
func (t *Toll) Restore(ctx context.Context, l ledger.Ledger, sender crypto.Address, value *uint256.Int) error {
	net, err := Split(value, &t.config.Fee)
	if err != nil {
		return err
	}
	if fee := &t.config.Fee; !fee.IsZero() {
		if err := l.Transfer(ctx, t.config.Destination, sender, fee); err != nil {
			return fmt.Errorf("%w: return toll: %w", common.ErrSettlementFailed, err)
		}
	}
	if err := l.Credit(ctx, sender, net); err != nil {
		return fmt.Errorf("%w: restore burned value: %w", common.ErrSettlementFailed, err)
	}
	return nil
}

// Pay executes payouts in order. It stops at the first failure.
func Pay(ctx context.Context, l ledger.Ledger, payouts []Payout) error {
	for _, p := range payouts {
		amount := p.Amount
		if err := l.Credit(ctx, p.To, &amount); err != nil {
			return fmt.Errorf("credit %s to %s: %w", amount.Dec(), p.To, err)
		}
	}
	return nil
}
