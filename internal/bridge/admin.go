package bridge

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/eigerco/tollbridge/internal/crypto"
	"github.com/eigerco/tollbridge/internal/limits"
	"github.com/eigerco/tollbridge/internal/state"
	"github.com/eigerco/tollbridge/internal/store"
)

// Remediate releases the deferred deposit of txHash. Only the administrator
// may call it.
func (b *Bridge) Remediate(ctx context.Context, caller crypto.Address, txHash crypto.Hash, forward bool) (state.Deferral, error) {
	if err := b.requireAdmin(caller); err != nil {
		return state.Deferral{}, err
	}
	var deferral state.Deferral
	_, err := b.execute(ctx, "remediate", func(txn *store.Txn) (settlement, error) {
		var err error
		deferral, err = b.remediator.Remediate(txn, txHash, forward)
		return settlement{}, err
	})
	if err != nil {
		return state.Deferral{}, err
	}
	b.metrics.Remediated(forward)
	b.log.Info().Str("txHash", txHash.Hex()).Str("value", deferral.Value.Dec()).Bool("forward", forward).Msg("deferred deposit remediated")
	return deferral, nil
}

func (b *Bridge) SetDailyLimit(ctx context.Context, caller crypto.Address, dir state.Direction, v *uint256.Int) error {
	return b.adminUpdate(ctx, caller, "set_daily_limit", func(txn *store.Txn) error {
		return b.limiter.SetDailyLimit(txn, dir, v)
	})
}

func (b *Bridge) SetMaxPerTx(ctx context.Context, caller crypto.Address, dir state.Direction, v *uint256.Int) error {
	return b.adminUpdate(ctx, caller, "set_max_per_tx", func(txn *store.Txn) error {
		return b.limiter.SetMaxPerTx(txn, dir, v)
	})
}

func (b *Bridge) SetMinPerTx(ctx context.Context, caller crypto.Address, dir state.Direction, v *uint256.Int) error {
	return b.adminUpdate(ctx, caller, "set_min_per_tx", func(txn *store.Txn) error {
		return b.limiter.SetMinPerTx(txn, dir, v)
	})
}

// ResetDailySpent starts a new accounting window for dir.
func (b *Bridge) ResetDailySpent(ctx context.Context, caller crypto.Address, dir state.Direction) error {
	return b.adminUpdate(ctx, caller, "reset_daily_spent", func(txn *store.Txn) error {
		return b.limiter.ResetSpent(txn, dir)
	})
}

func (b *Bridge) adminUpdate(ctx context.Context, caller crypto.Address, operation string, fn func(*store.Txn) error) error {
	if err := b.requireAdmin(caller); err != nil {
		return err
	}
	_, err := b.execute(ctx, operation, func(txn *store.Txn) (settlement, error) {
		return settlement{}, fn(txn)
	})
	if err != nil {
		return err
	}
	b.log.Info().Str("operation", operation).Msg("limits updated")
	return nil
}

// SetLimits changes several bounds of dir in one step.
func (b *Bridge) SetLimits(ctx context.Context, caller crypto.Address, dir state.Direction, c limits.Change) error {
	return b.adminUpdate(ctx, caller, "set_limits", func(txn *store.Txn) error {
		return b.limiter.Update(txn, dir, c)
	})
}
