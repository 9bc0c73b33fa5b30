package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/eigerco/tollbridge/internal/affirming"
	"github.com/eigerco/tollbridge/internal/collecting"
	"github.com/eigerco/tollbridge/internal/common"
	"github.com/eigerco/tollbridge/internal/crypto"
	"github.com/eigerco/tollbridge/internal/events"
	"github.com/eigerco/tollbridge/internal/limits"
	"github.com/eigerco/tollbridge/internal/state"
	"github.com/eigerco/tollbridge/internal/store"
	"github.com/eigerco/tollbridge/internal/toll"
)

// Affirm records a validator's affirmation of a foreign deposit. When the
// affirmation completes the deposit, the recipient and the toll destination
// are credited after the bookkeeping committed; a failed credit is reported
// as ErrSettlementFailed.
func (b *Bridge) Affirm(ctx context.Context, a affirming.Affirmation, from crypto.Address) (affirming.Result, error) {
	var res affirming.Result
	_, err := b.execute(ctx, "affirm", func(txn *store.Txn) (settlement, error) {
		var err error
		res, err = b.engine.Affirm(txn, b.validators, a, from)
		return settlement{payouts: res.Payouts}, err
	})
	if err != nil && !errors.Is(err, common.ErrSettlementFailed) {
		return affirming.Result{}, err
	}

	logger := b.log.With().Str("validator", from.Hex()).Str("txHash", a.TxHash.Hex()).Logger()
	if !res.Outcome.JustCompleted {
		logger.Debug().Uint64("count", res.Outcome.Count).Msg("affirmation recorded")
		return res, err
	}
	b.metrics.Completed(state.Affirmations.String())
	switch res.Decision {
	case limits.Admitted:
		logger.Info().Str("recipient", a.Recipient.Hex()).Str("value", a.Value.Dec()).Msg("deposit settled")
	case limits.Deferred:
		b.metrics.DeferredDeposit()
		logger.Warn().Str("recipient", a.Recipient.Hex()).Str("value", a.Value.Dec()).Msg("deposit above daily limit deferred")
	}
	return res, err
}

// SubmitSignature records a validator's signature over a withdrawal message.
func (b *Bridge) SubmitSignature(ctx context.Context, signature, msg []byte, from crypto.Address) (collecting.Result, error) {
	var res collecting.Result
	_, err := b.execute(ctx, "submit_signature", func(txn *store.Txn) (settlement, error) {
		var err error
		res, err = b.collector.Submit(txn, b.validators, signature, msg, from)
		return settlement{}, err
	})
	if err != nil {
		return collecting.Result{}, err
	}

	logger := b.log.With().Str("validator", from.Hex()).Str("messageHash", res.MessageHash.Hex()).Logger()
	if res.Outcome.JustCompleted {
		b.metrics.Completed(state.Signatures.String())
		logger.Info().Uint64("signatures", res.Outcome.Count).Msg("withdrawal message ready for relay")
	} else {
		logger.Debug().Uint64("count", res.Outcome.Count).Msg("signature recorded")
	}
	return res, nil
}

// RequestWithdrawal moves value from sender to the foreign chain: the value
// is admitted through the home to foreign limits, the toll is transferred to
// its destination, the rest is burned and validators are asked to sign.
// User requests are never parked, so a value above the daily limit fails
// with ErrDailyLimitExceeded. When the bookkeeping cannot be committed after
// the funds moved, they are returned to sender. It returns the value to be
// released on the foreign chain.
func (b *Bridge) RequestWithdrawal(ctx context.Context, sender crypto.Address, value *uint256.Int) (*uint256.Int, error) {
	var net *uint256.Int
	_, err := b.execute(ctx, "request_withdrawal", func(txn *store.Txn) (settlement, error) {
		decision, err := b.limiter.Admit(txn, state.HomeToForeign, value)
		if err != nil {
			return settlement{}, err
		}
		if decision == limits.Deferred {
			return settlement{}, fmt.Errorf("withdrawal of %s: %w", value.Dec(), common.ErrDailyLimitExceeded)
		}
		fee := b.toll.Config().Fee
		net, err = toll.Split(value, &fee)
		if err != nil {
			return settlement{}, err
		}
		if err := txn.Emit(events.UserRequestForSignature{Recipient: sender, Value: *net}); err != nil {
			return settlement{}, err
		}
		// funds move last so any earlier rejection leaves the ledger untouched;
		// once started they must not be interrupted by the caller
		if _, err := b.toll.Collect(context.WithoutCancel(ctx), b.ledger, sender, value); err != nil {
			return settlement{}, err
		}
		return settlement{compensate: func(ctx context.Context) error {
			return b.toll.Restore(ctx, b.ledger, sender, value)
		}}, nil
	})
	if err != nil {
		return nil, err
	}
	b.log.Info().Str("sender", sender.Hex()).Str("value", value.Dec()).Str("net", net.Dec()).Msg("withdrawal requested")
	return net, nil
}
