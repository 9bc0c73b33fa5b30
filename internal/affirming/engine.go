package affirming

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/eigerco/tollbridge/internal/common"
	"github.com/eigerco/tollbridge/internal/crypto"
	"github.com/eigerco/tollbridge/internal/events"
	"github.com/eigerco/tollbridge/internal/limits"
	"github.com/eigerco/tollbridge/internal/replay"
	"github.com/eigerco/tollbridge/internal/state"
	"github.com/eigerco/tollbridge/internal/toll"
	"github.com/eigerco/tollbridge/internal/validator"
)

// Affirmation is a validator's claim that a deposit happened on the foreign chain.
type Affirmation struct {
	Recipient crypto.Address
	Value     uint256.Int
	TxHash    crypto.Hash
}

// Key identifies the deposit: keccak256(recipient ‖ value ‖ txHash).
func (a Affirmation) Key() crypto.Hash {
	value := a.Value.Bytes32()
	return crypto.KeccakData(a.Recipient[:], value[:], a.TxHash[:])
}

// Store is everything an affirmation touches. *store.Txn implements it.
type Store interface {
	replay.Records
	limits.Store
	Deferral(txHash crypto.Hash) (state.Deferral, bool, error)
	PutDeferral(d state.Deferral) error
	Emit(evs ...events.Event) error
}

// Result describes what one accepted affirmation did.
type Result struct {
	Key     crypto.Hash
	Outcome replay.Outcome
	// Decision is only meaningful when Outcome.JustCompleted is set.
	Decision limits.Decision
	// Payouts must be credited once the transaction is committed.
	Payouts []toll.Payout
}

// Engine turns validator affirmations into home chain settlements.
type Engine struct {
	guard   replay.Guard
	limiter *limits.Limiter
	toll    *toll.Toll
}

func New(limiter *limits.Limiter, t *toll.Toll) *Engine {
	return &Engine{
		guard:   replay.NewGuard(state.Affirmations),
		limiter: limiter,
		toll:    t,
	}
}

// Affirm records from's affirmation of a. Every check runs before the first
// write so a rejected affirmation leaves the store untouched.
func (e *Engine) Affirm(s Store, validators validator.Set, a Affirmation, from crypto.Address) (Result, error) {
	if !validators.IsValidator(from) {
		return Result{}, fmt.Errorf("%w: %s is not a validator", common.ErrUnauthorized, from)
	}

	key := a.Key()
	if _, err := e.guard.Check(s, key, from); err != nil {
		return Result{}, err
	}
	if _, deferred, err := s.Deferral(a.TxHash); err != nil {
		return Result{}, err
	} else if deferred {
		return Result{}, fmt.Errorf("%w: transaction %s was deferred", common.ErrAlreadyProcessed, a.TxHash)
	}
	if err := e.limiter.CheckBounds(s, state.ForeignToHome, &a.Value); err != nil {
		return Result{}, err
	}

	outcome, err := e.guard.Record(s, key, from, validators.Threshold())
	if err != nil {
		return Result{}, err
	}
	if err := s.Emit(events.SignedForAffirmation{Validator: from, TxHash: a.TxHash}); err != nil {
		return Result{}, err
	}

	result := Result{Key: key, Outcome: outcome}
	if !outcome.JustCompleted {
		return result, nil
	}

	result.Decision, err = e.limiter.Admit(s, state.ForeignToHome, &a.Value)
	if err != nil {
		return Result{}, err
	}
	switch result.Decision {
	case limits.Admitted:
		result.Payouts, err = e.toll.Settle(a.Recipient, &a.Value)
		if err != nil {
			return Result{}, err
		}
		err = s.Emit(events.AffirmationCompleted{Recipient: a.Recipient, Value: a.Value, TxHash: a.TxHash})
	case limits.Deferred:
		err = e.deferDeposit(s, a)
	}
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

func (e *Engine) deferDeposit(s Store, a Affirmation) error {
	if err := s.PutDeferral(state.Deferral{Recipient: a.Recipient, Value: a.Value, TxHash: a.TxHash}); err != nil {
		return err
	}
	if err := e.limiter.Defer(s, &a.Value); err != nil {
		return err
	}
	return s.Emit(events.AmountLimitExceeded{Recipient: a.Recipient, Value: a.Value, TxHash: a.TxHash})
}
