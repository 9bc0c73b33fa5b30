package remediating

import (
	"fmt"

	"github.com/eigerco/tollbridge/internal/common"
	"github.com/eigerco/tollbridge/internal/crypto"
	"github.com/eigerco/tollbridge/internal/events"
	"github.com/eigerco/tollbridge/internal/limits"
	"github.com/eigerco/tollbridge/internal/state"
)

// Store is everything a remediation touches. *store.Txn implements it.
type Store interface {
	limits.Store
	Deferral(txHash crypto.Hash) (state.Deferral, bool, error)
	PutDeferral(d state.Deferral) error
	Emit(evs ...events.Event) error
}

// Remediator releases deposits the daily limit deferred.
type Remediator struct {
	limiter *limits.Limiter
	// recheck admits forwarded values through the home to foreign limits.
	recheck bool
}

func New(limiter *limits.Limiter, recheckForwarded bool) *Remediator {
	return &Remediator{limiter: limiter, recheck: recheckForwarded}
}

// Remediate releases the deferral of txHash. With forward set, the value is
// handed to the withdrawal path as a fresh user request; otherwise it is
// absorbed without an event.
func (r *Remediator) Remediate(s Store, txHash crypto.Hash, forward bool) (state.Deferral, error) {
	deferral, found, err := s.Deferral(txHash)
	if err != nil {
		return state.Deferral{}, err
	}
	if !found || !deferral.Outstanding() {
		return state.Deferral{}, fmt.Errorf("%w: %s", common.ErrNotDeferred, txHash)
	}

	if forward && r.recheck {
		decision, err := r.limiter.Admit(s, state.HomeToForeign, &deferral.Value)
		if err != nil {
			return state.Deferral{}, err
		}
		if decision == limits.Deferred {
			return state.Deferral{}, fmt.Errorf("forward %s: %w", txHash, common.ErrDailyLimitExceeded)
		}
	}

	if err := r.limiter.Release(s, &deferral.Value); err != nil {
		return state.Deferral{}, err
	}
	deferral.Remediated = true
	if err := s.PutDeferral(deferral); err != nil {
		return state.Deferral{}, err
	}

	if forward {
		if err := s.Emit(events.UserRequestForSignature{Recipient: deferral.Recipient, Value: deferral.Value}); err != nil {
			return state.Deferral{}, err
		}
	}
	return deferral, nil
}
