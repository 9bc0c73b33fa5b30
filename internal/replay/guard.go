package replay

import (
	"fmt"

	"github.com/eigerco/tollbridge/internal/common"
	"github.com/eigerco/tollbridge/internal/crypto"
	"github.com/eigerco/tollbridge/internal/safemath"
	"github.com/eigerco/tollbridge/internal/state"
)

// Records is the storage the guard works on. *store.Txn implements it.
type Records interface {
	Record(ns state.Namespace, key crypto.Hash) (state.Record, error)
	PutRecord(ns state.Namespace, key crypto.Hash, r state.Record) error
	HasVoted(ns state.Namespace, key crypto.Hash, validator crypto.Address) (bool, error)
	PutVote(ns state.Namespace, key crypto.Hash, validator crypto.Address) error
}

// Outcome of recording one validator action.
type Outcome struct {
	Count uint64
	// JustCompleted is true for exactly one action per key: the one that
	// reached the threshold.
	JustCompleted bool
}

// Guard counts distinct validator actions per key within one namespace and
// completes a key once.
type Guard struct {
	ns state.Namespace
}

func NewGuard(ns state.Namespace) Guard {
	return Guard{ns: ns}
}

// Check fails with ErrAlreadyProcessed if validator already acted on key or
// key is completed. It writes nothing.
func (g Guard) Check(records Records, key crypto.Hash, validator crypto.Address) (state.Record, error) {
	voted, err := records.HasVoted(g.ns, key, validator)
	if err != nil {
		return state.Record{}, err
	}
	if voted {
		return state.Record{}, fmt.Errorf("%w: %s already acted on %s in %s", common.ErrAlreadyProcessed, validator, key, g.ns)
	}
	record, err := records.Record(g.ns, key)
	if err != nil {
		return state.Record{}, err
	}
	if record.IsCompleted() {
		return state.Record{}, fmt.Errorf("%w: %s completed in %s", common.ErrAlreadyProcessed, key, g.ns)
	}
	return record, nil
}

// Record counts validator's action on key. The key completes when the count
// reaches threshold, which is read fresh by the caller on every call.
func (g Guard) Record(records Records, key crypto.Hash, validator crypto.Address, threshold uint64) (Outcome, error) {
	if threshold == 0 {
		return Outcome{}, fmt.Errorf("%w: zero threshold", common.ErrConfigurationInvalid)
	}
	record, err := g.Check(records, key, validator)
	if err != nil {
		return Outcome{}, err
	}

	count, ok := safemath.Add64(record.Count, 1)
	if !ok {
		return Outcome{}, fmt.Errorf("count of %s: %w", key, safemath.ErrOverflow)
	}
	record.Count = count
	justCompleted := count >= threshold
	if justCompleted {
		record.Status = state.Completed
	}

	if err := records.PutVote(g.ns, key, validator); err != nil {
		return Outcome{}, err
	}
	if err := records.PutRecord(g.ns, key, record); err != nil {
		return Outcome{}, err
	}
	return Outcome{Count: count, JustCompleted: justCompleted}, nil
}
