package bridge

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/eigerco/tollbridge/internal/common"
	"github.com/eigerco/tollbridge/internal/crypto"
	"github.com/eigerco/tollbridge/internal/events"
	"github.com/eigerco/tollbridge/internal/state"
	"github.com/eigerco/tollbridge/internal/store"
)

func (b *Bridge) record(ns state.Namespace, key crypto.Hash) (state.Record, error) {
	var r state.Record
	err := b.view(func(txn *store.Txn) error {
		var err error
		r, err = txn.Record(ns, key)
		return err
	})
	return r, err
}

func (b *Bridge) hasVoted(ns state.Namespace, key crypto.Hash, validator crypto.Address) (bool, error) {
	var voted bool
	err := b.view(func(txn *store.Txn) error {
		var err error
		voted, err = txn.HasVoted(ns, key, validator)
		return err
	})
	return voted, err
}

// AffirmationRecord returns the record of an affirmation key.
func (b *Bridge) AffirmationRecord(key crypto.Hash) (state.Record, error) {
	return b.record(state.Affirmations, key)
}

func (b *Bridge) IsAffirmationCompleted(key crypto.Hash) (bool, error) {
	r, err := b.record(state.Affirmations, key)
	return r.IsCompleted(), err
}

// AffirmationCount is the number of distinct validators that affirmed key.
// It stays frozen once key completed.
func (b *Bridge) AffirmationCount(key crypto.Hash) (uint64, error) {
	r, err := b.record(state.Affirmations, key)
	return r.Count, err
}

func (b *Bridge) IsAffirmedBy(validator crypto.Address, key crypto.Hash) (bool, error) {
	return b.hasVoted(state.Affirmations, key, validator)
}

// MessageRecord returns the signature record of a message hash.
func (b *Bridge) MessageRecord(hash crypto.Hash) (state.Record, error) {
	return b.record(state.Signatures, hash)
}

func (b *Bridge) IsMessageCompleted(hash crypto.Hash) (bool, error) {
	r, err := b.record(state.Signatures, hash)
	return r.IsCompleted(), err
}

func (b *Bridge) SignatureCount(hash crypto.Hash) (uint64, error) {
	r, err := b.record(state.Signatures, hash)
	return r.Count, err
}

func (b *Bridge) IsSignedBy(validator crypto.Address, hash crypto.Hash) (bool, error) {
	return b.hasVoted(state.Signatures, hash, validator)
}

// SignatureAt returns the index-th signature collected for hash.
func (b *Bridge) SignatureAt(hash crypto.Hash, index uint64) ([]byte, error) {
	var sig []byte
	err := b.view(func(txn *store.Txn) error {
		var err error
		sig, err = txn.Signature(hash, index)
		return err
	})
	return sig, err
}

// MessageFor returns the withdrawal message collected under hash.
func (b *Bridge) MessageFor(hash crypto.Hash) ([]byte, error) {
	var msg []byte
	err := b.view(func(txn *store.Txn) error {
		var err error
		msg, err = txn.Message(hash)
		return err
	})
	return msg, err
}

// Signatures returns every signature of hash in submission order.
func (b *Bridge) Signatures(hash crypto.Hash) ([][]byte, error) {
	var sigs [][]byte
	err := b.view(func(txn *store.Txn) error {
		var err error
		sigs, err = txn.Signatures(hash)
		return err
	})
	return sigs, err
}

func (b *Bridge) OutOfLimitAmount() (*uint256.Int, error) {
	var v *uint256.Int
	err := b.view(func(txn *store.Txn) error {
		var err error
		v, err = txn.OutOfLimit()
		return err
	})
	return v, err
}

// DeferredAmount is the value awaiting remediation for txHash, zero when
// the transaction was never deferred or was already remediated.
func (b *Bridge) DeferredAmount(txHash crypto.Hash) (*uint256.Int, error) {
	d, found, err := b.Deferral(txHash)
	if err != nil {
		return nil, err
	}
	if !found || !d.Outstanding() {
		return new(uint256.Int), nil
	}
	return d.Value.Clone(), nil
}

// Deferral returns the deferral of txHash, remediated or not.
func (b *Bridge) Deferral(txHash crypto.Hash) (state.Deferral, bool, error) {
	var (
		d     state.Deferral
		found bool
	)
	err := b.view(func(txn *store.Txn) error {
		var err error
		d, found, err = txn.Deferral(txHash)
		return err
	})
	return d, found, err
}

func (b *Bridge) Limits(dir state.Direction) (state.Limits, error) {
	if !dir.Valid() {
		return state.Limits{}, fmt.Errorf("%w: %s", common.ErrConfigurationInvalid, dir)
	}
	var l state.Limits
	err := b.view(func(txn *store.Txn) error {
		var err error
		l, err = txn.Limits(dir)
		return err
	})
	return l, err
}

func (b *Bridge) TollConfig() state.TollConfig {
	return b.toll.Config()
}

func (b *Bridge) Admin() crypto.Address {
	return b.admin
}

func (b *Bridge) RequiredMessageLength() int {
	return common.RequiredMessageLength
}

// Event is a decoded log entry.
type Event struct {
	Entry events.Entry
	Event events.Event
}

// Events returns up to limit log entries starting at sequence from.
func (b *Bridge) Events(from uint64, limit int) ([]Event, error) {
	if limit <= 0 || limit > common.DefaultEventPageSize {
		limit = common.DefaultEventPageSize
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	entries, err := b.store.Events(from, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(entries))
	for _, e := range entries {
		ev, err := b.store.DecodeEvent(e)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", e.Seq, err)
		}
		out = append(out, Event{Entry: e, Event: ev})
	}
	return out, nil
}

// VerifyEventLog checks the hash chain of the whole event log and returns
// the number of entries.
func (b *Bridge) VerifyEventLog() (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.store.VerifyEventLog()
}
