package store

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/holiman/uint256"

	"github.com/eigerco/tollbridge/internal/crypto"
	"github.com/eigerco/tollbridge/internal/events"
	"github.com/eigerco/tollbridge/internal/state"
)

// Txn stages writes over the committed state. A Txn is not safe for
// concurrent use; callers serialize transactions themselves.
type Txn struct {
	store     *Store
	writes    map[string][]byte
	completed map[string]state.Record
	emitted   []events.Event
	done      bool
}

// Discard drops every staged change.
func (t *Txn) Discard() {
	t.done = true
	t.writes = nil
	t.completed = nil
	t.emitted = nil
}

// Emitted lists the events appended in this transaction, in order.
func (t *Txn) Emitted() []events.Event {
	return t.emitted
}

func (t *Txn) get(key []byte) ([]byte, bool, error) {
	if t.done {
		return nil, false, ErrTxnDone
	}
	if v, ok := t.writes[string(key)]; ok {
		return v, true, nil
	}
	return t.store.get(key)
}

func (t *Txn) put(key []byte, v interface{}) error {
	if t.done {
		return ErrTxnDone
	}
	data, err := t.store.serializer.Encode(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", PrefixToString(key[0]), err)
	}
	t.writes[string(key)] = data
	return nil
}

func (t *Txn) putRaw(key, value []byte) error {
	if t.done {
		return ErrTxnDone
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	t.writes[string(key)] = stored
	return nil
}

func (t *Txn) decode(key []byte, v interface{}) (bool, error) {
	data, found, err := t.get(key)
	if err != nil || !found {
		return false, err
	}
	if err := t.store.serializer.Decode(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", PrefixToString(key[0]), err)
	}
	return true, nil
}

// Record returns the record of key in ns. An unknown key yields the zero record.
func (t *Txn) Record(ns state.Namespace, key crypto.Hash) (state.Record, error) {
	k := recordKey(ns, key)
	if _, staged := t.writes[string(k)]; !staged {
		if r, ok := t.store.cachedRecord(k); ok {
			return r, nil
		}
	}
	var dto recordDTO
	if _, err := t.decode(k, &dto); err != nil {
		return state.Record{}, err
	}
	return dto.record(), nil
}

func (t *Txn) PutRecord(ns state.Namespace, key crypto.Hash, r state.Record) error {
	k := recordKey(ns, key)
	if err := t.put(k, newRecordDTO(r)); err != nil {
		return err
	}
	if r.IsCompleted() {
		if t.completed == nil {
			t.completed = make(map[string]state.Record)
		}
		t.completed[string(k)] = r
	}
	return nil
}

// HasVoted reports whether validator already acted on key in ns.
func (t *Txn) HasVoted(ns state.Namespace, key crypto.Hash, validator crypto.Address) (bool, error) {
	_, found, err := t.get(voteKey(ns, key, validator))
	return found, err
}

func (t *Txn) PutVote(ns state.Namespace, key crypto.Hash, validator crypto.Address) error {
	return t.putRaw(voteKey(ns, key, validator), []byte{1})
}

// Message returns the stored withdrawal message for hash.
func (t *Txn) Message(hash crypto.Hash) ([]byte, error) {
	data, found, err := t.get(messageKey(hash))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("message %s: %w", hash, ErrNotFound)
	}
	return data, nil
}

func (t *Txn) PutMessage(hash crypto.Hash, message []byte) error {
	return t.putRaw(messageKey(hash), message)
}

// Signature returns the signature stored at index for hash.
func (t *Txn) Signature(hash crypto.Hash, index uint64) ([]byte, error) {
	data, found, err := t.get(signatureKey(hash, index))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("signature %d of %s: %w", index, hash, ErrNotFound)
	}
	return data, nil
}

func (t *Txn) PutSignature(hash crypto.Hash, index uint64, signature []byte) error {
	return t.putRaw(signatureKey(hash, index), signature)
}

// Signatures returns every signature of hash in submission order.
func (t *Txn) Signatures(hash crypto.Hash) ([][]byte, error) {
	if t.done {
		return nil, ErrTxnDone
	}
	prefix := signaturePrefix(hash)
	byIndex := make(map[uint64][]byte)

	iter, err := t.store.kv.NewIterator(prefix, prefixEnd(prefix))
	if err != nil {
		return nil, fmt.Errorf("iterate signatures: %w", err)
	}
	defer iter.Close()
	for iter.Next() {
		value, err := iter.Value()
		if err != nil {
			return nil, fmt.Errorf("read signature: %w", err)
		}
		byIndex[binary.BigEndian.Uint64(iter.Key()[len(prefix):])] = value
	}
	for k, v := range t.writes {
		if len(k) == len(prefix)+8 && bytes.HasPrefix([]byte(k), prefix) {
			byIndex[binary.BigEndian.Uint64([]byte(k)[len(prefix):])] = v
		}
	}

	indexes := make([]uint64, 0, len(byIndex))
	for i := range byIndex {
		indexes = append(indexes, i)
	}
	sort.Slice(indexes, func(i, j int) bool { return indexes[i] < indexes[j] })

	out := make([][]byte, len(indexes))
	for i, idx := range indexes {
		out[i] = byIndex[idx]
	}
	return out, nil
}

// Limits returns the limits of dir.
func (t *Txn) Limits(dir state.Direction) (state.Limits, error) {
	var dto limitsDTO
	found, err := t.decode(limitsKey(dir), &dto)
	if err != nil {
		return state.Limits{}, err
	}
	if !found {
		return state.Limits{}, fmt.Errorf("limits %s: %w", dir, ErrNotFound)
	}
	return dto.limits(), nil
}

// HasLimits reports whether limits of dir were ever stored.
func (t *Txn) HasLimits(dir state.Direction) (bool, error) {
	_, found, err := t.get(limitsKey(dir))
	return found, err
}

func (t *Txn) PutLimits(dir state.Direction, l state.Limits) error {
	return t.put(limitsKey(dir), newLimitsDTO(l))
}

// OutOfLimit returns the accumulated deferred value.
func (t *Txn) OutOfLimit() (*uint256.Int, error) {
	data, found, err := t.get(metaKey(metaOutOfLimit))
	if err != nil {
		return nil, err
	}
	if !found {
		return new(uint256.Int), nil
	}
	return new(uint256.Int).SetBytes(data), nil
}

func (t *Txn) PutOutOfLimit(v *uint256.Int) error {
	b := v.Bytes32()
	return t.putRaw(metaKey(metaOutOfLimit), b[:])
}

// Deferral returns the deferral recorded for txHash, if any.
func (t *Txn) Deferral(txHash crypto.Hash) (state.Deferral, bool, error) {
	var dto deferralDTO
	found, err := t.decode(deferralKey(txHash), &dto)
	if err != nil || !found {
		return state.Deferral{}, false, err
	}
	return dto.deferral(), true, nil
}

func (t *Txn) PutDeferral(d state.Deferral) error {
	return t.put(deferralKey(d.TxHash), newDeferralDTO(d))
}

// TollConfig returns the stored toll configuration.
func (t *Txn) TollConfig() (state.TollConfig, error) {
	var dto tollDTO
	found, err := t.decode(metaKey(metaTollConfig), &dto)
	if err != nil {
		return state.TollConfig{}, err
	}
	if !found {
		return state.TollConfig{}, fmt.Errorf("toll config: %w", ErrNotFound)
	}
	return dto.toll(), nil
}

func (t *Txn) PutTollConfig(c state.TollConfig) error {
	return t.put(metaKey(metaTollConfig), newTollDTO(c))
}
