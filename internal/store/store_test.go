package store

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/tollbridge/internal/crypto"
	"github.com/eigerco/tollbridge/internal/events"
	"github.com/eigerco/tollbridge/internal/state"
	"github.com/eigerco/tollbridge/pkg/db/pebble"
)

func newTestStore(t *testing.T) *Store {
	kv, err := pebble.NewMemKVStore()
	require.NoError(t, err)
	s, err := New(kv, 16)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}

func TestTxnStagesUntilCommit(t *testing.T) {
	s := newTestStore(t)
	key := crypto.Hash{1}
	validator := crypto.Address{2}

	txn := s.Begin()
	require.NoError(t, txn.PutRecord(state.Affirmations, key, state.Record{Count: 1}))
	require.NoError(t, txn.PutVote(state.Affirmations, key, validator))

	// visible inside the transaction
	r, err := txn.Record(state.Affirmations, key)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), r.Count)

	// invisible outside until committed
	other := s.Begin()
	r, err = other.Record(state.Affirmations, key)
	require.NoError(t, err)
	assert.False(t, r.Exists())
	voted, err := other.HasVoted(state.Affirmations, key, validator)
	require.NoError(t, err)
	assert.False(t, voted)

	require.NoError(t, s.Commit(txn))
	require.ErrorIs(t, s.Commit(txn), ErrTxnDone)

	after := s.Begin()
	r, err = after.Record(state.Affirmations, key)
	require.NoError(t, err)
	assert.Equal(t, state.Record{Status: state.Pending, Count: 1}, r)
	voted, err = after.HasVoted(state.Affirmations, key, validator)
	require.NoError(t, err)
	assert.True(t, voted)

	// namespaces are separate
	r, err = after.Record(state.Signatures, key)
	require.NoError(t, err)
	assert.False(t, r.Exists())
}

func TestDiscardLeavesNoTrace(t *testing.T) {
	s := newTestStore(t)
	txn := s.Begin()
	require.NoError(t, txn.PutOutOfLimit(uint256.NewInt(5)))
	require.NoError(t, txn.AppendEvent(events.UserRequestForSignature{Recipient: crypto.Address{1}}))
	txn.Discard()

	_, err := txn.OutOfLimit()
	require.ErrorIs(t, err, ErrTxnDone)

	fresh := s.Begin()
	v, err := fresh.OutOfLimit()
	require.NoError(t, err)
	assert.True(t, v.IsZero())
	entries, err := s.Events(0, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCompletedRecordsAreCached(t *testing.T) {
	s := newTestStore(t)
	key := crypto.Hash{9}

	txn := s.Begin()
	require.NoError(t, txn.PutRecord(state.Signatures, key, state.Record{Status: state.Completed, Count: 2}))
	require.NoError(t, s.Commit(txn))

	cached, ok := s.cachedRecord(recordKey(state.Signatures, key))
	require.True(t, ok)
	assert.True(t, cached.IsCompleted())

	// pending records are never cached
	txn = s.Begin()
	require.NoError(t, txn.PutRecord(state.Signatures, crypto.Hash{8}, state.Record{Count: 1}))
	require.NoError(t, s.Commit(txn))
	_, ok = s.cachedRecord(recordKey(state.Signatures, crypto.Hash{8}))
	assert.False(t, ok)
}

func TestSignaturesOrdered(t *testing.T) {
	s := newTestStore(t)
	hash := crypto.Hash{3}
	neighbour := crypto.Hash{4}

	txn := s.Begin()
	require.NoError(t, txn.PutMessage(hash, []byte("message")))
	require.NoError(t, txn.PutSignature(hash, 0, []byte("first")))
	require.NoError(t, txn.PutSignature(hash, 1, []byte("second")))
	require.NoError(t, txn.PutSignature(neighbour, 0, []byte("other")))
	require.NoError(t, s.Commit(txn))

	txn = s.Begin()
	require.NoError(t, txn.PutSignature(hash, 2, []byte("third")))
	sigs, err := txn.Signatures(hash)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("first"), []byte("second"), []byte("third")}, sigs)

	sig, err := txn.Signature(hash, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), sig)
	_, err = txn.Signature(hash, 5)
	require.ErrorIs(t, err, ErrNotFound)

	msg, err := txn.Message(hash)
	require.NoError(t, err)
	assert.Equal(t, []byte("message"), msg)
	_, err = txn.Message(neighbour)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLimitsDeferralsToll(t *testing.T) {
	s := newTestStore(t)
	txn := s.Begin()

	_, err := txn.Limits(state.ForeignToHome)
	require.ErrorIs(t, err, ErrNotFound)
	has, err := txn.HasLimits(state.ForeignToHome)
	require.NoError(t, err)
	assert.False(t, has)

	daily := uint256.MustFromDecimal("10000000000000000000000")
	limits := state.Limits{DailyLimit: *daily, MaxPerTx: *uint256.NewInt(100), MinPerTx: *uint256.NewInt(11), Spent: *uint256.NewInt(42)}
	require.NoError(t, txn.PutLimits(state.ForeignToHome, limits))

	deferral := state.Deferral{Recipient: crypto.Address{1}, Value: *uint256.NewInt(77), TxHash: crypto.Hash{2}}
	require.NoError(t, txn.PutDeferral(deferral))

	toll := state.TollConfig{Fee: *uint256.NewInt(10), Destination: crypto.Address{5}}
	require.NoError(t, txn.PutTollConfig(toll))
	require.NoError(t, s.Commit(txn))

	txn = s.Begin()
	gotLimits, err := txn.Limits(state.ForeignToHome)
	require.NoError(t, err)
	assert.Equal(t, limits, gotLimits)

	gotDeferral, found, err := txn.Deferral(crypto.Hash{2})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, deferral, gotDeferral)
	_, found, err = txn.Deferral(crypto.Hash{3})
	require.NoError(t, err)
	assert.False(t, found)

	gotToll, err := txn.TollConfig()
	require.NoError(t, err)
	assert.Equal(t, toll, gotToll)
}

func TestEventLog(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 3; i++ {
		txn := s.Begin()
		require.NoError(t, txn.Emit(
			events.SignedForAffirmation{Validator: crypto.Address{byte(i)}, TxHash: crypto.Hash{byte(i)}},
			events.UserRequestForSignature{Recipient: crypto.Address{byte(i)}, Value: *uint256.NewInt(uint64(i))},
		))
		assert.Len(t, txn.Emitted(), 2)
		require.NoError(t, s.Commit(txn))
	}

	count, err := s.VerifyEventLog()
	require.NoError(t, err)
	assert.Equal(t, uint64(6), count)

	page, err := s.Events(2, 3)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, uint64(2), page[0].Seq)
	assert.Equal(t, page[0].Hash, page[1].Prev)

	ev, err := s.DecodeEvent(page[0])
	require.NoError(t, err)
	assert.Equal(t, events.SignedForAffirmation{Validator: crypto.Address{1}, TxHash: crypto.Hash{1}}, ev)

	t.Run("tampered entry detected", func(t *testing.T) {
		forged := events.Seal(2, events.KindSignedForAffirmation, []byte{0xa0}, page[0].Prev)
		data, err := s.serializer.Encode(newEntryDTO(forged))
		require.NoError(t, err)
		require.NoError(t, s.kv.Put(eventKey(2), data))

		_, err = s.VerifyEventLog()
		require.ErrorIs(t, err, events.ErrLogTampered)
	})
}

func TestPrefixEnd(t *testing.T) {
	assert.Equal(t, []byte{1, 3}, prefixEnd([]byte{1, 2}))
	assert.Equal(t, []byte{2}, prefixEnd([]byte{1, 0xff}))
	assert.Nil(t, prefixEnd([]byte{0xff, 0xff}))
}

func TestClosedStore(t *testing.T) {
	kv, err := pebble.NewMemKVStore()
	require.NoError(t, err)
	s, err := New(kv, 0)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	txn := s.Begin()
	_, err = txn.Record(state.Affirmations, crypto.Hash{1})
	require.ErrorIs(t, err, ErrStoreClosed)
	require.ErrorIs(t, s.Commit(txn), ErrStoreClosed)
}
