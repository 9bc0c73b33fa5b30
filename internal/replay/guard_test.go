package replay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/tollbridge/internal/common"
	"github.com/eigerco/tollbridge/internal/crypto"
	"github.com/eigerco/tollbridge/internal/state"
	"github.com/eigerco/tollbridge/internal/store"
	"github.com/eigerco/tollbridge/pkg/db/pebble"
)

var (
	alice = crypto.Address{0xa}
	bob   = crypto.Address{0xb}
	carol = crypto.Address{0xc}
	key   = crypto.Hash{0x1}
)

func newTxn(t *testing.T) *store.Txn {
	kv, err := pebble.NewMemKVStore()
	require.NoError(t, err)
	s, err := store.New(kv, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s.Begin()
}

func TestRecordCompletesOnce(t *testing.T) {
	txn := newTxn(t)
	g := NewGuard(state.Affirmations)

	out, err := g.Record(txn, key, alice, 2)
	require.NoError(t, err)
	assert.Equal(t, Outcome{Count: 1}, out)

	_, err = g.Record(txn, key, alice, 2)
	require.ErrorIs(t, err, common.ErrAlreadyProcessed)

	out, err = g.Record(txn, key, bob, 2)
	require.NoError(t, err)
	assert.Equal(t, Outcome{Count: 2, JustCompleted: true}, out)

	_, err = g.Record(txn, key, carol, 2)
	require.ErrorIs(t, err, common.ErrAlreadyProcessed)

	record, err := txn.Record(state.Affirmations, key)
	require.NoError(t, err)
	assert.Equal(t, state.Record{Status: state.Completed, Count: 2}, record)
}

func TestThresholdChanges(t *testing.T) {
	t.Run("raised after completion", func(t *testing.T) {
		txn := newTxn(t)
		g := NewGuard(state.Signatures)
		_, err := g.Record(txn, key, alice, 2)
		require.NoError(t, err)
		_, err = g.Record(txn, key, bob, 2)
		require.NoError(t, err)

		_, err = g.Record(txn, key, carol, 3)
		require.ErrorIs(t, err, common.ErrAlreadyProcessed)
		record, err := txn.Record(state.Signatures, key)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), record.Count)
		assert.True(t, record.IsCompleted())
	})

	t.Run("lowered while pending", func(t *testing.T) {
		txn := newTxn(t)
		g := NewGuard(state.Signatures)
		_, err := g.Record(txn, key, alice, 3)
		require.NoError(t, err)
		_, err = g.Record(txn, key, bob, 3)
		require.NoError(t, err)

		out, err := g.Record(txn, key, carol, 1)
		require.NoError(t, err)
		assert.Equal(t, Outcome{Count: 3, JustCompleted: true}, out)
	})

	t.Run("zero threshold rejected", func(t *testing.T) {
		txn := newTxn(t)
		_, err := NewGuard(state.Affirmations).Record(txn, key, alice, 0)
		require.ErrorIs(t, err, common.ErrConfigurationInvalid)
		record, err := txn.Record(state.Affirmations, key)
		require.NoError(t, err)
		assert.False(t, record.Exists())
	})
}

func TestCheckWritesNothing(t *testing.T) {
	txn := newTxn(t)
	g := NewGuard(state.Affirmations)

	record, err := g.Check(txn, key, alice)
	require.NoError(t, err)
	assert.False(t, record.Exists())

	voted, err := txn.HasVoted(state.Affirmations, key, alice)
	require.NoError(t, err)
	assert.False(t, voted)
}

func TestNamespacesAreIndependent(t *testing.T) {
	txn := newTxn(t)
	_, err := NewGuard(state.Affirmations).Record(txn, key, alice, 1)
	require.NoError(t, err)

	out, err := NewGuard(state.Signatures).Record(txn, key, alice, 1)
	require.NoError(t, err)
	assert.True(t, out.JustCompleted)
}
