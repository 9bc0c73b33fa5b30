package remediating

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/tollbridge/internal/common"
	"github.com/eigerco/tollbridge/internal/crypto"
	"github.com/eigerco/tollbridge/internal/events"
	"github.com/eigerco/tollbridge/internal/limits"
	"github.com/eigerco/tollbridge/internal/state"
	"github.com/eigerco/tollbridge/internal/store"
	"github.com/eigerco/tollbridge/pkg/db/pebble"
)

var recipient = crypto.Address{0x1}

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

// setup parks two deferred deposits of 60 and 90.
func setup(t *testing.T) (*limits.Limiter, *store.Txn) {
	kv, err := pebble.NewMemKVStore()
	require.NoError(t, err)
	s, err := store.New(kv, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	txn := s.Begin()
	lim := limits.New(u(10))
	for _, dir := range state.Directions {
		require.NoError(t, lim.Init(txn, dir, state.Limits{DailyLimit: *u(100), MaxPerTx: *u(100), MinPerTx: *u(11)}))
	}
	for i, v := range []uint64{60, 90} {
		require.NoError(t, txn.PutDeferral(state.Deferral{Recipient: recipient, Value: *u(v), TxHash: crypto.Hash{byte(i + 1)}}))
		require.NoError(t, lim.Defer(txn, u(v)))
	}
	return lim, txn
}

func outOfLimit(t *testing.T, txn *store.Txn) *uint256.Int {
	v, err := txn.OutOfLimit()
	require.NoError(t, err)
	return v
}

func TestRemediateWithoutForward(t *testing.T) {
	lim, txn := setup(t)
	r := New(lim, false)

	d, err := r.Remediate(txn, crypto.Hash{1}, false)
	require.NoError(t, err)
	assert.True(t, d.Remediated)
	assert.Equal(t, u(90), outOfLimit(t, txn))
	assert.Empty(t, txn.Emitted())

	// the marker stays so the tx hash is still known
	stored, found, err := txn.Deferral(crypto.Hash{1})
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, stored.Outstanding())

	_, err = r.Remediate(txn, crypto.Hash{1}, true)
	require.ErrorIs(t, err, common.ErrNotDeferred)
}

func TestRemediateForward(t *testing.T) {
	lim, txn := setup(t)
	r := New(lim, false)

	_, err := r.Remediate(txn, crypto.Hash{2}, true)
	require.NoError(t, err)
	assert.Equal(t, u(60), outOfLimit(t, txn))
	assert.Equal(t, []events.Event{events.UserRequestForSignature{Recipient: recipient, Value: *u(90)}}, txn.Emitted())

	// forwarding is unconditional by default
	l, err := txn.Limits(state.HomeToForeign)
	require.NoError(t, err)
	assert.True(t, l.Spent.IsZero())
}

func TestRemediateUnknown(t *testing.T) {
	lim, txn := setup(t)
	_, err := New(lim, false).Remediate(txn, crypto.Hash{9}, false)
	require.ErrorIs(t, err, common.ErrNotDeferred)
}

func TestRemediateRecheckForwarded(t *testing.T) {
	lim, txn := setup(t)
	r := New(lim, true)

	_, err := r.Remediate(txn, crypto.Hash{2}, true)
	require.NoError(t, err)
	l, err := txn.Limits(state.HomeToForeign)
	require.NoError(t, err)
	assert.Equal(t, *u(90), l.Spent)

	_, err = r.Remediate(txn, crypto.Hash{1}, true)
	require.ErrorIs(t, err, common.ErrDailyLimitExceeded)
	require.ErrorIs(t, err, common.ErrValueOutOfBounds)

	// absorbing is never rechecked
	_, err = r.Remediate(txn, crypto.Hash{1}, false)
	require.NoError(t, err)
	assert.True(t, outOfLimit(t, txn).IsZero())
}
