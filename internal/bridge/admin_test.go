package bridge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/tollbridge/internal/common"
	"github.com/eigerco/tollbridge/internal/ledger"
	"github.com/eigerco/tollbridge/internal/limits"
	"github.com/eigerco/tollbridge/internal/state"
	"github.com/eigerco/tollbridge/internal/validator"
)

func TestAdminLimitSetters(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 1)
	dir := state.ForeignToHome

	require.ErrorIs(t, h.bridge.SetDailyLimit(ctx, alice, dir, ether(1)), common.ErrUnauthorized)
	require.ErrorIs(t, h.bridge.SetMaxPerTx(ctx, mallory, dir, ether(1)), common.ErrUnauthorized)
	require.ErrorIs(t, h.bridge.SetMinPerTx(ctx, bob, dir, ether(1)), common.ErrUnauthorized)
	require.ErrorIs(t, h.bridge.ResetDailySpent(ctx, carol, dir), common.ErrUnauthorized)

	require.ErrorIs(t, h.bridge.SetDailyLimit(ctx, admin, dir, ether(99)), common.ErrConfigurationInvalid)
	require.ErrorIs(t, h.bridge.SetMaxPerTx(ctx, admin, dir, ether(10001)), common.ErrConfigurationInvalid)
	require.ErrorIs(t, h.bridge.SetMinPerTx(ctx, admin, dir, ether(10)), common.ErrConfigurationInvalid)
	require.ErrorIs(t, h.bridge.SetMinPerTx(ctx, admin, dir, ether(101)), common.ErrConfigurationInvalid)

	limits, err := h.bridge.Limits(dir)
	require.NoError(t, err)
	assert.Equal(t, defaultLimits(), limits)

	require.NoError(t, h.bridge.SetMaxPerTx(ctx, admin, dir, ether(200)))
	require.NoError(t, h.bridge.SetMinPerTx(ctx, admin, dir, ether(20)))
	require.NoError(t, h.bridge.SetDailyLimit(ctx, admin, dir, ether(200)))

	_, err = h.bridge.Affirm(ctx, deposit(ether(15), 1), alice)
	require.ErrorIs(t, err, common.ErrBelowMinimum)
	_, err = h.bridge.Affirm(ctx, deposit(ether(200), 1), alice)
	require.NoError(t, err)

	limits, err = h.bridge.Limits(dir)
	require.NoError(t, err)
	assert.Equal(t, *ether(200), limits.Spent)

	require.NoError(t, h.bridge.ResetDailySpent(ctx, admin, dir))
	limits, err = h.bridge.Limits(dir)
	require.NoError(t, err)
	assert.True(t, limits.Spent.IsZero())

	// the other direction was never touched
	other, err := h.bridge.Limits(state.HomeToForeign)
	require.NoError(t, err)
	assert.Equal(t, defaultLimits(), other)
}

func TestSettlementFailureKeepsBookkeeping(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 1)
	h.ledger.RevokeMinting()
	a := deposit(ether(50), 1)

	res, err := h.bridge.Affirm(ctx, a, alice)
	require.ErrorIs(t, err, common.ErrSettlementFailed)
	require.ErrorIs(t, err, common.ErrInsufficientAuthority)
	assert.True(t, res.Outcome.JustCompleted)

	completed, err := h.bridge.IsAffirmationCompleted(a.Key())
	require.NoError(t, err)
	assert.True(t, completed)
	assert.Len(t, h.recorder.Events(), 2)

	// the completed key can never be settled twice
	h.ledger.GrantMinting()
	_, err = h.bridge.Affirm(ctx, a, bob)
	require.ErrorIs(t, err, common.ErrAlreadyProcessed)
	assert.True(t, h.ledger.BalanceOf(recipient).IsZero())
}

func TestSettlementUsesLedgerMock(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 1)
	l := ledger.NewLedgerMock()
	l.On("Credit", mock.Anything, recipient, ether(90)).Return(nil).Once()
	l.On("Credit", mock.Anything, destination, ether(10)).Return(nil).Once()
	h.bridge.ledger = l

	_, err := h.bridge.Affirm(ctx, deposit(ether(100), 1), alice)
	require.NoError(t, err)
	l.AssertExpectations(t)
}

func TestNewValidatesConfiguration(t *testing.T) {
	h := newHarness(t, 1)
	validators, err := validator.NewRegistry(1, alice)
	require.NoError(t, err)

	t.Run("missing direction", func(t *testing.T) {
		cfg := defaultConfig()
		delete(cfg.Limits, state.HomeToForeign)
		fresh := newHarnessStore(t)
		_, err := New(fresh, validators, ledger.NewMemory(), cfg)
		require.ErrorIs(t, err, common.ErrConfigurationInvalid)
	})

	t.Run("min per tx not above fee", func(t *testing.T) {
		cfg := defaultConfig()
		l := defaultLimits()
		l.MinPerTx = *ether(10)
		cfg.Limits[state.ForeignToHome] = l
		_, err := New(newHarnessStore(t), validators, ledger.NewMemory(), cfg)
		require.ErrorIs(t, err, common.ErrConfigurationInvalid)
	})

	t.Run("persisted limits win", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, h.bridge.SetDailyLimit(ctx, admin, state.ForeignToHome, ether(500)))

		restarted, err := New(h.store, validators, ledger.NewMemory(), defaultConfig())
		require.NoError(t, err)
		limits, err := restarted.Limits(state.ForeignToHome)
		require.NoError(t, err)
		assert.Equal(t, *ether(500), limits.DailyLimit)
	})

	t.Run("raised fee invalidates persisted limits", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Toll.Fee = *ether(11)
		_, err := New(h.store, validators, ledger.NewMemory(), cfg)
		require.ErrorIs(t, err, common.ErrConfigurationInvalid)
	})
}

func TestSetLimits(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 1)
	dir := state.HomeToForeign

	change := limits.Change{DailyLimit: ether(50000), MaxPerTx: ether(20000), MinPerTx: ether(15000)}
	require.ErrorIs(t, h.bridge.SetLimits(ctx, bob, dir, change), common.ErrUnauthorized)
	require.NoError(t, h.bridge.SetLimits(ctx, admin, dir, change))

	l, err := h.bridge.Limits(dir)
	require.NoError(t, err)
	assert.Equal(t, *ether(50000), l.DailyLimit)
	assert.Equal(t, *ether(20000), l.MaxPerTx)
	assert.Equal(t, *ether(15000), l.MinPerTx)
}
