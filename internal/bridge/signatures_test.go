package bridge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/tollbridge/internal/common"
	"github.com/eigerco/tollbridge/internal/crypto"
	"github.com/eigerco/tollbridge/internal/events"
	"github.com/eigerco/tollbridge/internal/message"
)

func withdrawalMessage(tx byte) []byte {
	return message.Withdrawal{
		Recipient: recipient,
		Value:     *ether(40),
		TxHash:    crypto.Hash{tx},
		Contract:  contract,
	}.Encode()
}

func TestSignatureCollection(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 2)
	msg := withdrawalMessage(1)
	hash := message.Hash(msg)

	res, err := h.bridge.SubmitSignature(ctx, []byte("sig-alice"), msg, alice)
	require.NoError(t, err)
	assert.Equal(t, hash, res.MessageHash)
	assert.False(t, res.Outcome.JustCompleted)

	completed, err := h.bridge.IsMessageCompleted(hash)
	require.NoError(t, err)
	assert.False(t, completed)

	_, err = h.bridge.SubmitSignature(ctx, []byte("sig-bob"), msg, bob)
	require.NoError(t, err)

	assert.Equal(t, []events.Event{
		events.SignedForUserRequest{Validator: alice, MessageHash: hash},
		events.SignedForUserRequest{Validator: bob, MessageHash: hash},
		events.CollectedSignatures{AuthorityResponsibleForRelay: bob, MessageHash: hash, NumSignatures: 2},
	}, h.recorder.Events())

	completed, err = h.bridge.IsMessageCompleted(hash)
	require.NoError(t, err)
	assert.True(t, completed)
	count, err := h.bridge.SignatureCount(hash)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
	signed, err := h.bridge.IsSignedBy(bob, hash)
	require.NoError(t, err)
	assert.True(t, signed)

	sig, err := h.bridge.SignatureAt(hash, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte("sig-bob"), sig)
	stored, err := h.bridge.MessageFor(hash)
	require.NoError(t, err)
	assert.Equal(t, msg, stored)
	all, err := h.bridge.Signatures(hash)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("sig-alice"), []byte("sig-bob")}, all)

	assert.Equal(t, 104, h.bridge.RequiredMessageLength())
}

func TestThresholdRaisedAfterCompletion(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 2)
	msg := withdrawalMessage(2)
	hash := message.Hash(msg)

	_, err := h.bridge.SubmitSignature(ctx, []byte("a"), msg, alice)
	require.NoError(t, err)
	_, err = h.bridge.SubmitSignature(ctx, []byte("b"), msg, bob)
	require.NoError(t, err)

	require.NoError(t, h.validators.SetThreshold(3))
	_, err = h.bridge.SubmitSignature(ctx, []byte("c"), msg, carol)
	require.ErrorIs(t, err, common.ErrAlreadyProcessed)

	completed, err := h.bridge.IsMessageCompleted(hash)
	require.NoError(t, err)
	assert.True(t, completed)
	count, err := h.bridge.SignatureCount(hash)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
	_, err = h.bridge.SignatureAt(hash, 2)
	require.Error(t, err)
}

func TestThresholdLoweredWhilePending(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 2)
	msg := withdrawalMessage(3)

	_, err := h.bridge.SubmitSignature(ctx, []byte("a"), msg, alice)
	require.NoError(t, err)
	require.NoError(t, h.validators.SetThreshold(1))

	res, err := h.bridge.SubmitSignature(ctx, []byte("b"), msg, bob)
	require.NoError(t, err)
	assert.True(t, res.Outcome.JustCompleted)

	// the same holds for affirmations
	require.NoError(t, h.validators.SetThreshold(2))
	a := deposit(ether(30), 9)
	_, err = h.bridge.Affirm(ctx, a, alice)
	require.NoError(t, err)
	require.NoError(t, h.validators.SetThreshold(1))
	ares, err := h.bridge.Affirm(ctx, a, carol)
	require.NoError(t, err)
	assert.True(t, ares.Outcome.JustCompleted)
	assert.Equal(t, ether(20), h.ledger.BalanceOf(recipient))
}

func TestSignatureRejections(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 1)
	msg := withdrawalMessage(4)

	_, err := h.bridge.SubmitSignature(ctx, []byte("sig"), msg, mallory)
	require.ErrorIs(t, err, common.ErrUnauthorized)
	_, err = h.bridge.SubmitSignature(ctx, []byte("sig"), msg[:100], alice)
	require.ErrorIs(t, err, common.ErrMalformedMessage)
	_, err = h.bridge.SubmitSignature(ctx, nil, msg, alice)
	require.ErrorIs(t, err, common.ErrMalformedMessage)

	_, err = h.bridge.MessageFor(message.Hash(msg))
	require.Error(t, err)
	assert.Empty(t, h.recorder.Events())
}
