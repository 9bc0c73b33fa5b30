package message

import (
	"encoding/hex"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/tollbridge/internal/common"
	"github.com/eigerco/tollbridge/internal/crypto"
)

func TestEncodeLayout(t *testing.T) {
	recipient, err := crypto.AddressFromHex("0x1111111111111111111111111111111111111111")
	require.NoError(t, err)
	contract, err := crypto.AddressFromHex("0x2222222222222222222222222222222222222222")
	require.NoError(t, err)
	txHash, err := crypto.HashFromHex("0x806335163828a8eda675cff9c84fa6e6c7cf06bb44cc6ec832e42fe789d01415")
	require.NoError(t, err)

	w := Withdrawal{
		Recipient: recipient,
		Value:     *uint256.MustFromDecimal("1000000000000000000"),
		TxHash:    txHash,
		Contract:  contract,
	}
	encoded := w.Encode()
	require.Len(t, encoded, common.RequiredMessageLength)

	want := "1111111111111111111111111111111111111111" +
		"0000000000000000000000000000000000000000000000000de0b6b3a7640000" +
		"806335163828a8eda675cff9c84fa6e6c7cf06bb44cc6ec832e42fe789d01415" +
		"2222222222222222222222222222222222222222"
	assert.Equal(t, want, hex.EncodeToString(encoded))

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, w, decoded)
	assert.Equal(t, Hash(encoded), w.Hash())
}

func TestDecodeRejectsWrongLength(t *testing.T) {
	for _, size := range []int{0, 103, 105} {
		_, err := Decode(make([]byte, size))
		require.ErrorIs(t, err, common.ErrMalformedMessage)
	}
}
