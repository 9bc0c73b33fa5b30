package message

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/eigerco/tollbridge/internal/common"
	"github.com/eigerco/tollbridge/internal/crypto"
)

// Withdrawal is the payload validators co-sign to release value on the
// foreign chain.
type Withdrawal struct {
	Recipient crypto.Address
	Value     uint256.Int
	TxHash    crypto.Hash
	Contract  crypto.Address
}

const (
	recipientEnd = crypto.AddressSize
	valueEnd     = recipientEnd + 32
	txHashEnd    = valueEnd + crypto.HashSize
	contractEnd  = txHashEnd + crypto.AddressSize
)

// Encode lays the message out as recipient ‖ value (big endian) ‖ txHash ‖ contract.
func (w Withdrawal) Encode() []byte {
	out := make([]byte, common.RequiredMessageLength)
	copy(out[:recipientEnd], w.Recipient[:])
	value := w.Value.Bytes32()
	copy(out[recipientEnd:valueEnd], value[:])
	copy(out[valueEnd:txHashEnd], w.TxHash[:])
	copy(out[txHashEnd:contractEnd], w.Contract[:])
	return out
}

// Hash is the key the message's signatures are collected under.
func (w Withdrawal) Hash() crypto.Hash {
	return crypto.KeccakData(w.Encode())
}

// Decode parses an encoded message.
func Decode(data []byte) (Withdrawal, error) {
	if len(data) != common.RequiredMessageLength {
		return Withdrawal{}, fmt.Errorf("%w: expected %d bytes, got %d", common.ErrMalformedMessage, common.RequiredMessageLength, len(data))
	}
	var w Withdrawal
	copy(w.Recipient[:], data[:recipientEnd])
	w.Value.SetBytes32(data[recipientEnd:valueEnd])
	copy(w.TxHash[:], data[valueEnd:txHashEnd])
	copy(w.Contract[:], data[txHashEnd:contractEnd])
	return w, nil
}

// Hash returns the message key of raw message bytes.
func Hash(data []byte) crypto.Hash {
	return crypto.KeccakData(data)
}
