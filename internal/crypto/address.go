package crypto

import (
	"encoding/hex"
	"fmt"
)

// Address identifies an account, validator or contract on either chain.
type Address [AddressSize]byte

func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) String() string {
	return a.Hex()
}

func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.Hex()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := AddressFromHex(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// AddressFromHex parses a 20 byte hex string, with or without 0x prefix.
func AddressFromHex(s string) (Address, error) {
	var a Address
	b, err := decodeFixedHex(s, AddressSize)
	if err != nil {
		return a, fmt.Errorf("invalid address: %w", err)
	}
	copy(a[:], b)
	return a, nil
}
