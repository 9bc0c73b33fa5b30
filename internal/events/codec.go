package events

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/eigerco/tollbridge/internal/crypto"
	"github.com/eigerco/tollbridge/pkg/serialization"
)

var ErrUnknownKind = errors.New("unknown event kind")

// payload is the persisted form shared by all event kinds. Values are kept
// as 32 byte big endian so the encoding does not depend on uint256 internals.
type payload struct {
	Address crypto.Address `cbor:"1,keyasint,omitempty"`
	Hash    crypto.Hash    `cbor:"2,keyasint,omitempty"`
	Value   [32]byte       `cbor:"3,keyasint,omitempty"`
	Count   uint64         `cbor:"4,keyasint,omitempty"`
}

// Encode serializes an event payload.
func Encode(s *serialization.Serializer, ev Event) ([]byte, error) {
	var p payload
	switch e := ev.(type) {
	case SignedForAffirmation:
		p = payload{Address: e.Validator, Hash: e.TxHash}
	case AffirmationCompleted:
		p = payload{Address: e.Recipient, Hash: e.TxHash, Value: e.Value.Bytes32()}
	case AmountLimitExceeded:
		p = payload{Address: e.Recipient, Hash: e.TxHash, Value: e.Value.Bytes32()}
	case SignedForUserRequest:
		p = payload{Address: e.Validator, Hash: e.MessageHash}
	case CollectedSignatures:
		p = payload{Address: e.AuthorityResponsibleForRelay, Hash: e.MessageHash, Count: e.NumSignatures}
	case UserRequestForSignature:
		p = payload{Address: e.Recipient, Value: e.Value.Bytes32()}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownKind, ev)
	}
	return s.Encode(p)
}

// Decode restores an event of the given kind from its payload.
func Decode(s *serialization.Serializer, kind Kind, data []byte) (Event, error) {
	var p payload
	if err := s.Decode(data, &p); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", kind, err)
	}
	var value uint256.Int
	value.SetBytes32(p.Value[:])

	switch kind {
	case KindSignedForAffirmation:
		return SignedForAffirmation{Validator: p.Address, TxHash: p.Hash}, nil
	case KindAffirmationCompleted:
		return AffirmationCompleted{Recipient: p.Address, Value: value, TxHash: p.Hash}, nil
	case KindAmountLimitExceeded:
		return AmountLimitExceeded{Recipient: p.Address, Value: value, TxHash: p.Hash}, nil
	case KindSignedForUserRequest:
		return SignedForUserRequest{Validator: p.Address, MessageHash: p.Hash}, nil
	case KindCollectedSignatures:
		return CollectedSignatures{AuthorityResponsibleForRelay: p.Address, MessageHash: p.Hash, NumSignatures: p.Count}, nil
	case KindUserRequestForSignature:
		return UserRequestForSignature{Recipient: p.Address, Value: value}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, kind)
	}
}
