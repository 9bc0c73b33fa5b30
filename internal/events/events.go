package events

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/eigerco/tollbridge/internal/crypto"
)

type Kind uint8

const (
	KindSignedForAffirmation Kind = iota + 1
	KindAffirmationCompleted
	KindAmountLimitExceeded
	KindSignedForUserRequest
	KindCollectedSignatures
	KindUserRequestForSignature
)

func (k Kind) String() string {
	switch k {
	case KindSignedForAffirmation:
		return "SignedForAffirmation"
	case KindAffirmationCompleted:
		return "AffirmationCompleted"
	case KindAmountLimitExceeded:
		return "AmountLimitExceeded"
	case KindSignedForUserRequest:
		return "SignedForUserRequest"
	case KindCollectedSignatures:
		return "CollectedSignatures"
	case KindUserRequestForSignature:
		return "UserRequestForSignature"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Event is an observation emitted by a settlement operation.
type Event interface {
	Kind() Kind
}

// Observer receives events after the operation that emitted them committed.
type Observer func(Event)

// SignedForAffirmation is emitted for every distinct validator affirmation.
type SignedForAffirmation struct {
	Validator crypto.Address
	TxHash    crypto.Hash
}

// AffirmationCompleted is emitted when an affirmed deposit was admitted and settled.
type AffirmationCompleted struct {
	Recipient crypto.Address
	Value     uint256.Int
	TxHash    crypto.Hash
}

// AmountLimitExceeded is emitted when a completed deposit did not fit in
// the daily limit and was deferred.
type AmountLimitExceeded struct {
	Recipient crypto.Address
	Value     uint256.Int
	TxHash    crypto.Hash
}

// SignedForUserRequest is emitted for every distinct withdrawal signature.
type SignedForUserRequest struct {
	Validator   crypto.Address
	MessageHash crypto.Hash
}

// CollectedSignatures is emitted once per message, by the signature that
// completed it. The signing validator is responsible for relaying.
type CollectedSignatures struct {
	AuthorityResponsibleForRelay crypto.Address
	MessageHash                  crypto.Hash
	NumSignatures                uint64
}

// UserRequestForSignature asks validators to sign a withdrawal of value to recipient.
type UserRequestForSignature struct {
	Recipient crypto.Address
	Value     uint256.Int
}

func (SignedForAffirmation) Kind() Kind    { return KindSignedForAffirmation }
func (AffirmationCompleted) Kind() Kind    { return KindAffirmationCompleted }
func (AmountLimitExceeded) Kind() Kind     { return KindAmountLimitExceeded }
func (SignedForUserRequest) Kind() Kind    { return KindSignedForUserRequest }
func (CollectedSignatures) Kind() Kind     { return KindCollectedSignatures }
func (UserRequestForSignature) Kind() Kind { return KindUserRequestForSignature }
