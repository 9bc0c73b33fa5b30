package collecting

import (
	"fmt"

	"github.com/eigerco/tollbridge/internal/common"
	"github.com/eigerco/tollbridge/internal/crypto"
	"github.com/eigerco/tollbridge/internal/events"
	"github.com/eigerco/tollbridge/internal/message"
	"github.com/eigerco/tollbridge/internal/replay"
	"github.com/eigerco/tollbridge/internal/state"
	"github.com/eigerco/tollbridge/internal/validator"
)

// Store is everything a signature submission touches. *store.Txn implements it.
type Store interface {
	replay.Records
	PutMessage(hash crypto.Hash, message []byte) error
	PutSignature(hash crypto.Hash, index uint64, signature []byte) error
	Emit(evs ...events.Event) error
}

// Result describes what one accepted signature did.
type Result struct {
	MessageHash crypto.Hash
	Withdrawal  message.Withdrawal
	Outcome     replay.Outcome
}

// Collector gathers validator signatures over withdrawal messages.
type Collector struct {
	guard replay.Guard
}

func New() *Collector {
	return &Collector{guard: replay.NewGuard(state.Signatures)}
}

// Submit records from's signature over msg. The first signature stores the
// message; signatures are kept in submission order.
func (c *Collector) Submit(s Store, validators validator.Set, signature, msg []byte, from crypto.Address) (Result, error) {
	if !validators.IsValidator(from) {
		return Result{}, fmt.Errorf("%w: %s is not a validator", common.ErrUnauthorized, from)
	}
	withdrawal, err := message.Decode(msg)
	if err != nil {
		return Result{}, err
	}
	if len(signature) == 0 {
		return Result{}, fmt.Errorf("%w: empty signature", common.ErrMalformedMessage)
	}

	hash := message.Hash(msg)
	outcome, err := c.guard.Record(s, hash, from, validators.Threshold())
	if err != nil {
		return Result{}, err
	}

	if outcome.Count == 1 {
		if err := s.PutMessage(hash, msg); err != nil {
			return Result{}, err
		}
	}
	if err := s.PutSignature(hash, outcome.Count-1, signature); err != nil {
		return Result{}, err
	}

	evs := []events.Event{events.SignedForUserRequest{Validator: from, MessageHash: hash}}
	if outcome.JustCompleted {
		evs = append(evs, events.CollectedSignatures{
			AuthorityResponsibleForRelay: from,
			MessageHash:                  hash,
			NumSignatures:                outcome.Count,
		})
	}
	if err := s.Emit(evs...); err != nil {
		return Result{}, err
	}
	return Result{MessageHash: hash, Withdrawal: withdrawal, Outcome: outcome}, nil
}
