package store

import (
	"github.com/holiman/uint256"

	"github.com/eigerco/tollbridge/internal/crypto"
	"github.com/eigerco/tollbridge/internal/events"
	"github.com/eigerco/tollbridge/internal/state"
)

// Persisted forms. Values are stored as 32 byte big endian.

type recordDTO struct {
	Status uint8  `cbor:"1,keyasint"`
	Count  uint64 `cbor:"2,keyasint"`
}

type limitsDTO struct {
	DailyLimit [32]byte `cbor:"1,keyasint"`
	MaxPerTx   [32]byte `cbor:"2,keyasint"`
	MinPerTx   [32]byte `cbor:"3,keyasint"`
	Spent      [32]byte `cbor:"4,keyasint"`
}

type deferralDTO struct {
	Recipient  crypto.Address `cbor:"1,keyasint"`
	Value      [32]byte       `cbor:"2,keyasint"`
	TxHash     crypto.Hash    `cbor:"3,keyasint"`
	Remediated bool           `cbor:"4,keyasint"`
}

type tollDTO struct {
	Fee         [32]byte       `cbor:"1,keyasint"`
	Destination crypto.Address `cbor:"2,keyasint"`
}

type entryDTO struct {
	Seq     uint64      `cbor:"1,keyasint"`
	Kind    uint8       `cbor:"2,keyasint"`
	Payload []byte      `cbor:"3,keyasint"`
	Prev    crypto.Hash `cbor:"4,keyasint"`
	Hash    crypto.Hash `cbor:"5,keyasint"`
}

type headDTO struct {
	Next uint64      `cbor:"1,keyasint"`
	Hash crypto.Hash `cbor:"2,keyasint"`
}

func toValue(b [32]byte) uint256.Int {
	var v uint256.Int
	v.SetBytes32(b[:])
	return v
}

func newRecordDTO(r state.Record) recordDTO {
	return recordDTO{Status: uint8(r.Status), Count: r.Count}
}

func (d recordDTO) record() state.Record {
	return state.Record{Status: state.Status(d.Status), Count: d.Count}
}

func newLimitsDTO(l state.Limits) limitsDTO {
	return limitsDTO{
		DailyLimit: l.DailyLimit.Bytes32(),
		MaxPerTx:   l.MaxPerTx.Bytes32(),
		MinPerTx:   l.MinPerTx.Bytes32(),
		Spent:      l.Spent.Bytes32(),
	}
}

func (d limitsDTO) limits() state.Limits {
	return state.Limits{
		DailyLimit: toValue(d.DailyLimit),
		MaxPerTx:   toValue(d.MaxPerTx),
		MinPerTx:   toValue(d.MinPerTx),
		Spent:      toValue(d.Spent),
	}
}

func newDeferralDTO(d state.Deferral) deferralDTO {
	return deferralDTO{Recipient: d.Recipient, Value: d.Value.Bytes32(), TxHash: d.TxHash, Remediated: d.Remediated}
}

func (d deferralDTO) deferral() state.Deferral {
	return state.Deferral{Recipient: d.Recipient, Value: toValue(d.Value), TxHash: d.TxHash, Remediated: d.Remediated}
}

func newTollDTO(t state.TollConfig) tollDTO {
	return tollDTO{Fee: t.Fee.Bytes32(), Destination: t.Destination}
}

func (d tollDTO) toll() state.TollConfig {
	return state.TollConfig{Fee: toValue(d.Fee), Destination: d.Destination}
}

func newEntryDTO(e events.Entry) entryDTO {
	return entryDTO{Seq: e.Seq, Kind: uint8(e.Kind), Payload: e.Payload, Prev: e.Prev, Hash: e.Hash}
}

func (d entryDTO) entry() events.Entry {
	return events.Entry{Seq: d.Seq, Kind: events.Kind(d.Kind), Payload: d.Payload, Prev: d.Prev, Hash: d.Hash}
}
