package events

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/eigerco/tollbridge/internal/crypto"
)

var ErrLogTampered = errors.New("event log tampered")

// Entry is one link of the persisted event log. Hash commits to the
// sequence number, the kind, the payload and the previous entry hash.
type Entry struct {
	Seq     uint64
	Kind    Kind
	Payload []byte
	Prev    crypto.Hash
	Hash    crypto.Hash
}

// Seal builds the entry following prev at position seq.
func Seal(seq uint64, kind Kind, payload []byte, prev crypto.Hash) Entry {
	e := Entry{Seq: seq, Kind: kind, Payload: payload, Prev: prev}
	e.Hash = e.ComputeHash()
	return e
}

func (e Entry) ComputeHash() crypto.Hash {
	buf := make([]byte, 0, 8+1+crypto.HashSize+len(e.Payload))
	buf = binary.BigEndian.AppendUint64(buf, e.Seq)
	buf = append(buf, byte(e.Kind))
	buf = append(buf, e.Prev[:]...)
	buf = append(buf, e.Payload...)
	return crypto.HashData(buf)
}

// Verifier walks the log in order and checks every link.
type Verifier struct {
	next uint64
	prev crypto.Hash
}

func (v *Verifier) Next(e Entry) error {
	if e.Seq != v.next {
		return fmt.Errorf("%w: expected entry %d, found %d", ErrLogTampered, v.next, e.Seq)
	}
	if e.Prev != v.prev {
		return fmt.Errorf("%w: entry %d does not link to its predecessor", ErrLogTampered, e.Seq)
	}
	if e.ComputeHash() != e.Hash {
		return fmt.Errorf("%w: entry %d hash mismatch", ErrLogTampered, e.Seq)
	}
	v.next++
	v.prev = e.Hash
	return nil
}

// Head is the hash of the last verified entry.
func (v *Verifier) Head() crypto.Hash {
	return v.prev
}

// Count is the number of verified entries.
func (v *Verifier) Count() uint64 {
	return v.next
}
