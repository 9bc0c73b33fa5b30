package store

import (
	"encoding/binary"

	"github.com/eigerco/tollbridge/internal/crypto"
	"github.com/eigerco/tollbridge/internal/state"
)

// Prefix constants for all store types
const (
	prefixRecord byte = iota + 1
	prefixVote
	prefixMessage
	prefixSignature
	prefixLimits
	prefixDeferral
	prefixMeta
	prefixEvent
)

// Singleton keys under prefixMeta
const (
	metaOutOfLimit byte = iota + 1
	metaTollConfig
	metaEventHead
)

// PrefixToString converts a prefix byte to a string
func PrefixToString(p byte) string {
	switch p {
	case prefixRecord:
		return "record"
	case prefixVote:
		return "vote"
	case prefixMessage:
		return "message"
	case prefixSignature:
		return "signature"
	case prefixLimits:
		return "limits"
	case prefixDeferral:
		return "deferral"
	case prefixMeta:
		return "meta"
	case prefixEvent:
		return "event"
	default:
		return "unknown"
	}
}

// makeKey creates a key from a prefix and the concatenated parts
func makeKey(prefix byte, parts ...[]byte) []byte {
	size := 1
	for _, p := range parts {
		size += len(p)
	}
	key := make([]byte, 0, size)
	key = append(key, prefix)
	for _, p := range parts {
		key = append(key, p...)
	}
	return key
}

func recordKey(ns state.Namespace, key crypto.Hash) []byte {
	return makeKey(prefixRecord, []byte{byte(ns)}, key[:])
}

func voteKey(ns state.Namespace, key crypto.Hash, validator crypto.Address) []byte {
	return makeKey(prefixVote, []byte{byte(ns)}, key[:], validator[:])
}

func messageKey(hash crypto.Hash) []byte {
	return makeKey(prefixMessage, hash[:])
}

func signaturePrefix(hash crypto.Hash) []byte {
	return makeKey(prefixSignature, hash[:])
}

func signatureKey(hash crypto.Hash, index uint64) []byte {
	return binary.BigEndian.AppendUint64(signaturePrefix(hash), index)
}

func limitsKey(dir state.Direction) []byte {
	return makeKey(prefixLimits, []byte{byte(dir)})
}

func deferralKey(txHash crypto.Hash) []byte {
	return makeKey(prefixDeferral, txHash[:])
}

func metaKey(m byte) []byte {
	return makeKey(prefixMeta, []byte{m})
}

func eventKey(seq uint64) []byte {
	return binary.BigEndian.AppendUint64([]byte{prefixEvent}, seq)
}

// prefixEnd returns the smallest key greater than every key starting with prefix.
func prefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
