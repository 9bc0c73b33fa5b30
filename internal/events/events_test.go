package events

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/tollbridge/internal/crypto"
	"github.com/eigerco/tollbridge/pkg/serialization"
	"github.com/eigerco/tollbridge/pkg/serialization/codec"
)

func newSerializer(t *testing.T) *serialization.Serializer {
	c, err := codec.NewCBORCodec()
	require.NoError(t, err)
	return serialization.NewSerializer(c)
}

func TestEncodeDecode(t *testing.T) {
	s := newSerializer(t)
	value := uint256.MustFromDecimal("10000000000000000000000")
	all := []Event{
		SignedForAffirmation{Validator: crypto.Address{1}, TxHash: crypto.Hash{2}},
		AffirmationCompleted{Recipient: crypto.Address{3}, Value: *value, TxHash: crypto.Hash{4}},
		AmountLimitExceeded{Recipient: crypto.Address{5}, Value: *value, TxHash: crypto.Hash{6}},
		SignedForUserRequest{Validator: crypto.Address{7}, MessageHash: crypto.Hash{8}},
		CollectedSignatures{AuthorityResponsibleForRelay: crypto.Address{9}, MessageHash: crypto.Hash{10}, NumSignatures: 2},
		UserRequestForSignature{Recipient: crypto.Address{11}, Value: *value},
	}
	for _, ev := range all {
		t.Run(ev.Kind().String(), func(t *testing.T) {
			data, err := Encode(s, ev)
			require.NoError(t, err)
			decoded, err := Decode(s, ev.Kind(), data)
			require.NoError(t, err)
			assert.Equal(t, ev, decoded)
		})
	}

	_, err := Decode(s, Kind(99), []byte{0xa0})
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestVerifier(t *testing.T) {
	var entries []Entry
	var prev crypto.Hash
	for i := uint64(0); i < 4; i++ {
		e := Seal(i, KindSignedForAffirmation, []byte{byte(i)}, prev)
		entries = append(entries, e)
		prev = e.Hash
	}

	t.Run("intact", func(t *testing.T) {
		var v Verifier
		for _, e := range entries {
			require.NoError(t, v.Next(e))
		}
		assert.Equal(t, uint64(4), v.Count())
		assert.Equal(t, prev, v.Head())
	})

	t.Run("payload changed", func(t *testing.T) {
		tampered := append([]Entry(nil), entries...)
		tampered[2].Payload = []byte{0xff}
		var v Verifier
		require.NoError(t, v.Next(tampered[0]))
		require.NoError(t, v.Next(tampered[1]))
		require.ErrorIs(t, v.Next(tampered[2]), ErrLogTampered)
	})

	t.Run("entry dropped", func(t *testing.T) {
		var v Verifier
		require.NoError(t, v.Next(entries[0]))
		require.ErrorIs(t, v.Next(entries[2]), ErrLogTampered)
	})

	t.Run("entry rehashed", func(t *testing.T) {
		forged := Seal(1, KindSignedForAffirmation, []byte{0xff}, entries[0].Hash)
		var v Verifier
		require.NoError(t, v.Next(entries[0]))
		require.NoError(t, v.Next(forged))
		require.ErrorIs(t, v.Next(entries[2]), ErrLogTampered)
	})
}

func TestRecorder(t *testing.T) {
	var r Recorder
	r.Observe(SignedForAffirmation{})
	r.Observe(UserRequestForSignature{})
	got := r.Events()
	require.Len(t, got, 2)
	assert.Equal(t, KindUserRequestForSignature, got[1].Kind())
	r.Reset()
	assert.Empty(t, r.Events())
}
