package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/eigerco/tollbridge/internal/common"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := messageCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestMessageRoundTrip(t *testing.T) {
	recipient := "0x" + strings.Repeat("11", 20)
	txHash := "0x" + strings.Repeat("22", 32)
	contract := "0x" + strings.Repeat("33", 20)

	out, err := execute(t, "encode", "--recipient", recipient, "--value", "1000", "--tx-hash", txHash, "--contract", contract)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	encoded := strings.TrimPrefix(lines[0], "message: ")
	hash := strings.TrimPrefix(lines[1], "hash: ")
	assert.Len(t, encoded, 2+2*common.RequiredMessageLength)

	out, err = execute(t, "decode", encoded)
	require.NoError(t, err)
	var decoded decodedMessage
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, decodedMessage{
		Recipient: recipient,
		Value:     "1000",
		TxHash:    txHash,
		Contract:  contract,
		Hash:      hash,
	}, decoded)
}

func TestMessageDecodeRejectsWrongLength(t *testing.T) {
	_, err := execute(t, "decode", "0x1234")
	require.ErrorIs(t, err, common.ErrMalformedMessage)
}

func TestMessageEncodeRequiresFlags(t *testing.T) {
	_, err := execute(t, "encode", "--value", "1")
	require.Error(t, err)
}
