package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/eigerco/tollbridge/internal/crypto"
	"github.com/eigerco/tollbridge/internal/message"
)

func messageCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "message",
		Short: "Encode and decode withdrawal messages",
	}
	c.AddCommand(encodeCommand(), decodeCommand())
	return c
}

func encodeCommand() *cobra.Command {
	var recipient, value, txHash, contract string
	c := &cobra.Command{
		Use:   "encode",
		Short: "Print the encoding and hash of a withdrawal message",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			var (
				w   message.Withdrawal
				err error
			)
			if w.Recipient, err = crypto.AddressFromHex(recipient); err != nil {
				return fmt.Errorf("recipient: %w", err)
			}
			v, err := uint256.FromDecimal(value)
			if err != nil {
				return fmt.Errorf("value: %w", err)
			}
			w.Value = *v
			if w.TxHash, err = crypto.HashFromHex(txHash); err != nil {
				return fmt.Errorf("tx-hash: %w", err)
			}
			if w.Contract, err = crypto.AddressFromHex(contract); err != nil {
				return fmt.Errorf("contract: %w", err)
			}
			fmt.Fprintf(c.OutOrStdout(), "message: 0x%s\nhash: %s\n", hex.EncodeToString(w.Encode()), w.Hash())
			return nil
		},
	}
	c.Flags().StringVar(&recipient, "recipient", "", "recipient address")
	c.Flags().StringVar(&value, "value", "", "value as a decimal integer")
	c.Flags().StringVar(&txHash, "tx-hash", "", "hash of the originating transaction")
	c.Flags().StringVar(&contract, "contract", "", "address of the foreign bridge contract")
	for _, name := range []string{"recipient", "value", "tx-hash", "contract"} {
		_ = c.MarkFlagRequired(name)
	}
	return c
}

type decodedMessage struct {
	Recipient string `yaml:"recipient"`
	Value     string `yaml:"value"`
	TxHash    string `yaml:"tx_hash"`
	Contract  string `yaml:"contract"`
	Hash      string `yaml:"hash"`
}

func decodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <hex>",
		Short: "Decode a hex encoded withdrawal message",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			raw, err := hex.DecodeString(strings.TrimPrefix(args[0], "0x"))
			if err != nil {
				return fmt.Errorf("message: %w", err)
			}
			w, err := message.Decode(raw)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(c.OutOrStdout())
			defer enc.Close()
			return enc.Encode(decodedMessage{
				Recipient: w.Recipient.Hex(),
				Value:     w.Value.Dec(),
				TxHash:    w.TxHash.Hex(),
				Contract:  w.Contract.Hex(),
				Hash:      message.Hash(raw).Hex(),
			})
		},
	}
}
