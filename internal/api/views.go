package api

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"github.com/eigerco/tollbridge/internal/bridge"
	"github.com/eigerco/tollbridge/internal/crypto"
	"github.com/eigerco/tollbridge/internal/events"
	"github.com/eigerco/tollbridge/internal/state"
)

// Amount is a token value carried as a decimal string.
type Amount uint256.Int

func amountOf(v *uint256.Int) Amount {
	return Amount(*v)
}

func (a *Amount) Int() *uint256.Int {
	return (*uint256.Int)(a)
}

func (a Amount) MarshalText() ([]byte, error) {
	v := uint256.Int(a)
	return []byte(v.Dec()), nil
}

func (a *Amount) UnmarshalText(text []byte) error {
	if err := (*uint256.Int)(a).SetFromDecimal(string(text)); err != nil {
		return fmt.Errorf("invalid amount %q: %w", text, err)
	}
	return nil
}

// Bytes is an arbitrary byte string carried as 0x prefixed hex.
type Bytes []byte

func (b Bytes) MarshalText() ([]byte, error) {
	return []byte("0x" + hex.EncodeToString(b)), nil
}

func (b *Bytes) UnmarshalText(text []byte) error {
	s := strings.TrimPrefix(strings.TrimPrefix(string(text), "0x"), "0X")
	out, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid hex: %w", err)
	}
	*b = out
	return nil
}

type affirmRequest struct {
	Recipient crypto.Address `json:"recipient"`
	Value     Amount         `json:"value"`
	TxHash    crypto.Hash    `json:"txHash"`
}

type affirmResponse struct {
	Key       crypto.Hash `json:"key"`
	Count     uint64      `json:"count"`
	Completed bool        `json:"completed"`
	Decision  string      `json:"decision,omitempty"`
}

type signatureRequest struct {
	Signature Bytes `json:"signature"`
	Message   Bytes `json:"message"`
}

type signatureResponse struct {
	MessageHash crypto.Hash `json:"messageHash"`
	Count       uint64      `json:"count"`
	Completed   bool        `json:"completed"`
}

type withdrawalRequest struct {
	Value Amount `json:"value"`
}

type withdrawalResponse struct {
	Released Amount `json:"released"`
}

type remediationRequest struct {
	TxHash  crypto.Hash `json:"txHash"`
	Forward bool        `json:"forward"`
}

type limitsRequest struct {
	DailyLimit *Amount `json:"dailyLimit,omitempty"`
	MaxPerTx   *Amount `json:"maxPerTx,omitempty"`
	MinPerTx   *Amount `json:"minPerTx,omitempty"`
}

type recordView struct {
	Key       crypto.Hash `json:"key"`
	Count     uint64      `json:"count"`
	Completed bool        `json:"completed"`
}

type messageView struct {
	Hash       crypto.Hash `json:"hash"`
	Message    Bytes       `json:"message"`
	Count      uint64      `json:"count"`
	Completed  bool        `json:"completed"`
	Signatures []Bytes     `json:"signatures"`
}

type limitsView struct {
	Direction  string `json:"direction"`
	DailyLimit Amount `json:"dailyLimit"`
	MaxPerTx   Amount `json:"maxPerTx"`
	MinPerTx   Amount `json:"minPerTx"`
	Spent      Amount `json:"spent"`
	Remaining  Amount `json:"remaining"`
}

func newLimitsView(dir state.Direction, l state.Limits) limitsView {
	return limitsView{
		Direction:  dir.String(),
		DailyLimit: Amount(l.DailyLimit),
		MaxPerTx:   Amount(l.MaxPerTx),
		MinPerTx:   Amount(l.MinPerTx),
		Spent:      Amount(l.Spent),
		Remaining:  amountOf(l.Remaining()),
	}
}

type deferralView struct {
	Recipient   crypto.Address `json:"recipient"`
	Value       Amount         `json:"value"`
	TxHash      crypto.Hash    `json:"txHash"`
	Remediated  bool           `json:"remediated"`
	Outstanding bool           `json:"outstanding"`
}

func newDeferralView(d state.Deferral) deferralView {
	return deferralView{
		Recipient:   d.Recipient,
		Value:       Amount(d.Value),
		TxHash:      d.TxHash,
		Remediated:  d.Remediated,
		Outstanding: d.Outstanding(),
	}
}

type tollView struct {
	Fee         Amount         `json:"fee"`
	Destination crypto.Address `json:"destination"`
}

type eventView struct {
	Seq  uint64         `json:"seq"`
	Kind string         `json:"kind"`
	Hash crypto.Hash    `json:"hash"`
	Prev crypto.Hash    `json:"prev"`
	Data map[string]any `json:"data"`
}

type eventsView struct {
	Events []eventView `json:"events"`
	Next   uint64      `json:"next"`
}

func newEventView(e bridge.Event) eventView {
	return eventView{
		Seq:  e.Entry.Seq,
		Kind: e.Entry.Kind.String(),
		Hash: e.Entry.Hash,
		Prev: e.Entry.Prev,
		Data: eventData(e.Event),
	}
}

func eventData(ev events.Event) map[string]any {
	switch ev := ev.(type) {
	case events.SignedForAffirmation:
		return map[string]any{"validator": ev.Validator, "txHash": ev.TxHash}
	case events.AffirmationCompleted:
		return map[string]any{"recipient": ev.Recipient, "value": Amount(ev.Value), "txHash": ev.TxHash}
	case events.AmountLimitExceeded:
		return map[string]any{"recipient": ev.Recipient, "value": Amount(ev.Value), "txHash": ev.TxHash}
	case events.SignedForUserRequest:
		return map[string]any{"validator": ev.Validator, "messageHash": ev.MessageHash}
	case events.CollectedSignatures:
		return map[string]any{
			"authorityResponsibleForRelay": ev.AuthorityResponsibleForRelay,
			"messageHash":                  ev.MessageHash,
			"numSignatures":                ev.NumSignatures,
		}
	case events.UserRequestForSignature:
		return map[string]any{"recipient": ev.Recipient, "value": Amount(ev.Value)}
	default:
		return nil
	}
}

type errorView struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
